package app

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nexus-cloud/summarizer/internal/config"
)

// newAWSClients builds DynamoDB and S3 clients from shared settings.
// SDK-level retries are disabled: the store clients run their own bounded
// backoff so attempt budgets stay in one place.
func newAWSClients(cfg config.AWS) (*dynamodb.Client, *s3.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRetryMaxAttempts(1),
	}
	if region := strings.TrimSpace(cfg.Region); region != "" {
		opts = append(opts, awscfg.WithRegion(region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)

	ddb := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	s3c := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return ddb, s3c, nil
}
