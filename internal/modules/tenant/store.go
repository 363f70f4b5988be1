// Package tenant reads per-tenant operating parameters from the tenant-config
// table. Lookups are point reads on the partition key, never scans, and the
// table is read-only from the pipeline's perspective. Reads are eventually
// consistent; configuration is written out-of-band by an administrative
// process, so a short propagation delay is acceptable.
package tenant

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nexus-cloud/summarizer/internal/pkg/apperr"
	"github.com/nexus-cloud/summarizer/internal/pkg/retry"
)

const partitionKey = "TenantID"

// Config holds a tenant's operating parameters.
type Config struct {
	TenantID        string          `dynamodbav:"TenantID"`
	ModelID         string          `dynamodbav:"ModelId"`
	PromptKey       string          `dynamodbav:"DefaultPrompt"`
	MaxOutputLength int             `dynamodbav:"MaxOutputLength"`
	FeatureFlags    map[string]bool `dynamodbav:"FeatureFlags"`
}

// FlagAllowOverrides lets callers override model and output length per request.
const FlagAllowOverrides = "allow_overrides"

// AllowsOverrides reports whether the tenant permits request-level overrides.
func (c *Config) AllowsOverrides() bool {
	return c != nil && c.FeatureFlags[FlagAllowOverrides]
}

// getItemAPI is the single DynamoDB capability the store needs.
type getItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Store is the tenant-config client.
type Store struct {
	client getItemAPI
	table  string
	policy retry.Policy
}

// NewStore builds a tenant-config client over the given DynamoDB API.
func NewStore(client getItemAPI, table string, policy retry.Policy) *Store {
	return &Store{client: client, table: table, policy: policy}
}

// GetConfig performs a point lookup for the tenant's configuration.
// A missing item is TenantNotFound; transport and throttle errors are
// retried with bounded backoff before surfacing as StoreUnavailable.
func (s *Store) GetConfig(ctx context.Context, tenantID string) (*Config, error) {
	if tenantID == "" {
		return nil, apperr.New(apperr.KindTenantNotFound, "empty tenant id")
	}

	var out *dynamodb.GetItemOutput
	err := s.policy.Do(ctx, func() error {
		var opErr error
		out, opErr = s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.table),
			Key: map[string]ddbtypes.AttributeValue{
				partitionKey: &ddbtypes.AttributeValueMemberS{Value: tenantID},
			},
		})
		if opErr != nil {
			return apperr.Wrap(apperr.KindStoreUnavailable, opErr)
		}
		return nil
	}, apperr.Retryable)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnknown {
			err = apperr.Wrap(apperr.KindStoreUnavailable, err)
		}
		return nil, err
	}

	if len(out.Item) == 0 {
		return nil, apperr.New(apperr.KindTenantNotFound, "no configuration for tenant %s", tenantID)
	}

	var cfg Config
	if err := attributevalue.UnmarshalMap(out.Item, &cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, fmt.Errorf("decode tenant config: %w", err))
	}
	if cfg.TenantID == "" {
		cfg.TenantID = tenantID
	}
	return &cfg, nil
}
