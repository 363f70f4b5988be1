// Package prompt fetches immutable prompt-template blobs from the prompt
// bucket. Template keys are stable and their content is treated as opaque
// within a request; because objects are written once under new keys, S3's
// read-after-write consistency applies. Fetches are memoized process-locally
// for a short TTL since templates change rarely but not never.
package prompt

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/nexus-cloud/summarizer/internal/pkg/apperr"
	"github.com/nexus-cloud/summarizer/internal/pkg/retry"
)

// DefaultTemplate is the fallback used when a tenant's template key has no
// stored object.
const DefaultTemplate = "Summarize the following:\n\n{{text}}\n\nSummary:"

// getObjectAPI is the single S3 capability the store needs.
type getObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type cachedTemplate struct {
	body    string
	expires time.Time
}

// Store is the prompt-template client.
type Store struct {
	client   getObjectAPI
	bucket   string
	cacheTTL time.Duration
	policy   retry.Policy

	mu    sync.Mutex
	cache map[string]cachedTemplate
}

// NewStore builds a template client over the given S3 API.
func NewStore(client getObjectAPI, bucket string, cacheTTL time.Duration, policy retry.Policy) *Store {
	return &Store{
		client:   client,
		bucket:   bucket,
		cacheTTL: cacheTTL,
		policy:   policy,
		cache:    make(map[string]cachedTemplate),
	}
}

// GetTemplate fetches the template blob stored under ref. A missing object is
// TemplateNotFound; transport errors are retried with bounded backoff before
// surfacing as StoreUnavailable.
func (s *Store) GetTemplate(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", apperr.New(apperr.KindTemplateNotFound, "empty template reference")
	}

	if body, ok := s.cached(ref); ok {
		return body, nil
	}

	var body string
	err := s.policy.Do(ctx, func() error {
		out, opErr := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(ref),
		})
		if opErr != nil {
			var noSuchKey *s3types.NoSuchKey
			if errors.As(opErr, &noSuchKey) {
				return apperr.New(apperr.KindTemplateNotFound, "no template at %s", ref)
			}
			return apperr.Wrap(apperr.KindStoreUnavailable, opErr)
		}
		defer out.Body.Close()

		data, readErr := io.ReadAll(out.Body)
		if readErr != nil {
			return apperr.Wrap(apperr.KindStoreUnavailable, readErr)
		}
		body = string(data)
		return nil
	}, apperr.Retryable)
	if err != nil {
		return "", err
	}

	s.remember(ref, body)
	return body, nil
}

func (s *Store) cached(ref string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[ref]
	if !ok || time.Now().After(entry.expires) {
		delete(s.cache, ref)
		return "", false
	}
	return entry.body, true
}

func (s *Store) remember(ref, body string) {
	if s.cacheTTL <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[ref] = cachedTemplate{body: body, expires: time.Now().Add(s.cacheTTL)}
}
