// Package cache memoizes summarization results in Redis using the cache-aside
// pattern. The cache is an optimization, never a correctness dependency:
// every failure degrades to a miss (on read) or is reported for the caller to
// swallow (on write). Concurrent writers for the same fingerprint race
// last-write-wins, which is safe because both computed the same logical
// result.
package cache

import (
	"context"
	"encoding/json"
	"time"

	pkgredis "github.com/nexus-cloud/summarizer/internal/pkg/redis"
	"go.uber.org/zap"
)

const keyPrefix = "nx:summary:"

// Entry is a memoized summarization result.
type Entry struct {
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// ResponseCache is the Redis-backed summary cache.
type ResponseCache struct {
	rc     *pkgredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New builds a ResponseCache with the given entry TTL.
func New(rc *pkgredis.Client, ttl time.Duration, logger *zap.Logger) *ResponseCache {
	return &ResponseCache{rc: rc, ttl: ttl, logger: logger}
}

// Get returns the cached summary for a fingerprint. Cache errors and decode
// failures are logged at low severity and reported as a miss.
func (c *ResponseCache) Get(ctx context.Context, fingerprint string) (string, bool) {
	raw, ok, err := c.rc.Get(ctx, keyPrefix+fingerprint)
	if err != nil {
		c.logger.Debug("summary cache read failed, treating as miss", zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.Debug("summary cache entry undecodable, treating as miss", zap.Error(err))
		return "", false
	}
	return entry.Summary, true
}

// Put stores a summary under its fingerprint with the configured TTL.
// Entries expire passively; the pipeline never invalidates them.
func (c *ResponseCache) Put(ctx context.Context, fingerprint, summary string) error {
	raw, err := json.Marshal(Entry{Summary: summary, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.rc.Set(ctx, keyPrefix+fingerprint, raw, c.ttl)
}
