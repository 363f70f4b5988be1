package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nexus-cloud/summarizer/internal/config"
	"github.com/nexus-cloud/summarizer/internal/pkg/apperr"
	"github.com/nexus-cloud/summarizer/internal/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testInvoker(endpoint string) *Invoker {
	cfg := config.Model{
		Provider:       "openai-compatible",
		Endpoint:       endpoint,
		APIKey:         "test-key",
		DefaultModel:   "m-default",
		MaxTokens:      256,
		TimeoutSeconds: 2,
	}
	policy := retry.Policy{MaxAttempts: 3, BaseBackoff: time.Millisecond}
	return NewInvoker(cfg, policy, zap.NewNop())
}

func TestInvokeSuccess(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"A greeting."}}]}`))
	}))
	defer ts.Close()

	out, err := testInvoker(ts.URL).Invoke(context.Background(), "Summarize: hello world", "m-1", 128)
	require.NoError(t, err)
	assert.Equal(t, "A greeting.", out)
	assert.Equal(t, int64(1), calls.Load())
}

func TestInvokeRateLimitedBoundedRetries(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer ts.Close()

	_, err := testInvoker(ts.URL).Invoke(context.Background(), "Summarize: hello", "m-1", 128)
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
	assert.Equal(t, int64(3), calls.Load())
}

func TestInvokeServerErrorIsModelUnavailable(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := testInvoker(ts.URL).Invoke(context.Background(), "Summarize: hello", "m-1", 128)
	assert.Equal(t, apperr.KindModelUnavailable, apperr.KindOf(err))
	assert.Equal(t, int64(3), calls.Load())
}

func TestInvokeBadRequestNotRetried(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"prompt too long"}}`))
	}))
	defer ts.Close()

	_, err := testInvoker(ts.URL).Invoke(context.Background(), "Summarize: hello", "m-1", 128)
	assert.Equal(t, apperr.KindInvalidPrompt, apperr.KindOf(err))
	assert.Equal(t, int64(1), calls.Load())
}

func TestInvokeEmptyPromptRejectedLocally(t *testing.T) {
	_, err := testInvoker("http://never-contacted.invalid").Invoke(context.Background(), "   ", "m-1", 128)
	assert.Equal(t, apperr.KindInvalidPrompt, apperr.KindOf(err))
}

func TestInvokeHungBackendTimesOut(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	inv := testInvoker(ts.URL)
	inv.cfg.TimeoutSeconds = 1
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := inv.Invoke(ctx, "Summarize: hello", "m-1", 128)
	assert.Equal(t, apperr.KindModelUnavailable, apperr.KindOf(err))
}

func TestNormalizeChatEndpoint(t *testing.T) {
	assert.Equal(t, "https://api.openai.com", normalizeChatEndpoint(""))
	assert.Equal(t, "https://llm.example.com", normalizeChatEndpoint("https://llm.example.com/"))
	assert.Equal(t, "https://llm.example.com", normalizeChatEndpoint("https://llm.example.com/v1"))
}
