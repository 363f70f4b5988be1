package summarize

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nexus-cloud/summarizer/internal/modules/auth"
	"github.com/nexus-cloud/summarizer/internal/modules/tenant"
	"github.com/nexus-cloud/summarizer/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTenants struct {
	configs map[string]*tenant.Config
	calls   int
}

func (f *fakeTenants) GetConfig(_ context.Context, tenantID string) (*tenant.Config, error) {
	f.calls++
	cfg, ok := f.configs[tenantID]
	if !ok {
		return nil, apperr.New(apperr.KindTenantNotFound, "tenant %q not found", tenantID)
	}
	return cfg, nil
}

type fakeTemplates struct {
	templates map[string]string
	err       error
	calls     int
}

func (f *fakeTemplates) GetTemplate(_ context.Context, ref string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	tmpl, ok := f.templates[ref]
	if !ok {
		return "", apperr.New(apperr.KindTemplateNotFound, "template %q not found", ref)
	}
	return tmpl, nil
}

type fakeCache struct {
	entries map[string]string
	broken  bool
	gets    int
	puts    int
}

func (f *fakeCache) Get(_ context.Context, fingerprint string) (string, bool) {
	f.gets++
	if f.broken {
		return "", false
	}
	summary, ok := f.entries[fingerprint]
	return summary, ok
}

func (f *fakeCache) Put(_ context.Context, fingerprint, summary string) error {
	f.puts++
	if f.broken {
		return errors.New("cache write failed")
	}
	if f.entries == nil {
		f.entries = make(map[string]string)
	}
	f.entries[fingerprint] = summary
	return nil
}

type fakeInvoker struct {
	summary string
	err     error
	calls   int
	prompts []string
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt, _ string, _ int) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%s #%d", f.summary, f.calls), nil
}

type serviceFixture struct {
	svc       *Service
	tenants   *fakeTenants
	templates *fakeTemplates
	cache     *fakeCache
	invoker   *fakeInvoker
}

func newServiceFixture() *serviceFixture {
	tenants := &fakeTenants{configs: map[string]*tenant.Config{
		"T1": {
			TenantID:  "T1",
			ModelID:   "m-t1",
			PromptKey: "prompts/t1.txt",
		},
		"T2": {
			TenantID:        "T2",
			MaxOutputLength: 64,
			FeatureFlags:    map[string]bool{tenant.FlagAllowOverrides: true},
		},
	}}
	templates := &fakeTemplates{templates: map[string]string{
		"prompts/t1.txt":  "Summarize the following:\n\n{{text}}\n\nSummary:",
		"prompts/default": "Condense this: {{text}}",
	}}
	cache := &fakeCache{}
	invoker := &fakeInvoker{summary: "A greeting."}
	defaults := Defaults{ModelID: "m-default", TemplateRef: "prompts/default", MaxOutputLength: 256}
	svc := NewService(tenants, templates, cache, invoker, defaults, zap.NewNop())
	return &serviceFixture{svc: svc, tenants: tenants, templates: templates, cache: cache, invoker: invoker}
}

func principal(tenantID string) *auth.Principal {
	return &auth.Principal{TenantID: tenantID, Subject: "user-1"}
}

func TestSummarizeHappyPath(t *testing.T) {
	f := newServiceFixture()

	res, err := f.svc.Summarize(context.Background(), principal("T1"), Request{Text: "hello world"})
	require.NoError(t, err)
	assert.Equal(t, "A greeting. #1", res.Summary)
	assert.False(t, res.Cached)

	require.Len(t, f.invoker.prompts, 1)
	assert.Equal(t, "Summarize the following:\n\nhello world\n\nSummary:", f.invoker.prompts[0])
	assert.Equal(t, 1, f.cache.puts)
}

func TestSummarizeCacheAsideIdempotence(t *testing.T) {
	f := newServiceFixture()

	first, err := f.svc.Summarize(context.Background(), principal("T1"), Request{Text: "hello world"})
	require.NoError(t, err)
	second, err := f.svc.Summarize(context.Background(), principal("T1"), Request{Text: "  hello   world "})
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, f.invoker.calls)
}

func TestSummarizeDistinctTenantsNeverShareCache(t *testing.T) {
	f := newServiceFixture()

	first, err := f.svc.Summarize(context.Background(), principal("T1"), Request{Text: "hello world"})
	require.NoError(t, err)
	second, err := f.svc.Summarize(context.Background(), principal("T2"), Request{Text: "hello world"})
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.NotEqual(t, first.Summary, second.Summary)
	assert.Equal(t, 2, f.invoker.calls)
}

func TestSummarizeBrokenCacheStillSucceeds(t *testing.T) {
	f := newServiceFixture()
	f.cache.broken = true

	res, err := f.svc.Summarize(context.Background(), principal("T1"), Request{Text: "hello world"})
	require.NoError(t, err)
	assert.Equal(t, "A greeting. #1", res.Summary)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, f.cache.puts)
}

func TestSummarizeUnknownTenant(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.Summarize(context.Background(), principal("T9"), Request{Text: "hello"})
	assert.Equal(t, apperr.KindTenantNotFound, apperr.KindOf(err))
	assert.Zero(t, f.templates.calls)
	assert.Zero(t, f.invoker.calls)
}

func TestSummarizeNoPrincipal(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.Summarize(context.Background(), nil, Request{Text: "hello"})
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	assert.Zero(t, f.tenants.calls)
}

func TestSummarizeEmptyText(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.Summarize(context.Background(), principal("T1"), Request{Text: "   "})
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
	assert.Zero(t, f.tenants.calls)
}

func TestSummarizeMissingTemplateFallsBackToDefault(t *testing.T) {
	f := newServiceFixture()
	f.tenants.configs["T1"].PromptKey = "prompts/deleted.txt"

	res, err := f.svc.Summarize(context.Background(), principal("T1"), Request{Text: "hello world"})
	require.NoError(t, err)
	require.Len(t, f.invoker.prompts, 1)
	assert.Contains(t, f.invoker.prompts[0], "hello world")
	assert.False(t, res.Cached)
}

func TestSummarizeTemplateStoreOutagePropagates(t *testing.T) {
	f := newServiceFixture()
	f.templates.err = apperr.New(apperr.KindStoreUnavailable, "bucket unreachable")

	_, err := f.svc.Summarize(context.Background(), principal("T1"), Request{Text: "hello"})
	assert.Equal(t, apperr.KindStoreUnavailable, apperr.KindOf(err))
	assert.Zero(t, f.invoker.calls)
}

func TestSummarizeTemplateWithoutPlaceholder(t *testing.T) {
	f := newServiceFixture()
	f.templates.templates["prompts/t1.txt"] = "Summarize the following text."

	_, err := f.svc.Summarize(context.Background(), principal("T1"), Request{Text: "hello"})
	assert.Equal(t, apperr.KindInvalidPrompt, apperr.KindOf(err))
	assert.Zero(t, f.invoker.calls)
}

func TestSummarizeModelErrorsPropagateUncached(t *testing.T) {
	f := newServiceFixture()
	f.invoker.err = apperr.New(apperr.KindRateLimited, "model throttled")

	_, err := f.svc.Summarize(context.Background(), principal("T1"), Request{Text: "hello"})
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
	assert.Zero(t, f.cache.puts)
}

func TestResolveParameters(t *testing.T) {
	f := newServiceFixture()

	t.Run("tenant values win over defaults", func(t *testing.T) {
		modelID, maxLen := f.svc.resolveParameters(f.tenants.configs["T1"], Request{})
		assert.Equal(t, "m-t1", modelID)
		assert.Equal(t, 256, maxLen)
	})

	t.Run("overrides ignored without the feature flag", func(t *testing.T) {
		modelID, maxLen := f.svc.resolveParameters(f.tenants.configs["T1"], Request{Model: "m-req", MaxLength: 32})
		assert.Equal(t, "m-t1", modelID)
		assert.Equal(t, 256, maxLen)
	})

	t.Run("overrides honored with the feature flag", func(t *testing.T) {
		modelID, maxLen := f.svc.resolveParameters(f.tenants.configs["T2"], Request{Model: "m-req", MaxLength: 32})
		assert.Equal(t, "m-req", modelID)
		assert.Equal(t, 32, maxLen)
	})
}

func TestRenderTemplate(t *testing.T) {
	rendered, err := renderTemplate("Summarize: {{text}}", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Summarize: hello", rendered)

	_, err = renderTemplate("no placeholder here", "hello")
	assert.Equal(t, apperr.KindInvalidPrompt, apperr.KindOf(err))

	_, err = renderTemplate("{{text}}", "   ")
	assert.Equal(t, apperr.KindInvalidPrompt, apperr.KindOf(err))
}
