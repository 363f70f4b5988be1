// Package summarize composes authentication, tenant resolution, template
// fetch, response caching and model invocation into the summarize operation.
package summarize

import (
	"context"
	"strings"

	"github.com/nexus-cloud/summarizer/internal/modules/auth"
	"github.com/nexus-cloud/summarizer/internal/modules/cache"
	"github.com/nexus-cloud/summarizer/internal/modules/prompt"
	"github.com/nexus-cloud/summarizer/internal/modules/tenant"
	"github.com/nexus-cloud/summarizer/internal/pkg/apperr"
	"go.uber.org/zap"
)

const textPlaceholder = "{{text}}"

// TenantConfigSource is the single capability the orchestrator needs from the
// tenant-config store.
type TenantConfigSource interface {
	GetConfig(ctx context.Context, tenantID string) (*tenant.Config, error)
}

// TemplateSource fetches prompt templates by reference.
type TemplateSource interface {
	GetTemplate(ctx context.Context, ref string) (string, error)
}

// SummaryCache is the cache-aside store for computed summaries. Get degrades
// to a miss on any cache failure; Put errors are for the caller to swallow.
type SummaryCache interface {
	Get(ctx context.Context, fingerprint string) (string, bool)
	Put(ctx context.Context, fingerprint, summary string) error
}

// ModelInvoker runs a rendered prompt against the generation backend.
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt, modelID string, maxOutputTokens int) (string, error)
}

// Request is a summarization request resolved from the HTTP body.
type Request struct {
	Text string
	// optional per-request overrides, honored only when the tenant allows them
	Model     string
	MaxLength int
}

// Result is a completed summarization.
type Result struct {
	Summary string
	Cached  bool
}

// Defaults are service-level fallbacks for tenants whose configuration omits
// a value.
type Defaults struct {
	ModelID         string
	TemplateRef     string
	MaxOutputLength int
}

// Service owns the request pipeline's control flow, error policy and cache
// consistency contract.
type Service struct {
	tenants   TenantConfigSource
	templates TemplateSource
	cache     SummaryCache
	invoker   ModelInvoker
	defaults  Defaults
	logger    *zap.Logger
}

// NewService wires the orchestrator from its capability interfaces.
func NewService(tenants TenantConfigSource, templates TemplateSource, summaries SummaryCache, invoker ModelInvoker, defaults Defaults, logger *zap.Logger) *Service {
	return &Service{
		tenants:   tenants,
		templates: templates,
		cache:     summaries,
		invoker:   invoker,
		defaults:  defaults,
		logger:    logger,
	}
}

// Summarize runs the pipeline for an authenticated principal:
// resolve config → resolve template → check cache → invoke model → cache →
// respond. Stages execute strictly in this order; the cache is consulted
// before every invocation and a cache failure never aborts the request.
func (s *Service) Summarize(ctx context.Context, p *auth.Principal, req Request) (*Result, error) {
	if p == nil || p.TenantID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "no principal")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, apperr.New(apperr.KindInvalidRequest, "missing text to summarize")
	}

	cfg, err := s.tenants.GetConfig(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	templateRef := cfg.PromptKey
	if templateRef == "" {
		templateRef = s.defaults.TemplateRef
	}
	modelID, maxLen := s.resolveParameters(cfg, req)

	template, err := s.templates.GetTemplate(ctx, templateRef)
	if err != nil {
		if !apperr.IsKind(err, apperr.KindTemplateNotFound) {
			return nil, err
		}
		s.logger.Warn("prompt template missing, using built-in default",
			zap.String("tenant", p.TenantID),
			zap.String("template", templateRef),
		)
		template = prompt.DefaultTemplate
	}

	fingerprint := cache.Fingerprint(p.TenantID, templateRef, req.Text, modelID, maxLen)
	if summary, ok := s.cache.Get(ctx, fingerprint); ok {
		return &Result{Summary: summary, Cached: true}, nil
	}

	rendered, err := renderTemplate(template, req.Text)
	if err != nil {
		return nil, err
	}

	summary, err := s.invoker.Invoke(ctx, rendered, modelID, maxLen)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, fingerprint, summary); err != nil {
		// a failed cache write must never fail an otherwise-successful request
		s.logger.Warn("summary cache write failed",
			zap.String("tenant", p.TenantID),
			zap.Error(err),
		)
	}

	return &Result{Summary: summary, Cached: false}, nil
}

// resolveParameters picks the model and output bound, applying request
// overrides only for tenants whose feature flags allow them.
func (s *Service) resolveParameters(cfg *tenant.Config, req Request) (modelID string, maxLen int) {
	modelID = cfg.ModelID
	if modelID == "" {
		modelID = s.defaults.ModelID
	}
	maxLen = cfg.MaxOutputLength
	if maxLen <= 0 {
		maxLen = s.defaults.MaxOutputLength
	}

	if cfg.AllowsOverrides() {
		if req.Model != "" {
			modelID = req.Model
		}
		if req.MaxLength > 0 {
			maxLen = req.MaxLength
		}
	}
	return modelID, maxLen
}

// renderTemplate substitutes the input text into the template placeholder.
func renderTemplate(template, text string) (string, error) {
	if !strings.Contains(template, textPlaceholder) {
		return "", apperr.New(apperr.KindInvalidPrompt, "template has no %s placeholder", textPlaceholder)
	}
	rendered := strings.ReplaceAll(template, textPlaceholder, text)
	if strings.TrimSpace(rendered) == "" {
		return "", apperr.New(apperr.KindInvalidPrompt, "rendered prompt is empty")
	}
	return rendered, nil
}
