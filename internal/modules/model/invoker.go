// Package model adapts a rendered prompt into a call against the configured
// generation backend. Transient failures (rate limits, backend outages,
// timeouts) are retried with bounded exponential backoff and jitter; malformed
// prompts are never retried.
package model

import (
	"context"
	"errors"
	"net/http"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/nexus-cloud/summarizer/internal/config"
	"github.com/nexus-cloud/summarizer/internal/pkg/apperr"
	"github.com/nexus-cloud/summarizer/internal/pkg/retry"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
	"go.uber.org/zap"
)

// Invoker calls the generation backend selected by configuration.
type Invoker struct {
	cfg    config.Model
	policy retry.Policy
	logger *zap.Logger
	client *http.Client
}

// NewInvoker builds an Invoker from the model config and retry policy.
func NewInvoker(cfg config.Model, policy retry.Policy, logger *zap.Logger) *Invoker {
	return &Invoker{
		cfg:    cfg,
		policy: policy,
		logger: logger,
		client: &http.Client{},
	}
}

// Invoke generates text for the prompt with the given model and output bound.
// Each attempt runs under its own timeout; a hung backend call counts as
// ModelUnavailable once the deadline passes.
func (i *Invoker) Invoke(ctx context.Context, prompt, modelID string, maxOutputTokens int) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperr.New(apperr.KindInvalidPrompt, "rendered prompt is empty")
	}
	if modelID == "" {
		modelID = i.cfg.DefaultModel
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = i.cfg.MaxTokens
	}

	var out string
	err := i.policy.Do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, i.cfg.Timeout())
		defer cancel()

		text, callErr := i.call(callCtx, prompt, modelID, maxOutputTokens)
		if callErr != nil {
			classified := classify(callErr)
			if apperr.Retryable(classified) {
				i.logger.Warn("model call failed, may retry",
					zap.String("model", modelID),
					zap.Error(callErr),
				)
			}
			return classified
		}
		out = text
		return nil
	}, apperr.Retryable)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (i *Invoker) call(ctx context.Context, prompt, modelID string, maxOutputTokens int) (string, error) {
	if isOpenAICompatibleProviderType(i.cfg.Provider) {
		return i.callChatCompletions(ctx, prompt, modelID, maxOutputTokens)
	}

	languageModel, err := i.buildLanguageModel(modelID)
	if err != nil {
		return "", err
	}

	resp, err := jetai.GenerateText(
		ctx,
		[]jetapi.Message{&jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)}},
		jetai.WithModel(languageModel),
		jetai.WithMaxOutputTokens(maxOutputTokens),
	)
	if err != nil {
		return "", err
	}
	return extractText(resp)
}

func (i *Invoker) buildLanguageModel(modelID string) (jetapi.LanguageModel, error) {
	apiKey := strings.TrimSpace(i.cfg.APIKey)
	if apiKey == "" {
		return nil, apperr.New(apperr.KindModelUnavailable, "model provider api key is empty")
	}
	endpoint := strings.TrimSpace(i.cfg.Endpoint)

	if isAnthropicProviderType(i.cfg.Provider) {
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), nil
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if endpoint != "" {
		opts = append(opts, openaioption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	client := openaiclient.NewClient(opts...)
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), nil
}

func extractText(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", apperr.New(apperr.KindModelUnavailable, "empty response from model")
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.KindModelUnavailable, "empty response from model")
	}
	return text, nil
}

// classify folds backend failures into the pipeline's error taxonomy.
func classify(err error) error {
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.KindModelUnavailable, "model call timed out")
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.KindModelUnavailable, err)
	}

	if status, ok := backendStatus(err); ok {
		return classifyStatus(status, err)
	}
	return apperr.Wrap(apperr.KindModelUnavailable, err)
}

func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return apperr.Wrap(apperr.KindRateLimited, err)
	case status == http.StatusBadRequest,
		status == http.StatusNotFound,
		status == http.StatusUnprocessableEntity:
		return apperr.Wrap(apperr.KindInvalidPrompt, err)
	default:
		return apperr.Wrap(apperr.KindModelUnavailable, err)
	}
}

func backendStatus(err error) (int, bool) {
	var be *backendError
	if errors.As(err, &be) {
		return be.status, true
	}
	var oaErr *openaiclient.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode, true
	}
	var anErr *anthropicclient.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode, true
	}
	return 0, false
}

func isAnthropicProviderType(raw string) bool {
	return normalizeProviderType(raw) == "anthropic"
}

func isOpenAICompatibleProviderType(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "openai-compatible" || t == "openaicompatible"
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}
