// Package config loads runtime configuration from a YAML file with
// environment-variable overrides. Every collaborator endpoint and policy knob
// the pipeline uses comes from here; nothing is hardcoded at call sites.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort                  = 2333
	defaultEnv                   = "development"
	defaultRedisURL              = "redis://localhost:6379/0"
	defaultTenantTable           = "TenantConfigs"
	defaultPromptKey             = "prompts/default_prompt.txt"
	defaultModelID               = "claude-haiku-4-5-20251001"
	defaultMaxOutputTokens       = 1024
	defaultTenantClaim           = "custom:tenantId"
	defaultCacheTTLSeconds       = 3600
	defaultTemplateTTLSeconds    = 300
	defaultVerifyTTLSeconds      = 60
	defaultRequestTimeoutSeconds = 10
	defaultModelTimeoutSeconds   = 8
	defaultRetryMaxAttempts      = 3
	defaultRetryBaseBackoffMS    = 200
	defaultRateLimitPerSecond    = 20
)

// AppConfig holds runtime startup configuration.
type AppConfig struct {
	Port           int       `yaml:"port"`
	Env            string    `yaml:"env"` // "development" | "production"
	RedisURL       string    `yaml:"redis_url"`
	AllowedOrigins []string  `yaml:"allowed_origins"`
	Auth           Auth      `yaml:"auth"`
	AWS            AWS       `yaml:"aws"`
	Tenant         Tenant    `yaml:"tenant"`
	Prompt         Prompt    `yaml:"prompt"`
	Cache          Cache     `yaml:"cache"`
	Model          Model     `yaml:"model"`
	Retry          Retry     `yaml:"retry"`
	RateLimit      RateLimit `yaml:"rate_limit"`

	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// Auth configures identity-provider token validation.
type Auth struct {
	JWTSecret          string `yaml:"jwt_secret"`
	Issuer             string `yaml:"issuer"`
	Audience           string `yaml:"audience"`
	TenantClaim        string `yaml:"tenant_claim"`
	VerifyCacheSeconds int    `yaml:"verify_cache_seconds"`
}

// AWS configures the shared SDK client settings for DynamoDB and S3.
type AWS struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"` // custom endpoint for local stacks
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Tenant configures the tenant-config table.
type Tenant struct {
	Table string `yaml:"table"`
}

// Prompt configures the prompt-template bucket.
type Prompt struct {
	Bucket          string `yaml:"bucket"`
	DefaultKey      string `yaml:"default_key"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// Cache configures the summarization response cache.
type Cache struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// Model configures the generation backend.
type Model struct {
	Provider       string `yaml:"provider"` // "anthropic" | "openai" | "openai-compatible"
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	DefaultModel   string `yaml:"default_model"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Retry bounds backoff for transient store and model failures.
type Retry struct {
	MaxAttempts   int `yaml:"max_attempts"`
	BaseBackoffMS int `yaml:"base_backoff_ms"`
}

// RateLimit configures the per-tenant request limiter.
type RateLimit struct {
	Enabled   bool `yaml:"enabled"`
	PerSecond int  `yaml:"per_second"`
}

// Load reads the YAML config at path (missing file is not an error), applies
// environment overrides and fills defaults.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps deployment environment variables onto the config.
// Names match what the provisioning layer injects.
func applyEnvOverrides(cfg *AppConfig) {
	setString(&cfg.Env, "NODE_ENV", "ENV")
	setInt(&cfg.Port, "PORT")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.AWS.Region, "REGION", "AWS_REGION")
	setString(&cfg.AWS.Endpoint, "AWS_ENDPOINT_URL")
	setString(&cfg.Tenant.Table, "CONFIG_TABLE")
	setString(&cfg.Prompt.Bucket, "PROMPT_BUCKET")
	setString(&cfg.Model.DefaultModel, "MODEL_ID")
	setString(&cfg.Model.Provider, "MODEL_PROVIDER")
	setString(&cfg.Model.Endpoint, "MODEL_ENDPOINT")
	setString(&cfg.Model.APIKey, "MODEL_API_KEY")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.Issuer, "JWT_ISSUER")
	setString(&cfg.Auth.Audience, "JWT_AUDIENCE")
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = defaultEnv
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		cfg.RedisURL = defaultRedisURL
	}
	if strings.TrimSpace(cfg.Tenant.Table) == "" {
		cfg.Tenant.Table = defaultTenantTable
	}
	if strings.TrimSpace(cfg.Prompt.DefaultKey) == "" {
		cfg.Prompt.DefaultKey = defaultPromptKey
	}
	if cfg.Prompt.CacheTTLSeconds <= 0 {
		cfg.Prompt.CacheTTLSeconds = defaultTemplateTTLSeconds
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
	if strings.TrimSpace(cfg.Auth.TenantClaim) == "" {
		cfg.Auth.TenantClaim = defaultTenantClaim
	}
	if cfg.Auth.VerifyCacheSeconds <= 0 {
		cfg.Auth.VerifyCacheSeconds = defaultVerifyTTLSeconds
	}
	if strings.TrimSpace(cfg.Model.Provider) == "" {
		cfg.Model.Provider = "anthropic"
	}
	if strings.TrimSpace(cfg.Model.DefaultModel) == "" {
		cfg.Model.DefaultModel = defaultModelID
	}
	if cfg.Model.MaxTokens <= 0 {
		cfg.Model.MaxTokens = defaultMaxOutputTokens
	}
	if cfg.Model.TimeoutSeconds <= 0 {
		cfg.Model.TimeoutSeconds = defaultModelTimeoutSeconds
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
	if cfg.Retry.BaseBackoffMS <= 0 {
		cfg.Retry.BaseBackoffMS = defaultRetryBaseBackoffMS
	}
	if cfg.RateLimit.PerSecond <= 0 {
		cfg.RateLimit.PerSecond = defaultRateLimitPerSecond
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func validate(cfg *AppConfig) error {
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) is required")
	}
	if strings.TrimSpace(cfg.Prompt.Bucket) == "" {
		return fmt.Errorf("prompt.bucket (or PROMPT_BUCKET) is required")
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

// RequestTimeout is the overall per-request deadline.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// VerifyCacheTTL bounds the token-verification cache.
func (c *Auth) VerifyCacheTTL() time.Duration {
	return time.Duration(c.VerifyCacheSeconds) * time.Second
}

// CacheTTL bounds the process-local template cache.
func (c *Prompt) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// TTL is the response-cache entry lifetime.
func (c *Cache) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Timeout bounds a single model invocation.
func (c *Model) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BaseBackoff is the first retry delay.
func (c *Retry) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffMS) * time.Millisecond
}

func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
			return
		}
	}
}

func setInt(dst *int, names ...string) {
	for _, name := range names {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
			return
		}
	}
}
