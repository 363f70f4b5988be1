// Package app wires configuration, external-store clients and the request
// pipeline into a runnable HTTP application.
package app

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nexus-cloud/summarizer/internal/config"
	"github.com/nexus-cloud/summarizer/internal/middleware"
	"github.com/nexus-cloud/summarizer/internal/modules/auth"
	"github.com/nexus-cloud/summarizer/internal/modules/cache"
	"github.com/nexus-cloud/summarizer/internal/modules/model"
	"github.com/nexus-cloud/summarizer/internal/modules/prompt"
	"github.com/nexus-cloud/summarizer/internal/modules/summarize"
	"github.com/nexus-cloud/summarizer/internal/modules/tenant"
	pkgredis "github.com/nexus-cloud/summarizer/internal/pkg/redis"
	"github.com/nexus-cloud/summarizer/internal/pkg/retry"
	"go.uber.org/zap"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	logger *zap.Logger
}

// New initializes the application: config → Redis → AWS clients → pipeline →
// routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	ddb, s3c, err := newAWSClients(cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("aws: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: cfg.Retry.BaseBackoff(),
	}

	tenants := tenant.NewStore(ddb, cfg.Tenant.Table, policy)
	templates := prompt.NewStore(s3c, cfg.Prompt.Bucket, cfg.Prompt.CacheTTL(), policy)
	summaries := cache.New(rc, cfg.Cache.TTL(), logger)
	invoker := model.NewInvoker(cfg.Model, policy, logger)

	svc := summarize.NewService(tenants, templates, summaries, invoker, summarize.Defaults{
		ModelID:         cfg.Model.DefaultModel,
		TemplateRef:     cfg.Prompt.DefaultKey,
		MaxOutputLength: cfg.Model.MaxTokens,
	}, logger)

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	app := &App{cfg: cfg, router: router, logger: logger}
	app.registerRoutes(rc, auth.New(cfg.Auth), svc)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

func corsConfig(cfg *config.AppConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsCfg.AllowOriginFunc = func(origin string) bool {
			host := origin
			if u, err := url.Parse(origin); err == nil && u.Host != "" {
				host = u.Host
			}
			for _, pattern := range patterns {
				if matchOrigin(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsCfg.AllowOriginFunc = func(origin string) bool { return true }
	}
	return corsCfg
}

// matchOrigin reports whether host matches an exact or "*."-wildcard pattern.
func matchOrigin(pattern, host string) bool {
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	return false
}
