package app

import (
	"github.com/gin-gonic/gin"
	"github.com/nexus-cloud/summarizer/internal/middleware"
	"github.com/nexus-cloud/summarizer/internal/modules/auth"
	"github.com/nexus-cloud/summarizer/internal/modules/summarize"
	pkgredis "github.com/nexus-cloud/summarizer/internal/pkg/redis"
	"github.com/nexus-cloud/summarizer/internal/pkg/response"
)

func (a *App) registerRoutes(rc *pkgredis.Client, authn *auth.Authenticator, svc *summarize.Service) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "no such route")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	handler := summarize.NewHandler(svc, a.cfg.RequestTimeout())
	handler.RegisterRoutes(
		&r.RouterGroup,
		middleware.Auth(authn),
		middleware.RateLimit(rc, a.cfg.RateLimit),
	)
}
