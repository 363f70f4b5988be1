package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nexus-cloud/summarizer/internal/modules/auth"
	"github.com/nexus-cloud/summarizer/internal/pkg/response"
)

const ContextKeyPrincipal = "principal"

// Auth returns a middleware that enforces bearer-token authentication.
// A request that fails here never reaches any downstream store.
func Auth(authn *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := authn.Authenticate(c.Request.Context(), extractToken(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Set(ContextKeyPrincipal, p)
		c.Next()
	}
}

// CurrentPrincipal extracts the authenticated principal from context.
func CurrentPrincipal(c *gin.Context) *auth.Principal {
	v, _ := c.Get(ContextKeyPrincipal)
	p, _ := v.(*auth.Principal)
	return p
}

func extractToken(c *gin.Context) string {
	return auth.NormalizeToken(c.GetHeader("Authorization"))
}
