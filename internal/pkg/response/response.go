package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexus-cloud/summarizer/internal/pkg/apperr"
)

// OK sends a 200 response.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"ok":      0,
		"code":    http.StatusBadRequest,
		"kind":    string(apperr.KindInvalidRequest),
		"message": message,
	})
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "missing or invalid credentials"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"ok":      0,
		"code":    http.StatusUnauthorized,
		"kind":    string(apperr.KindUnauthenticated),
		"message": message,
	})
}

// TooManyRequests sends a 429 error response with a Retry-After hint.
func TooManyRequests(c *gin.Context, message string) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"ok":      0,
		"code":    http.StatusTooManyRequests,
		"kind":    string(apperr.KindRateLimited),
		"message": message,
	})
}

// NotFound sends a 404 error response for unknown routes.
func NotFound(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
		"ok":      0,
		"code":    http.StatusNotFound,
		"kind":    "NOT_FOUND",
		"message": message,
	})
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{
		"ok":      0,
		"code":    http.StatusMethodNotAllowed,
		"kind":    string(apperr.KindInvalidRequest),
		"message": "method not allowed",
	})
}

// Error maps a typed pipeline error onto its status-equivalent and sends a
// single well-formed error body with a stable machine-readable kind.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()

	message := "internal error"
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Err != nil {
		message = ae.Err.Error()
	}
	if kind == apperr.KindRateLimited {
		c.Header("Retry-After", "1")
	}

	c.AbortWithStatusJSON(status, gin.H{
		"ok":      0,
		"code":    status,
		"kind":    string(kind),
		"message": message,
	})
}
