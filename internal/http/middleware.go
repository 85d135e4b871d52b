package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"book-keeper/internal/domain"
)

const identityKey = "auth.identity"

const bearerPrefix = "Bearer "

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authRequired extracts and verifies the bearer token, then stores the
// decoded identity in the request context for downstream handlers. Any
// failure aborts the request; verification detail is logged server-side
// and never returned to the caller.
func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		identity, err := h.tokens.Verify(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			h.logger.WithError(err).Warn("token verification failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// identityFrom reads the identity placed by authRequired. The second
// return is false only if the middleware did not run, which on a
// protected route is a wiring bug rather than a caller error.
func identityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}
