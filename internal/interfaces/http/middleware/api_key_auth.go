package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"pay-watch.backend/pkg/crypto"
	"pay-watch.backend/pkg/logger"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer credentials
	BearerPrefix = "Bearer "
	// APIKeyHeader carries the merchant API key
	APIKeyHeader = "X-API-Key"
	// CallerKey is the gin context key holding the caller identity used to
	// scope idempotency storage and logs
	CallerKey = "caller_id"
)

// APIKeyAuthMiddleware authenticates merchant endpoints against the
// configured bcrypt hashes. The key is accepted from X-API-Key or as a
// bearer token. Only hashes are ever configured or stored.
func APIKeyAuthMiddleware(hashes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := presentedKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "API key is required",
			})
			return
		}

		// prefix check rejects junk before paying the bcrypt cost
		if !crypto.HasKeyPrefix(key) || !matchesAnyHash(key, hashes) {
			logger.Warn(c.Request.Context(), "rejected API key",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "invalid API key",
			})
			return
		}

		c.Set(CallerKey, keyFingerprint(key))
		c.Next()
	}
}

func presentedKey(c *gin.Context) string {
	if key := c.GetHeader(APIKeyHeader); key != "" {
		return key
	}
	auth := c.GetHeader(AuthorizationHeader)
	if strings.HasPrefix(auth, BearerPrefix) {
		return strings.TrimPrefix(auth, BearerPrefix)
	}
	return ""
}

func matchesAnyHash(key string, hashes []string) bool {
	for _, h := range hashes {
		if crypto.CheckAPIKey(key, h) {
			return true
		}
	}
	return false
}

// keyFingerprint derives a short stable id from a key without making the
// key recoverable from storage.
func keyFingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}
