package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"pay-watch.backend/pkg/jwt"
)

// ServiceTokenMiddleware authenticates webhook pushes from the verification
// service with an HS256 service token.
func ServiceTokenMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "service token is required",
			})
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			msg := "invalid service token"
			if err == jwt.ErrExpiredToken {
				msg = "service token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg})
			return
		}

		c.Set(CallerKey, "svc:"+claims.Service)
		c.Next()
	}
}
