package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Middleware enforces bearer session tokens on administrative routes.
// Expired and malformed tokens get distinct messages.
func Middleware(gate *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Token diperlukan"})
			return
		}
		tokenStr := authz
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			tokenStr = strings.TrimSpace(authz[len("bearer "):])
		}
		claims, err := gate.Authorize(tokenStr)
		if err != nil {
			msg := "Token tidak valid"
			if errors.Is(err, ErrExpired) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": msg})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}
