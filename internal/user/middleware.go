package user

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDKey 是鉴权通过后写入Gin上下文的用户ID键名。
	UserIDKey = "userID"

	bearerPrefix = "Bearer "
)

// Authenticator 将令牌解析为用户ID。
type Authenticator interface {
	Authenticate(tokenString string) (string, error)
}

// RequireAuthMiddleware 要求请求携带有效的 Bearer 令牌，否则返回401。
func RequireAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		userID, err := auth.Authenticate(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID 从Gin上下文中取出当前用户ID。
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
