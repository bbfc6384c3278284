package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/robogate/robogate/internal/config"
)

const HeaderGatewayKey = "X-Gateway-Key"

// AuthMiddleware 校验服务级接入密钥
// 终端用户的身份认证（OAuth 等）在网关之外完成，这里只认调用方
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || !cfg.Auth.RequireAPIKey {
			c.Next()
			return
		}

		apiKey := c.GetHeader(HeaderGatewayKey)
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			c.Abort()
			return
		}
		if apiKey != cfg.Auth.APIKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
