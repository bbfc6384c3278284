package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/robogate/robogate/internal/config"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware 按客户端 IP 做令牌桶限流
// 账户级的额度控制在校验管道里，这里只挡住滥用调用方
func RateLimitMiddleware(cfg config.RateConfig) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limit := rate.Limit(cfg.QPS)
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return func(c *gin.Context) {
		key := c.ClientIP()

		mu.Lock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(limit, burst)
			limiters[key] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
