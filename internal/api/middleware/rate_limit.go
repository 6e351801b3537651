package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ratelimit"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

// RateLimit 以呼叫端 IP 為鍵的限流中間件，在進入任何處理器之前執行
func RateLimit(limiter ratelimit.Limiter, window time.Duration) gin.HandlerFunc {
	retryAfter := fmt.Sprintf("%d", int(window.Seconds()))

	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// 限流後端故障時放行，避免整個閘道不可用
			common.LogError("Rate limiter failure",
				zap.Error(err),
				zap.String("ip", c.ClientIP()),
			)
			c.Next()
			return
		}

		if !allowed {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", retryAfter)
			common.WriteError(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
