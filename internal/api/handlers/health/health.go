package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/registry"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ratelimit"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/infrastructure/config"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp float64                `json:"timestamp"`
	Version   string                 `json:"version"`
	Providers []string               `json:"providers"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		response := HealthResponse{
			Status:    "healthy",
			Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
			Version:   cfg.App.Version,
			Providers: registry.Keys(),
			Runtime: map[string]interface{}{
				"goroutines": runtime.NumGoroutine(),
				"memory": map[string]interface{}{
					"alloc":       m.Alloc,
					"total_alloc": m.TotalAlloc,
					"sys":         m.Sys,
					"num_gc":      m.NumGC,
				},
			},
		}

		common.LogDebug("Health check request",
			zap.String("client_ip", c.ClientIP()),
			zap.String("path", c.Request.URL.Path),
		)

		c.JSON(http.StatusOK, response)
	}
}

// ReadinessCheck 就緒檢查處理器，限流後端無法連線時回傳 503
func ReadinessCheck(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := limiter.(ratelimit.Pinger); ok {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				common.LogWarn("Readiness check failed", zap.Error(err))
				common.WriteError(c, common.ErrServiceUnavailable)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	}
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
