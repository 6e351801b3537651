package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/api/handlers/chat"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/api/handlers/health"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/api/middleware"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/registry"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/gateway"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ratelimit"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/infrastructure/config"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

// NewDispatcher 依設定建立 registry 與 dispatcher
func NewDispatcher(cfg *config.Config) *gateway.Dispatcher {
	endpoints := make(map[string]registry.Endpoints, len(cfg.Providers))
	for key, p := range cfg.Providers {
		endpoints[key] = registry.Endpoints{
			BaseURL:  p.BaseURL,
			TokenURL: p.TokenURL,
		}
	}

	reg := registry.New(endpoints, provider.Timeouts{
		Token:  cfg.Upstream.TokenTimeout,
		Chat:   cfg.Upstream.ChatTimeout,
		Stream: cfg.Upstream.StreamTimeout,
	}, cfg.Upstream.TokenTTLMargin)

	return gateway.NewDispatcher(reg)
}

// SetupRouter 設置路由；limiter 為 nil 時不限流
func SetupRouter(cfg *config.Config, limiter ratelimit.Limiter) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	router.Use(cors.New(corsConfig(cfg.CORS.Origins)))

	router.Use(middleware.BodySizeLimit(cfg.MaxBodyBytes))

	chatHandler := chat.NewHandler(NewDispatcher(cfg), cfg.App)

	// 健康檢查不受限流
	router.GET("/api/health", health.HealthCheck(cfg))
	router.GET("/ready", health.ReadinessCheck(limiter))
	router.GET("/live", health.LivenessCheck)

	limited := router.Group("")
	if limiter != nil {
		limited.Use(middleware.RateLimit(limiter, cfg.RateLimit.Window))
	}
	{
		limited.GET("/", chatHandler.HandleRoot)
		limited.GET("/api/models", chatHandler.HandleModels)
		limited.POST("/api/chat", chatHandler.HandleChat)
		limited.POST("/api/test-connection", chatHandler.HandleTestConnection)
	}

	router.NoRoute(func(c *gin.Context) {
		common.WriteError(c, common.ErrNotFound)
	})

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit_enabled", limiter != nil),
		zap.Strings("providers", registry.Keys()),
		zap.Int64("max_body_size", cfg.MaxBodyBytes),
	)

	return router
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
	} else {
		cc.AllowOrigins = origins
	}
	return cc
}
