package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/infrastructure/config"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

// NewFromConfig 依設定建立限流器，未啟用時回傳 nil
func NewFromConfig(ctx context.Context, cfg *config.Config) (Limiter, error) {
	rl := cfg.RateLimit
	if !rl.Enabled {
		common.LogInfo("Rate limit disabled")
		return nil, nil
	}

	switch rl.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		common.LogInfo("限流器已初始化",
			zap.String("backend", config.BackendRedis),
			zap.String("redis_addr", cfg.Redis.Addr),
			zap.Int("per_minute", rl.PerMinute),
		)
		return NewRedisWindow(client, cfg.Redis.KeyPrefix, rl.PerMinute, rl.Window), nil

	default:
		common.LogInfo("限流器已初始化",
			zap.String("backend", config.BackendMemory),
			zap.Int("per_minute", rl.PerMinute),
			zap.Duration("sweep_interval", rl.SweepInterval),
		)
		return NewSlidingWindow(rl.PerMinute, rl.SweepInterval, WithWindow(rl.Window)), nil
	}
}
