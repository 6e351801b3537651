package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

// 清理、計數、追加在同一個腳本內執行，多個閘道實例共用視窗時仍是原子操作
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
if redis.call("ZCARD", key) >= limit then
	return 0
end
redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window)
return 1
`)

// RedisWindow 以 Redis sorted set 實作的滑動視窗，供多實例部署共用
//
// 空閒位址由 key 的過期時間自動回收。
type RedisWindow struct {
	client *redis.Client
	prefix string
	limit  int
	size   time.Duration
	now    func() time.Time
}

// NewRedisWindow 創建 Redis 限流器
func NewRedisWindow(client *redis.Client, prefix string, perWindow int, size time.Duration) *RedisWindow {
	if size <= 0 {
		size = DefaultWindow
	}
	return &RedisWindow{
		client: client,
		prefix: prefix,
		limit:  perWindow,
		size:   size,
		now:    time.Now,
	}
}

// SetClock 替換時間來源
func (l *RedisWindow) SetClock(now func() time.Time) {
	l.now = now
}

// Key Redis 中的鍵名
func (l *RedisWindow) Key(key string) string {
	return l.prefix + key
}

// Allow 實現 Limiter
func (l *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now().UnixMilli()
	// 同一毫秒的多個請求需要不同 member
	member := fmt.Sprintf("%d-%s", now, common.GenerateUUID())

	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{l.Key(key)},
		now, l.size.Milliseconds(), l.limit, member,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis sliding window: %w", err)
	}
	return res == 1, nil
}

// Ping 檢查 Redis 連線
func (l *RedisWindow) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close 關閉 Redis 連線
func (l *RedisWindow) Close() error {
	return l.client.Close()
}
