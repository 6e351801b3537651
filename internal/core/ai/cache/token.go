package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
)

// Fetcher 執行一次 token 交換，expiresIn 為 0 表示上游未提供有效期
type Fetcher func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// TokenCache 單一適配器實例持有的衍生 token 快取
//
// 有效期未知時 token 在實例存活期間一直重用；已知時提前 margin 失效。
type TokenCache struct {
	mu        sync.Mutex
	provider  string
	token     string
	expiresAt time.Time
	margin    time.Duration
	now       func() time.Time
	fetches   int
}

// NewTokenCache 創建 token 快取，providerKey 用於錯誤歸屬
func NewTokenCache(providerKey string, margin time.Duration) *TokenCache {
	return &TokenCache{
		provider: providerKey,
		margin:   margin,
		now:      time.Now,
	}
}

// SetClock 替換時間來源
func (c *TokenCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get 有可用 token 時直接回傳，否則呼叫 fetch 並快取結果；失敗不重試
func (c *TokenCache) Get(ctx context.Context, fetch Fetcher) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && (c.expiresAt.IsZero() || c.now().Before(c.expiresAt)) {
		return c.token, nil
	}

	c.fetches++
	token, expiresIn, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", &provider.UpstreamError{
			Provider: c.provider,
			Op:       provider.OpToken,
			Err:      errors.New("token exchange returned empty token"),
		}
	}

	c.token = token
	c.expiresAt = time.Time{}
	if expiresIn > 0 {
		ttl := expiresIn - c.margin
		if ttl <= 0 {
			ttl = expiresIn
		}
		c.expiresAt = c.now().Add(ttl)
	}
	return token, nil
}

// Invalidate 丟棄目前的 token，上游回報 token 失效時使用
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}

// Fetches 交換次數
func (c *TokenCache) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}
