package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

// DefaultWindow 預設滑動視窗
const DefaultWindow = time.Minute

// Limiter 以呼叫端位址為鍵的准入控制
type Limiter interface {
	// Allow 在視窗內請求數未達上限時記錄本次請求並放行
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// Pinger 依賴外部後端的限流器實作，用於就緒檢查
type Pinger interface {
	Ping(ctx context.Context) error
}

// window 單一位址的請求時間戳，依時間排序
type window struct {
	mu      sync.Mutex
	stamps  []time.Time
	removed bool // 已被 Sweep 移出位址表
}

// prune 移除視窗外的時間戳，呼叫端需持有 mu
func (w *window) prune(now time.Time, size time.Duration) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) >= size {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// SlidingWindow 行程內的滑動視窗限流器
//
// 位址表由 mu 保護，單一位址的清理、計數、追加由該位址的鎖保證原子性。
type SlidingWindow struct {
	mu      sync.RWMutex
	windows map[string]*window
	limit   int
	size    time.Duration
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// Option 限流器選項
type Option func(*SlidingWindow)

// WithClock 替換時間來源
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindow) {
		l.now = now
	}
}

// WithWindow 設定視窗長度
func WithWindow(size time.Duration) Option {
	return func(l *SlidingWindow) {
		if size > 0 {
			l.size = size
		}
	}
}

// NewSlidingWindow 創建限流器，sweepInterval > 0 時啟動背景清理
func NewSlidingWindow(perWindow int, sweepInterval time.Duration, opts ...Option) *SlidingWindow {
	l := &SlidingWindow{
		windows: make(map[string]*window),
		limit:   perWindow,
		size:    DefaultWindow,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if sweepInterval > 0 {
		go l.sweepLoop(sweepInterval)
	}
	return l
}

// Allow 實現 Limiter
func (l *SlidingWindow) Allow(_ context.Context, key string) (bool, error) {
	for {
		w := l.window(key)

		w.mu.Lock()
		if w.removed {
			// 取得後剛好被清理，重新查表
			w.mu.Unlock()
			continue
		}

		now := l.now()
		w.prune(now, l.size)
		allowed := len(w.stamps) < l.limit
		if allowed {
			w.stamps = append(w.stamps, now)
		}
		w.mu.Unlock()
		return allowed, nil
	}
}

func (l *SlidingWindow) window(key string) *window {
	l.mu.RLock()
	w, ok := l.windows[key]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok = l.windows[key]; !ok {
		w = &window{}
		l.windows[key] = w
	}
	return w
}

// Sweep 移除視窗內已無請求的位址，回傳移除數量
func (l *SlidingWindow) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		w.mu.Lock()
		w.prune(now, l.size)
		idle := len(w.stamps) == 0
		if idle {
			w.removed = true
		}
		w.mu.Unlock()
		if idle {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len 目前追蹤的位址數
func (l *SlidingWindow) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.windows)
}

func (l *SlidingWindow) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := l.Sweep(); removed > 0 {
				common.LogDebug("Rate limit windows swept",
					zap.Int("removed", removed),
					zap.Int("remaining", l.Len()),
				)
			}
		case <-l.done:
			return
		}
	}
}

// Close 停止背景清理
func (l *SlidingWindow) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	return nil
}
