package provider

import (
	"context"
	"time"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai"
)

// EmitFunc 接收一個串流片段，回傳錯誤時停止讀取上游
type EmitFunc func(fragment string) error

// Provider 定義大模型供應商適配器介面
//
// 每個請求各自建立一個實例，不跨請求共用。
type Provider interface {
	// Name 供應商代號
	Name() string

	// Model 解析後的模型名稱
	Model() string

	// Chat 同步對話
	Chat(ctx context.Context, messages []ai.Message) (*ai.ChatResult, error)

	// StreamChat 串流對話，依上游順序將片段交給 emit，正常結束回傳 nil
	StreamChat(ctx context.Context, messages []ai.Message, emit EmitFunc) error
}

// Timeouts 上游呼叫超時
type Timeouts struct {
	Token  time.Duration
	Chat   time.Duration
	Stream time.Duration
}

// DefaultTimeouts 預設超時
var DefaultTimeouts = Timeouts{
	Token:  30 * time.Second,
	Chat:   60 * time.Second,
	Stream: 120 * time.Second,
}

// Options 建立適配器所需的參數
type Options struct {
	APIKey    string
	SecretKey string
	Config    ai.GenerationConfig

	// BaseURL / TokenURL 為空時使用供應商官方端點
	BaseURL  string
	TokenURL string

	Timeouts       Timeouts
	TokenTTLMargin time.Duration
}

// WithDefaults 補齊未設定的超時
func (o Options) WithDefaults() Options {
	if o.Timeouts.Token <= 0 {
		o.Timeouts.Token = DefaultTimeouts.Token
	}
	if o.Timeouts.Chat <= 0 {
		o.Timeouts.Chat = DefaultTimeouts.Chat
	}
	if o.Timeouts.Stream <= 0 {
		o.Timeouts.Stream = DefaultTimeouts.Stream
	}
	return o
}

// URLOr 回傳覆寫的 URL 或預設值
func URLOr(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
