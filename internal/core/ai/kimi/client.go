package kimi

import (
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/openaicompat"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
)

const (
	// Key 供應商代號
	Key = "kimi"
	// DisplayName 顯示名稱
	DisplayName = "Kimi"
	// DefaultModel 預設模型
	DefaultModel = "moonshot-v1-8k"
	// DefaultURL 官方對話端點
	DefaultURL = "https://api.moonshot.cn/v1/chat/completions"
)

// Models 可選模型
var Models = []string{"moonshot-v1-8k", "moonshot-v1-32k", "moonshot-v1-128k"}

// Client Moonshot Kimi 適配器
type Client struct {
	*openaicompat.Client
}

// New 創建適配器
func New(opts provider.Options) provider.Provider {
	return &Client{
		Client: openaicompat.New(Key, provider.URLOr(opts.BaseURL, DefaultURL), opts, ""),
	}
}
