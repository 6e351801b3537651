package glm

import (
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/openaicompat"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
)

const (
	// Key 供應商代號
	Key = "glm"
	// DisplayName 顯示名稱
	DisplayName = "智谱GLM"
	// DefaultModel 預設模型
	DefaultModel = "glm-4"
	// DefaultURL 官方對話端點
	DefaultURL = "https://open.bigmodel.cn/api/paas/v4/chat/completions"
)

// Models 可選模型
var Models = []string{"glm-4", "glm-4-flash", "glm-3-turbo"}

// Client 智譜 GLM 適配器
type Client struct {
	*openaicompat.Client
}

// New 創建適配器
func New(opts provider.Options) provider.Provider {
	return &Client{
		Client: openaicompat.New(Key, provider.URLOr(opts.BaseURL, DefaultURL), opts, ""),
	}
}
