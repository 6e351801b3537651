package doubao

import (
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/openaicompat"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
)

const (
	// Key 供應商代號
	Key = "doubao"
	// DisplayName 顯示名稱
	DisplayName = "豆包"
	// DefaultModel 預設模型
	DefaultModel = "doubao-lite-4k"
	// DefaultURL 官方對話端點
	DefaultURL = "https://ark.cn-beijing.volces.com/api/v3/chat/completions"
)

// Models 可選模型
var Models = []string{"doubao-lite-4k", "doubao-pro-4k", "doubao-pro-32k"}

// Client 字節跳動豆包（火山方舟）適配器
//
// 方舟的 model 欄位也可以是推理接入點 ID（ep-xxxx），原樣轉發。
type Client struct {
	*openaicompat.Client
}

// New 創建適配器
func New(opts provider.Options) provider.Provider {
	return &Client{
		Client: openaicompat.New(Key, provider.URLOr(opts.BaseURL, DefaultURL), opts, ""),
	}
}
