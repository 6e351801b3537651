package spark

import (
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/openaicompat"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
)

const (
	// Key 供應商代號
	Key = "spark"
	// DisplayName 顯示名稱
	DisplayName = "讯飞星火"
	// DefaultModel 預設模型
	DefaultModel = "spark-lite"
	// DefaultURL 官方對話端點
	DefaultURL = "https://spark-api-open.xf-yun.com/v1/chat/completions"
)

// Models 可選模型
var Models = []string{"spark-lite", "spark-pro", "spark-max"}

// 目錄名稱對應星火 HTTP 介面的 model 欄位
var wireModels = map[string]string{
	"spark-lite": "lite",
	"spark-pro":  "generalv3",
	"spark-max":  "generalv3.5",
}

// WireModel 將目錄名稱轉為上游名稱，未知名稱原樣送出
func WireModel(model string) string {
	if wire, ok := wireModels[model]; ok {
		return wire
	}
	return model
}

// Client 訊飛星火適配器，API Key 為控制台的 APIPassword
type Client struct {
	*openaicompat.Client
}

// New 創建適配器
func New(opts provider.Options) provider.Provider {
	return &Client{
		Client: openaicompat.New(Key, provider.URLOr(opts.BaseURL, DefaultURL), opts, WireModel(opts.Config.Model)),
	}
}
