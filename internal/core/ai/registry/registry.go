package registry

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/doubao"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/ernie"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/glm"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/kimi"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/qwen"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/spark"
)

// ErrUnsupportedProvider 未知的供應商代號
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Constructor 建立適配器
type Constructor func(opts provider.Options) provider.Provider

// Entry 供應商登記資料
type Entry struct {
	Key          string
	Name         string
	Models       []string
	DefaultModel string
	New          Constructor
}

// CatalogEntry 對外的模型目錄
type CatalogEntry struct {
	Name    string   `json:"name"`
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

// 新增供應商只需在此加一行
var entries = map[string]Entry{
	qwen.Key:   {Key: qwen.Key, Name: qwen.DisplayName, Models: qwen.Models, DefaultModel: qwen.DefaultModel, New: qwen.New},
	ernie.Key:  {Key: ernie.Key, Name: ernie.DisplayName, Models: ernie.Models, DefaultModel: ernie.DefaultModel, New: ernie.New},
	glm.Key:    {Key: glm.Key, Name: glm.DisplayName, Models: glm.Models, DefaultModel: glm.DefaultModel, New: glm.New},
	spark.Key:  {Key: spark.Key, Name: spark.DisplayName, Models: spark.Models, DefaultModel: spark.DefaultModel, New: spark.New},
	kimi.Key:   {Key: kimi.Key, Name: kimi.DisplayName, Models: kimi.Models, DefaultModel: kimi.DefaultModel, New: kimi.New},
	doubao.Key: {Key: doubao.Key, Name: doubao.DisplayName, Models: doubao.Models, DefaultModel: doubao.DefaultModel, New: doubao.New},
}

// Endpoints 供應商端點覆寫
type Endpoints struct {
	BaseURL  string
	TokenURL string
}

// Registry 供應商代號到建構函式的查表
type Registry struct {
	endpoints      map[string]Endpoints
	timeouts       provider.Timeouts
	tokenTTLMargin time.Duration
}

// New 創建 Registry
func New(endpoints map[string]Endpoints, timeouts provider.Timeouts, tokenTTLMargin time.Duration) *Registry {
	if endpoints == nil {
		endpoints = map[string]Endpoints{}
	}
	return &Registry{
		endpoints:      endpoints,
		timeouts:       timeouts,
		tokenTTLMargin: tokenTTLMargin,
	}
}

// Lookup 查詢登記資料
func Lookup(key string) (Entry, error) {
	entry, ok := entries[key]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, key)
	}
	return entry, nil
}

// Keys 已支援的供應商代號（排序後）
func Keys() []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Catalog 模型目錄
func Catalog() map[string]CatalogEntry {
	out := make(map[string]CatalogEntry, len(entries))
	for key, e := range entries {
		out[key] = CatalogEntry{
			Name:    e.Name,
			Models:  append([]string(nil), e.Models...),
			Default: e.DefaultModel,
		}
	}
	return out
}

// Resolve 以呼叫端憑證與設定建立新的適配器實例
func (r *Registry) Resolve(key, credential string, bag ai.ConfigBag) (provider.Provider, error) {
	entry, err := Lookup(key)
	if err != nil {
		return nil, err
	}

	cfg, err := bag.Resolve(entry.DefaultModel)
	if err != nil {
		return nil, err
	}

	ep := r.endpoints[key]
	return entry.New(provider.Options{
		APIKey:         credential,
		SecretKey:      bag.Secondary(),
		Config:         cfg,
		BaseURL:        ep.BaseURL,
		TokenURL:       ep.TokenURL,
		Timeouts:       r.timeouts,
		TokenTTLMargin: r.tokenTTLMargin,
	}), nil
}
