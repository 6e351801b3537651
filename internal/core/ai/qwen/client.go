package qwen

import (
	"context"
	"errors"
	"fmt"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
)

const (
	// Key 供應商代號
	Key = "qwen"
	// DisplayName 顯示名稱
	DisplayName = "通义千问"
	// DefaultModel 預設模型
	DefaultModel = "qwen-turbo"
	// DefaultURL DashScope 文本生成端點
	DefaultURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"
)

// Models 可選模型
var Models = []string{"qwen-turbo", "qwen-plus", "qwen-max"}

// Client 阿里雲通義千問適配器
type Client struct {
	*provider.Base
	url string
}

type input struct {
	Messages []ai.Message `json:"messages"`
}

type parameters struct {
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	MaxTokens         int     `json:"max_tokens"`
	ResultFormat      string  `json:"result_format"`
	IncrementalOutput bool    `json:"incremental_output,omitempty"`
}

type generationRequest struct {
	Model      string     `json:"model"`
	Input      input      `json:"input"`
	Parameters parameters `json:"parameters"`
}

// generationResponse 同步回應與串流事件共用同一結構
type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage map[string]any `json:"usage"`

	// 錯誤事件與 200 錯誤回應
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *generationResponse) err(op string) error {
	if r.Code == "" {
		return nil
	}
	return provider.NewPayloadError(Key, op, fmt.Errorf("code %s", r.Code), []byte(r.Message))
}

func (r *generationResponse) content() (string, bool) {
	if len(r.Output.Choices) == 0 {
		return "", false
	}
	return r.Output.Choices[0].Message.Content, true
}

// New 創建適配器
func New(opts provider.Options) provider.Provider {
	return &Client{
		Base: provider.NewBase(Key, opts),
		url:  provider.URLOr(opts.BaseURL, DefaultURL),
	}
}

func (c *Client) body(messages []ai.Message, stream bool) generationRequest {
	cfg := c.Options().Config
	return generationRequest{
		Model: c.Model(),
		Input: input{Messages: messages},
		Parameters: parameters{
			Temperature:       cfg.Temperature,
			TopP:              cfg.TopP,
			MaxTokens:         cfg.MaxTokens,
			ResultFormat:      "message",
			IncrementalOutput: stream,
		},
	}
}

// Chat 同步對話
func (c *Client) Chat(ctx context.Context, messages []ai.Message) (*ai.ChatResult, error) {
	if err := ai.CheckMessages(messages); err != nil {
		return nil, err
	}

	var resp generationResponse
	err := c.PostJSON(ctx, provider.Request{
		URL:     c.url,
		Headers: c.BearerHeaders(),
		Body:    c.body(messages, false),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.err(provider.OpChat); err != nil {
		return nil, err
	}

	content, ok := resp.content()
	if !ok {
		return nil, provider.NewPayloadError(Key, provider.OpChat, errors.New("response has no output.choices"), nil)
	}
	return ai.NewChatResult(content, c.Model(), resp.Usage), nil
}

// StreamChat 串流對話，incremental_output 開啟後每個事件只帶新增片段
func (c *Client) StreamChat(ctx context.Context, messages []ai.Message, emit provider.EmitFunc) error {
	if err := ai.CheckMessages(messages); err != nil {
		return err
	}

	headers := c.BearerHeaders()
	headers["X-DashScope-SSE"] = "enable"

	return provider.StreamJSON(ctx, c.Base, provider.Request{
		URL:     c.url,
		Headers: headers,
		Body:    c.body(messages, true),
	}, provider.PrefixData, func(event *generationResponse) (string, bool, error) {
		if err := event.err(provider.OpStream); err != nil {
			return "", true, err
		}
		text, _ := event.content()
		return text, false, nil
	}, emit)
}
