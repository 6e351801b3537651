package openaicompat

import (
	"context"
	"errors"
	"fmt"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
)

// Client OpenAI 相容格式的適配器核心
//
// 扁平 messages、max_tokens、choices[0].message.content，串流為 "data: " 前綴的 delta 事件。
type Client struct {
	*provider.Base
	url       string
	wireModel string
}

type chatRequest struct {
	Model       string       `json:"model"`
	Messages    []ai.Message `json:"messages"`
	Temperature float64      `json:"temperature"`
	TopP        float64      `json:"top_p"`
	MaxTokens   int          `json:"max_tokens"`
	Stream      bool         `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage map[string]any `json:"usage"`
}

// apiError 串流中途或 200 回應中的錯誤物件
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

// New 創建客戶端；wireModel 為送往上游的模型名稱
func New(providerKey, url string, opts provider.Options, wireModel string) *Client {
	if wireModel == "" {
		wireModel = opts.Config.Model
	}
	return &Client{
		Base:      provider.NewBase(providerKey, opts),
		url:       url,
		wireModel: wireModel,
	}
}

func (c *Client) request(messages []ai.Message, stream bool) provider.Request {
	cfg := c.Options().Config
	return provider.Request{
		URL:     c.url,
		Headers: c.BearerHeaders(),
		Body: chatRequest{
			Model:       c.wireModel,
			Messages:    messages,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
			Stream:      stream,
		},
	}
}

// Chat 同步對話
func (c *Client) Chat(ctx context.Context, messages []ai.Message) (*ai.ChatResult, error) {
	if err := ai.CheckMessages(messages); err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := c.PostJSON(ctx, c.request(messages, false), &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, provider.NewPayloadError(c.Name(), provider.OpChat, errors.New("response has no choices"), nil)
	}

	return ai.NewChatResult(resp.Choices[0].Message.Content, c.Model(), resp.Usage), nil
}

// StreamChat 串流對話
func (c *Client) StreamChat(ctx context.Context, messages []ai.Message, emit provider.EmitFunc) error {
	if err := ai.CheckMessages(messages); err != nil {
		return err
	}

	return provider.StreamJSON(ctx, c.Base, c.request(messages, true), provider.PrefixDataSpace,
		func(event *streamEvent) (string, bool, error) {
			if event.Error != nil {
				return "", true, provider.NewPayloadError(c.Name(), provider.OpStream,
					fmt.Errorf("stream error code %v", event.Error.Code), []byte(event.Error.Message))
			}
			if len(event.Choices) == 0 {
				return "", false, nil
			}
			return event.Choices[0].Delta.Content, false, nil
		}, emit)
}
