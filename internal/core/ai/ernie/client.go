package ernie

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/cache"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
)

const (
	// Key 供應商代號
	Key = "ernie"
	// DisplayName 顯示名稱
	DisplayName = "文心一言"
	// DefaultModel 預設模型
	DefaultModel = "ernie-bot-turbo"
	// DefaultURL 千帆對話端點前綴，後接模型端點
	DefaultURL = "https://aip.baidubce.com/rpc/2.0/ai_custom/v1/wenxinworkshop/chat"
	// DefaultTokenURL OAuth token 端點
	DefaultTokenURL = "https://aip.baidubce.com/oauth/2.0/token"

	defaultEndpoint = "eb-instant"

	// access_token 無效或過期
	errCodeTokenInvalid = 110
	errCodeTokenExpired = 111
)

// Models 可選模型
var Models = []string{"ernie-bot", "ernie-bot-turbo", "ernie-bot-4"}

var modelEndpoints = map[string]string{
	"ernie-bot":       "completions",
	"ernie-bot-turbo": "eb-instant",
	"ernie-bot-4":     "completions_pro",
}

// Endpoint 模型對應的端點後綴，未知模型使用 eb-instant
func Endpoint(model string) string {
	if ep, ok := modelEndpoints[model]; ok {
		return ep
	}
	return defaultEndpoint
}

// Client 百度文心一言適配器
//
// 以 API Key / Secret Key 換取 access_token，token 以 query 參數附在每次呼叫上。
type Client struct {
	*provider.Base
	secretKey string
	url       string
	tokenURL  string
	tokens    *cache.TokenCache
}

type chatRequest struct {
	Messages        []ai.Message `json:"messages"`
	Temperature     float64      `json:"temperature"`
	TopP            float64      `json:"top_p"`
	MaxOutputTokens int          `json:"max_output_tokens"`
	Stream          bool         `json:"stream,omitempty"`
}

// chatResponse 同步回應與串流事件共用
type chatResponse struct {
	Result    string         `json:"result"`
	IsEnd     bool           `json:"is_end"`
	Usage     map[string]any `json:"usage"`
	ErrorCode int            `json:"error_code"`
	ErrorMsg  string         `json:"error_msg"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// New 創建適配器
func New(opts provider.Options) provider.Provider {
	return &Client{
		Base:      provider.NewBase(Key, opts),
		secretKey: opts.SecretKey,
		url:       provider.URLOr(opts.BaseURL, DefaultURL),
		tokenURL:  provider.URLOr(opts.TokenURL, DefaultTokenURL),
		tokens:    cache.NewTokenCache(Key, opts.TokenTTLMargin),
	}
}

// Tokens 衍生 token 快取
func (c *Client) Tokens() *cache.TokenCache {
	return c.tokens
}

// AccessToken 取得 access_token，已快取時不再交換
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	return c.tokens.Get(ctx, c.exchange)
}

func (c *Client) exchange(ctx context.Context) (string, time.Duration, error) {
	opts := c.Options()
	var resp tokenResponse
	err := c.GetJSON(ctx, provider.OpToken, opts.Timeouts.Token, provider.Request{
		URL: c.tokenURL,
		Query: map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     opts.APIKey,
			"client_secret": c.secretKey,
		},
	}, &resp)
	if err != nil {
		return "", 0, err
	}
	if resp.AccessToken == "" {
		return "", 0, &provider.UpstreamError{
			Provider: Key,
			Op:       provider.OpToken,
			Err:      errors.New("token response has no access_token"),
			Body:     resp.Error + " " + resp.ErrorDescription,
		}
	}
	return resp.AccessToken, time.Duration(resp.ExpiresIn) * time.Second, nil
}

func (c *Client) request(ctx context.Context, messages []ai.Message, stream bool) (provider.Request, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return provider.Request{}, err
	}
	cfg := c.Options().Config
	return provider.Request{
		URL:   c.url + "/" + Endpoint(c.Model()),
		Query: map[string]string{"access_token": token},
		Body: chatRequest{
			Messages:        messages,
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			MaxOutputTokens: cfg.MaxTokens,
			Stream:          stream,
		},
	}, nil
}

// Chat 同步對話
func (c *Client) Chat(ctx context.Context, messages []ai.Message) (*ai.ChatResult, error) {
	if err := ai.CheckMessages(messages); err != nil {
		return nil, err
	}

	req, err := c.request(ctx, messages, false)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := c.PostJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	if err := c.checkError(provider.OpChat, &resp); err != nil {
		return nil, err
	}
	return ai.NewChatResult(resp.Result, c.Model(), resp.Usage), nil
}

// StreamChat 串流對話，is_end 為 true 的事件之後結束
func (c *Client) StreamChat(ctx context.Context, messages []ai.Message, emit provider.EmitFunc) error {
	if err := ai.CheckMessages(messages); err != nil {
		return err
	}

	req, err := c.request(ctx, messages, true)
	if err != nil {
		return err
	}

	return provider.StreamJSON(ctx, c.Base, req, provider.PrefixDataSpace, func(event *chatResponse) (string, bool, error) {
		if err := c.checkError(provider.OpStream, event); err != nil {
			return "", true, err
		}
		return event.Result, event.IsEnd, nil
	}, emit)
}

// checkError 千帆以 200 回傳業務錯誤；token 失效時丟棄快取，下次呼叫重新交換
func (c *Client) checkError(op string, resp *chatResponse) error {
	if resp.ErrorCode == 0 {
		return nil
	}
	if resp.ErrorCode == errCodeTokenInvalid || resp.ErrorCode == errCodeTokenExpired {
		c.tokens.Invalidate()
	}
	return provider.NewPayloadError(Key, op, fmt.Errorf("error_code %d", resp.ErrorCode), []byte(resp.ErrorMsg))
}
