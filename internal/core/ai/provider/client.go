package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

// 所有適配器共用連線池；適配器本身每個請求一個
var sharedTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// Request 一次上游呼叫
type Request struct {
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    interface{}
}

// Base 適配器共用的 HTTP 呼叫邏輯
type Base struct {
	key      string
	apiKey   string
	opts     Options
	client   *resty.Client
	timeouts Timeouts
}

// NewBase 建立共用呼叫器；逾時由每次呼叫的 context 控制，不做重試
func NewBase(providerKey string, opts Options) *Base {
	opts = opts.WithDefaults()
	client := resty.NewWithClient(&http.Client{Transport: sharedTransport}).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0)

	return &Base{
		key:      providerKey,
		apiKey:   opts.APIKey,
		opts:     opts,
		client:   client,
		timeouts: opts.Timeouts,
	}
}

// Name 供應商代號
func (b *Base) Name() string {
	return b.key
}

// Model 模型名稱
func (b *Base) Model() string {
	return b.opts.Config.Model
}

// Options 建立時的參數
func (b *Base) Options() Options {
	return b.opts
}

// BearerHeaders 標準 Bearer 認證頭
func (b *Base) BearerHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + b.apiKey,
	}
}

// GetJSON 以 GET 呼叫並解析 JSON，用於 token 交換
func (b *Base) GetJSON(ctx context.Context, op string, timeout time.Duration, req Request, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		SetQueryParams(req.Query).
		Get(req.URL)
	return b.decode(op, resp, err, out)
}

// PostJSON 發送非串流請求並解析 JSON 回應
func (b *Base) PostJSON(ctx context.Context, req Request, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeouts.Chat)
	defer cancel()

	start := time.Now()
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		SetQueryParams(req.Query).
		SetBody(req.Body).
		Post(req.URL)
	err = b.decode(OpChat, resp, err, out)

	common.LogDebug("Upstream chat call finished",
		zap.String("provider", b.key),
		zap.String("model", b.Model()),
		zap.Duration("latency", time.Since(start)),
		zap.Bool("ok", err == nil),
	)
	return err
}

func (b *Base) decode(op string, resp *resty.Response, err error, out interface{}) error {
	if err != nil {
		return NewTransportError(b.key, op, err)
	}
	if !resp.IsSuccess() {
		return NewStatusError(b.key, op, resp.StatusCode(), resp.Body())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return NewPayloadError(b.key, op, fmt.Errorf("decode response: %w", err), resp.Body())
	}
	return nil
}

// Stream 已開啟的上游串流
type Stream struct {
	Body   io.ReadCloser
	Header http.Header
	cancel context.CancelFunc
}

// IsJSON 上游以單一 JSON 文件回應，而非事件流
func (s *Stream) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(s.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// Close 關閉 body 並釋放逾時 context
func (s *Stream) Close() error {
	err := s.Body.Close()
	s.cancel()
	return err
}

// OpenStream 發送串流請求，呼叫端負責 Close
func (b *Base) OpenStream(ctx context.Context, req Request) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeouts.Stream)

	headers := map[string]string{"Accept": "text/event-stream"}
	for k, v := range req.Headers {
		headers[k] = v
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParams(req.Query).
		SetBody(req.Body).
		SetDoNotParseResponse(true).
		Post(req.URL)
	if err != nil {
		cancel()
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, NewTransportError(b.key, OpStream, err)
	}

	body := resp.RawBody()
	if !resp.IsSuccess() {
		raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		body.Close()
		cancel()
		return nil, NewStatusError(b.key, OpStream, resp.StatusCode(), raw)
	}
	return &Stream{Body: body, Header: resp.Header(), cancel: cancel}, nil
}
