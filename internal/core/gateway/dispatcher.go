package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/registry"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

// TestMessage 連接測試使用的固定訊息
const TestMessage = "你好"

// ChatRequest 閘道收到的對話請求
type ChatRequest struct {
	Provider   string
	Credential string
	Messages   json.RawMessage
	Config     ai.ConfigBag
	Stream     bool
}

// Resolver 依供應商代號建立適配器
type Resolver interface {
	Resolve(key, credential string, bag ai.ConfigBag) (provider.Provider, error)
}

// StreamSink 串流輸出端
//
// Start 之前發生的錯誤由呼叫端以一般 JSON 錯誤回應；Start 之後只會出現 Send、Fail、Done。
type StreamSink interface {
	Start() error
	Send(fragment string) error
	Fail(message string) error
	Done() error
}

// Dispatcher 驗證輸入、解析適配器並轉送同步或串流對話
type Dispatcher struct {
	resolver Resolver
}

// NewDispatcher 創建 Dispatcher
func NewDispatcher(resolver Resolver) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
	}
}

type requestIDKey struct{}

// WithRequestID 將請求 ID 放入 context 供日誌使用
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ResolveAdapter 以呼叫端憑證建立新的適配器
func (d *Dispatcher) ResolveAdapter(key, credential string, bag ai.ConfigBag) (provider.Provider, error) {
	p, err := d.resolver.Resolve(key, credential, bag)
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

func (d *Dispatcher) prepare(req *ChatRequest) (provider.Provider, []ai.Message, error) {
	messages, err := ai.ParseConversation(req.Messages)
	if err != nil {
		return nil, nil, classify(err)
	}
	p, err := d.ResolveAdapter(req.Provider, req.Credential, req.Config)
	if err != nil {
		return nil, nil, err
	}
	return p, messages, nil
}

// Chat 同步對話；回傳的錯誤一律為 *common.CustomError，上游細節只寫入日誌
func (d *Dispatcher) Chat(ctx context.Context, req *ChatRequest) (*ai.ChatResult, error) {
	p, messages, err := d.prepare(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := p.Chat(ctx, messages)
	common.LogUpstreamCall(p.Name(), p.Model(), time.Since(start), err, requestID(ctx))
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// StreamChat 將適配器的片段依序轉送給 sink
//
// 中途失敗時輸出一個固定的錯誤事件再輸出結束標記。回傳錯誤表示串流未開始（客戶端錯誤）
// 或 sink 寫入失敗（呼叫端斷線）。
func (d *Dispatcher) StreamChat(ctx context.Context, req *ChatRequest, sink StreamSink) error {
	p, messages, err := d.prepare(req)
	if err != nil {
		return err
	}

	if err := sink.Start(); err != nil {
		return err
	}

	streamID := common.GenerateUUID()
	fields := []zap.Field{
		zap.String("stream_id", streamID),
		zap.String("request_id", requestID(ctx)),
		zap.String("provider", p.Name()),
		zap.String("model", p.Model()),
	}

	start := time.Now()
	fragments := 0
	var sendErr error
	err = p.StreamChat(ctx, messages, func(fragment string) error {
		if err := sink.Send(fragment); err != nil {
			sendErr = err
			return err
		}
		fragments++
		return nil
	})

	fields = append(fields,
		zap.Int("fragments", fragments),
		zap.Duration("latency", time.Since(start)),
	)

	if sendErr != nil || ctx.Err() == context.Canceled {
		common.LogWarn("Stream aborted by client", append(fields, zap.Error(errors.Join(sendErr, ctx.Err())))...)
		if sendErr != nil {
			return sendErr
		}
		return ctx.Err()
	}

	if err != nil {
		common.LogError("Stream chat error", append(fields, zap.Error(err))...)
		if err := sink.Fail(common.StreamErrorMessage); err != nil {
			return err
		}
	} else {
		common.LogInfo("Stream completed", fields...)
	}

	return sink.Done()
}

// TestConnection 以固定訊息進行一次同步對話，回傳模型名稱
func (d *Dispatcher) TestConnection(ctx context.Context, req *ChatRequest) (string, error) {
	p, err := d.ResolveAdapter(req.Provider, req.Credential, req.Config)
	if err != nil {
		return "", err
	}

	start := time.Now()
	result, err := p.Chat(ctx, []ai.Message{{Role: ai.RoleUser, Content: TestMessage}})
	common.LogUpstreamCall(p.Name(), p.Model(), time.Since(start), err, requestID(ctx))
	if err != nil {
		return "", common.ErrConnectionTestFailed.Wrap(err)
	}
	return result.Model, nil
}

// classify 將內部錯誤歸類為對外錯誤
func classify(err error) *common.CustomError {
	var ce *common.CustomError
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, registry.ErrUnsupportedProvider):
		return common.ErrUnsupportedProvider.Wrap(common.NewValidationError(err.Error()))
	case common.IsValidationError(err):
		return common.ErrInvalidRequest.Wrap(err)
	case provider.IsUpstreamError(err):
		return common.ErrUpstreamError.Wrap(err)
	default:
		return common.ErrInternalError.Wrap(err)
	}
}
