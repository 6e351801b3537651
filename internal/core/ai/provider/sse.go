package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

// DoneMarker 上游串流結束標記
const DoneMarker = "[DONE]"

// 事件前綴
const (
	PrefixData      = "data:"
	PrefixDataSpace = "data: "
)

// ReadEvents 逐行讀取 SSE，將 prefix 之後的 payload 交給 fn
//
// payload 為 [DONE] 時結束；空 payload 略過。fn 回傳 done=true 時提前結束。
func ReadEvents(r io.Reader, prefix string, fn func(payload string) (done bool, err error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		payload := strings.TrimSpace(line[len(prefix):])
		if payload == DoneMarker {
			return nil
		}
		if payload == "" {
			continue
		}
		done, err := fn(payload)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return scanner.Err()
}

// maxDocumentBody 非串流 JSON 回應的讀取上限
const maxDocumentBody = 2 * 1024 * 1024

// emitError 標記錯誤來自 emit，而非上游
type emitError struct {
	err error
}

func (e *emitError) Error() string { return e.err.Error() }
func (e *emitError) Unwrap() error { return e.err }

// Extractor 從一個上游事件取出片段；err 非 nil 表示事件本身是上游回報的錯誤
type Extractor[T any] func(event *T) (text string, end bool, err error)

// StreamJSON 開啟串流並以 extract 從每個 JSON 事件取出片段
//
// 單一事件 JSON 格式錯誤時略過；空片段不輸出；extract 回傳 end=true 時輸出片段後結束。
// 上游以 application/json 回應時視為單一事件處理，用於承載錯誤碼的 200 回應。
func StreamJSON[T any](ctx context.Context, b *Base, req Request, prefix string, extract Extractor[T], emit EmitFunc) error {
	stream, err := b.OpenStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	if stream.IsJSON() {
		return decodeDocument(b.key, stream.Body, extract, emit)
	}

	err = ReadEvents(stream.Body, prefix, func(payload string) (bool, error) {
		var event T
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			common.LogDebug("Skipping malformed stream event",
				zap.String("provider", b.key),
				zap.Error(err),
			)
			return false, nil
		}
		text, end, err := extract(&event)
		if err != nil {
			return true, err
		}
		if text != "" {
			if err := emit(text); err != nil {
				return true, &emitError{err: err}
			}
		}
		return end, nil
	})

	var ee *emitError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ee):
		return ee.err
	case IsUpstreamError(err):
		return err
	default:
		return NewTransportError(b.key, OpStream, err)
	}
}

func decodeDocument[T any](providerKey string, r io.Reader, extract Extractor[T], emit EmitFunc) error {
	raw, err := io.ReadAll(io.LimitReader(r, maxDocumentBody))
	if err != nil {
		return NewTransportError(providerKey, OpStream, err)
	}

	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return NewPayloadError(providerKey, OpStream, fmt.Errorf("decode response: %w", err), raw)
	}
	text, _, err := extract(&doc)
	if err != nil {
		return err
	}
	if text != "" {
		return emit(text)
	}
	return nil
}
