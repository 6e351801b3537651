package provider

import (
	"errors"
	"fmt"
	"net/url"
)

// 上游操作
const (
	OpChat   = "chat"
	OpStream = "stream"
	OpToken  = "token"
)

const maxErrorBody = 2048

// UpstreamError 上游呼叫失敗（非 2xx、網路錯誤或無法解析的回應）
//
// Body 只用於日誌，不可回傳給呼叫端。
type UpstreamError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s %s upstream error", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstreamError 檢查是否為上游錯誤
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// NewStatusError 非 2xx 狀態
func NewStatusError(providerKey, op string, status int, body []byte) *UpstreamError {
	return &UpstreamError{
		Provider:   providerKey,
		Op:         op,
		StatusCode: status,
		Body:       truncate(body),
	}
}

// NewTransportError 網路層錯誤，移除 URL 避免 query 中的 token 進入日誌
func NewTransportError(providerKey, op string, err error) *UpstreamError {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return &UpstreamError{
		Provider: providerKey,
		Op:       op,
		Err:      err,
	}
}

// NewPayloadError 回應內容無法解析或缺少欄位
func NewPayloadError(providerKey, op string, err error, body []byte) *UpstreamError {
	return &UpstreamError{
		Provider: providerKey,
		Op:       op,
		Err:      err,
		Body:     truncate(body),
	}
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "...(truncated)"
	}
	return string(body)
}
