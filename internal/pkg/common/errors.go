package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅限客戶端錯誤）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 對外錯誤信息
	Err     error  // 原始錯誤，只寫入日誌
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Response 轉為對外響應，不包含原始錯誤
func (e *CustomError) Response() ErrorResponse {
	resp := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
	}
	// 只有呼叫端自己的錯誤才回傳細節
	if e.Status >= 400 && e.Status < 500 && e.Err != nil && IsValidationError(e.Err) {
		resp.Details = e.Err.Error()
	}
	return resp
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap 以預定義錯誤為模板附加原始錯誤
func (e *CustomError) Wrap(err error) *CustomError {
	return NewError(e.Code, e.Message, e.Status, err)
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest      = "INVALID_REQUEST"      // 400
	ErrCodeUnsupportedProvider = "UNSUPPORTED_PROVIDER" // 400
	ErrCodeNotFound            = "NOT_FOUND"            // 404
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"    // 429
	ErrCodeRequestTooLarge     = "REQUEST_TOO_LARGE"    // 413

	// 服務器錯誤 (5xx)
	ErrCodeInternalError        = "INTERNAL_ERROR"         // 500
	ErrCodeUpstreamError        = "UPSTREAM_ERROR"         // 502
	ErrCodeConnectionTestFailed = "CONNECTION_TEST_FAILED" // 502
	ErrCodeServiceUnavailable   = "SERVICE_UNAVAILABLE"    // 503
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest      = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrUnsupportedProvider = NewError(ErrCodeUnsupportedProvider, "不支持的模型類型", http.StatusBadRequest, nil)
	ErrNotFound            = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrTooManyRequests     = NewError(ErrCodeTooManyRequests, "請求過於頻繁，請稍後再試", http.StatusTooManyRequests, nil)
	ErrRequestTooLarge     = NewError(ErrCodeRequestTooLarge, "請求體過大", http.StatusRequestEntityTooLarge, nil)

	// 服務器錯誤
	ErrInternalError        = NewError(ErrCodeInternalError, "服務器內部錯誤，請稍後重試", http.StatusInternalServerError, nil)
	ErrUpstreamError        = NewError(ErrCodeUpstreamError, "模型服務調用失敗，請稍後重試", http.StatusBadGateway, nil)
	ErrConnectionTestFailed = NewError(ErrCodeConnectionTestFailed, "連接測試失敗，請檢查API密鑰和網絡連接", http.StatusBadGateway, nil)
	ErrServiceUnavailable   = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
)

// StreamErrorMessage 串流中途失敗時對外的固定訊息
const StreamErrorMessage = "生成回覆時發生錯誤"
