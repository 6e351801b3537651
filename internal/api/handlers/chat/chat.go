package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/registry"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/gateway"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/infrastructure/config"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

// Handler 對話相關處理器
type Handler struct {
	dispatcher *gateway.Dispatcher
	app        config.AppConfig
}

// NewHandler 創建處理器
func NewHandler(dispatcher *gateway.Dispatcher, app config.AppConfig) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		app:        app,
	}
}

// requestBody 請求體；model_type / api_key 為舊版欄位名稱
type requestBody struct {
	Provider   string          `json:"provider"`
	ModelType  string          `json:"model_type"`
	Credential string          `json:"credential"`
	APIKey     string          `json:"api_key"`
	Messages   json.RawMessage `json:"messages"`
	Config     ai.ConfigBag    `json:"config"`
	Stream     bool            `json:"stream"`
}

// ChatResponse 同步對話響應
type ChatResponse struct {
	Content string         `json:"content"`
	Model   string         `json:"model"`
	Usage   map[string]any `json:"usage"`
}

func (h *Handler) bind(c *gin.Context) (*gateway.ChatRequest, bool) {
	var body requestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteError(c, common.ErrRequestTooLarge)
			return nil, false
		}
		common.WriteError(c, common.ErrInvalidRequest.Wrap(common.NewValidationError("request body must be a valid JSON object")))
		return nil, false
	}

	req := &gateway.ChatRequest{
		Provider:   firstNonEmpty(body.Provider, body.ModelType),
		Credential: firstNonEmpty(body.Credential, body.APIKey),
		Messages:   body.Messages,
		Config:     body.Config,
		Stream:     body.Stream,
	}
	if req.Provider == "" {
		common.WriteError(c, common.ErrInvalidRequest.Wrap(common.NewValidationError("provider is required")))
		return nil, false
	}
	if req.Credential == "" {
		common.WriteError(c, common.ErrInvalidRequest.Wrap(common.NewValidationError("credential is required")))
		return nil, false
	}

	c.Request = c.Request.WithContext(gateway.WithRequestID(c.Request.Context(), requestid.Get(c)))
	return req, true
}

// HandleChat 同步或串流對話
func (h *Handler) HandleChat(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	if req.Stream {
		h.stream(c, req)
		return
	}

	result, err := h.dispatcher.Chat(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		Content: result.Content,
		Model:   result.Model,
		Usage:   result.Usage,
	})
}

func (h *Handler) stream(c *gin.Context, req *gateway.ChatRequest) {
	sink := newSSESink(c)
	err := h.dispatcher.StreamChat(c.Request.Context(), req, sink)
	if err == nil {
		return
	}
	if !sink.started {
		writeError(c, err)
		return
	}
	// 已開始輸出時只能中止，原因已由 dispatcher 記錄
	c.Abort()
}

// HandleTestConnection 測試供應商連線與憑證
func (h *Handler) HandleTestConnection(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	model, err := h.dispatcher.TestConnection(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "連接成功",
		"model":   model,
	})
}

// HandleModels 模型目錄
func (h *Handler) HandleModels(c *gin.Context) {
	c.JSON(http.StatusOK, registry.Catalog())
}

// HandleRoot 服務資訊
func (h *Handler) HandleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":          h.app.Name,
		"version":          h.app.Version,
		"supported_models": registry.Keys(),
	})
}

func writeError(c *gin.Context, err error) {
	var ce *common.CustomError
	if !errors.As(err, &ce) {
		common.LogError("Unclassified handler error", zap.Error(err))
		ce = common.ErrInternalError
	}
	common.WriteError(c, ce)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
