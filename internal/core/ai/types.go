package ai

// Role 對話角色
type Role = string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 對話消息，順序即對話歷史
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResult 非串流對話結果
type ChatResult struct {
	Content string         `json:"content"`
	Model   string         `json:"model"`
	Usage   map[string]any `json:"usage"`
}

// NewChatResult 建立結果，usage 為 nil 時回傳空物件
func NewChatResult(content, model string, usage map[string]any) *ChatResult {
	if usage == nil {
		usage = map[string]any{}
	}
	return &ChatResult{
		Content: content,
		Model:   model,
		Usage:   usage,
	}
}

// 生成參數預設值
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 2000
)

// GenerationConfig 單次請求的生成參數
type GenerationConfig struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// ConfigBag 呼叫端傳入的原始設定，欄位皆為可選
type ConfigBag struct {
	Model               string   `json:"model,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
	TopP                *float64 `json:"top_p,omitempty"`
	MaxTokens           *int     `json:"max_tokens,omitempty"`
	SecondaryCredential string   `json:"secondary_credential,omitempty"`
	SecretKey           string   `json:"secret_key,omitempty"`
}

// Secondary 取得次要憑證，secret_key 為相容欄位
func (b ConfigBag) Secondary() string {
	if b.SecondaryCredential != "" {
		return b.SecondaryCredential
	}
	return b.SecretKey
}

// Resolve 以預設模型補齊設定並檢查範圍
func (b ConfigBag) Resolve(defaultModel string) (GenerationConfig, error) {
	cfg := GenerationConfig{
		Model:       b.Model,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		MaxTokens:   DefaultMaxTokens,
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if b.Temperature != nil {
		cfg.Temperature = *b.Temperature
	}
	if b.TopP != nil {
		cfg.TopP = *b.TopP
	}
	if b.MaxTokens != nil {
		cfg.MaxTokens = *b.MaxTokens
	}
	if err := cfg.Validate(); err != nil {
		return GenerationConfig{}, err
	}
	return cfg, nil
}
