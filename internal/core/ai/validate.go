package ai

import (
	"encoding/json"
	"fmt"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

var validRoles = map[string]bool{
	RoleSystem:    true,
	RoleUser:      true,
	RoleAssistant: true,
}

// Validate 檢查對話格式，不合法時回傳 false
func Validate(messages []Message) bool {
	return CheckMessages(messages) == nil
}

// CheckMessages 檢查對話格式並回傳原因
func CheckMessages(messages []Message) error {
	if len(messages) == 0 {
		return common.NewValidationError("messages must be a non-empty list")
	}
	for i, msg := range messages {
		if !validRoles[msg.Role] {
			return common.NewValidationError(fmt.Sprintf("messages[%d]: invalid role %q", i, msg.Role))
		}
	}
	return nil
}

// ParseConversation 從原始 JSON 解析對話，區分欄位缺失與空字串
func ParseConversation(raw json.RawMessage) ([]Message, error) {
	var items []json.RawMessage
	if len(raw) == 0 || common.ParseJSONBytes(raw, &items) != nil {
		return nil, common.NewValidationError("messages must be a list")
	}
	if len(items) == 0 {
		return nil, common.NewValidationError("messages must be a non-empty list")
	}

	messages := make([]Message, 0, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		if err := common.ParseJSONBytes(item, &fields); err != nil || fields == nil {
			return nil, common.NewValidationError(fmt.Sprintf("messages[%d] must be an object", i))
		}

		var msg Message
		for _, key := range []string{"role", "content"} {
			value, ok := fields[key]
			if !ok {
				return nil, common.NewValidationError(fmt.Sprintf("messages[%d] is missing %q", i, key))
			}
			target := &msg.Role
			if key == "content" {
				target = &msg.Content
			}
			if err := json.Unmarshal(value, target); err != nil {
				return nil, common.NewValidationError(fmt.Sprintf("messages[%d].%s must be a string", i, key))
			}
		}
		messages = append(messages, msg)
	}

	if err := CheckMessages(messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Validate 檢查生成參數範圍
func (c GenerationConfig) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return common.NewValidationError("temperature must be within [0, 2]")
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return common.NewValidationError("top_p must be within (0, 1]")
	}
	if c.MaxTokens <= 0 {
		return common.NewValidationError("max_tokens must be a positive integer")
	}
	return nil
}
