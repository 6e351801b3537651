package ai_test

import (
	"encoding/json"
	"testing"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

func TestParseConversationRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"absent":          ``,
		"null":            `null`,
		"empty list":      `[]`,
		"not a list":      `{"role":"user","content":"hi"}`,
		"string element":  `["hello"]`,
		"null element":    `[null]`,
		"missing role":    `[{"content":"hi"}]`,
		"missing content": `[{"role":"user"}]`,
		"unknown role":    `[{"role":"tool","content":"hi"}]`,
		"numeric content": `[{"role":"user","content":42}]`,
		"second invalid":  `[{"role":"user","content":"hi"},{"role":"bot","content":"yo"}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ai.ParseConversation(json.RawMessage(raw))
			if err == nil {
				t.Fatalf("expected error for %s", raw)
			}
			if !common.IsValidationError(err) {
				t.Fatalf("expected validation error, got %T: %v", err, err)
			}
		})
	}
}

func TestParseConversationKeepsOrder(t *testing.T) {
	raw := `[
		{"role":"system","content":"be brief"},
		{"role":"user","content":"hello"},
		{"role":"assistant","content":""},
		{"role":"user","content":"again"}
	]`
	msgs, err := ai.ParseConversation(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []ai.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: ""},
		{Role: "user", Content: "again"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Fatalf("message %d: expected %+v, got %+v", i, want[i], msgs[i])
		}
	}
}

func TestValidate(t *testing.T) {
	if ai.Validate(nil) {
		t.Fatal("nil conversation should be invalid")
	}
	if ai.Validate([]ai.Message{{Role: "", Content: "hi"}}) {
		t.Fatal("empty role should be invalid")
	}
	if ai.Validate([]ai.Message{{Role: "moderator", Content: "hi"}}) {
		t.Fatal("unknown role should be invalid")
	}
	if !ai.Validate([]ai.Message{{Role: "user", Content: "hi"}}) {
		t.Fatal("single user message should be valid")
	}
}

func TestConfigBagResolve(t *testing.T) {
	cfg, err := ai.ConfigBag{}.Resolve("qwen-turbo")
	if err != nil {
		t.Fatalf("resolve defaults: %v", err)
	}
	if cfg.Model != "qwen-turbo" || cfg.Temperature != ai.DefaultTemperature || cfg.TopP != ai.DefaultTopP || cfg.MaxTokens != ai.DefaultMaxTokens {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	temp, topP, maxTokens := 0.2, 0.5, 128
	cfg, err = ai.ConfigBag{Model: "qwen-max", Temperature: &temp, TopP: &topP, MaxTokens: &maxTokens}.Resolve("qwen-turbo")
	if err != nil {
		t.Fatalf("resolve overrides: %v", err)
	}
	if cfg.Model != "qwen-max" || cfg.Temperature != temp || cfg.TopP != topP || cfg.MaxTokens != maxTokens {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}

	bad := 0
	if _, err := (ai.ConfigBag{MaxTokens: &bad}).Resolve("m"); !common.IsValidationError(err) {
		t.Fatalf("expected validation error for max_tokens=0, got %v", err)
	}
	hot := 3.5
	if _, err := (ai.ConfigBag{Temperature: &hot}).Resolve("m"); !common.IsValidationError(err) {
		t.Fatalf("expected validation error for temperature=3.5, got %v", err)
	}
}

func TestConfigBagSecondary(t *testing.T) {
	if got := (ai.ConfigBag{SecretKey: "legacy"}).Secondary(); got != "legacy" {
		t.Fatalf("expected secret_key fallback, got %q", got)
	}
	if got := (ai.ConfigBag{SecretKey: "legacy", SecondaryCredential: "new"}).Secondary(); got != "new" {
		t.Fatalf("expected secondary_credential to win, got %q", got)
	}
}

func TestNewChatResultUsageNeverNil(t *testing.T) {
	res := ai.NewChatResult("hi", "m", nil)
	if res.Usage == nil {
		t.Fatal("usage should default to an empty map")
	}
	data, _ := json.Marshal(res)
	if string(data) != `{"content":"hi","model":"m","usage":{}}` {
		t.Fatalf("unexpected JSON: %s", data)
	}
}
