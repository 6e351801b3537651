package common_test

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := common.Logger
	common.Logger = zap.New(core)
	t.Cleanup(func() { common.Logger = prev })
	return logs
}

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":                    "****",
		"short":               "****",
		"sk-1234567890abcdef": "sk-1...cdef",
		"abcdefghi":           "abcd...fghi",
	}
	for in, want := range cases {
		if got := common.MaskSecret(in); got != want {
			t.Errorf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLogRedactsSecretFields(t *testing.T) {
	logs := observe(t)

	common.LogWarn("upstream rejected",
		zap.String("api_key", "sk-1234567890abcdef"),
		zap.String("access_token", "24.abcdefghijklmnop"),
		zap.String("provider", "qwen"),
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["api_key"] != "sk-1...cdef" {
		t.Errorf("api_key not masked: %v", fields["api_key"])
	}
	if fields["access_token"] != "24.a...mnop" {
		t.Errorf("access_token not masked: %v", fields["access_token"])
	}
	if fields["provider"] != "qwen" {
		t.Errorf("provider should be untouched: %v", fields["provider"])
	}
}

func TestLogUpstreamCall(t *testing.T) {
	logs := observe(t)

	common.LogUpstreamCall("glm", "glm-4", time.Second, nil, "req-1")
	common.LogUpstreamCall("glm", "glm-4", time.Second, errors.New("status 500"), "req-2")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("unexpected levels: %v %v", entries[0].Level, entries[1].Level)
	}
	if entries[1].ContextMap()["request_id"] != "req-2" {
		t.Fatalf("missing request id: %v", entries[1].ContextMap())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := common.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
