package qwen_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/qwen"
)

func newClient(t *testing.T, url string) provider.Provider {
	t.Helper()
	cfg, err := ai.ConfigBag{}.Resolve(qwen.DefaultModel)
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	return qwen.New(provider.Options{APIKey: "sk-test", Config: cfg, BaseURL: url})
}

func TestChat(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"output":{"choices":[{"message":{"content":"hi there"}}]}}`)
	}))
	defer srv.Close()

	res, err := newClient(t, srv.URL).Chat(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hello"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Content != "hi there" || res.Model != "qwen-turbo" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Usage == nil || len(res.Usage) != 0 {
		t.Fatalf("expected empty usage, got %v", res.Usage)
	}

	if captured["model"] != "qwen-turbo" {
		t.Fatalf("unexpected model in request: %v", captured["model"])
	}
	params, _ := captured["parameters"].(map[string]any)
	if params["result_format"] != "message" || params["max_tokens"] != float64(ai.DefaultMaxTokens) {
		t.Fatalf("unexpected parameters: %v", params)
	}
	if _, ok := params["incremental_output"]; ok {
		t.Fatal("incremental_output should be omitted for non-streaming calls")
	}
	input, _ := captured["input"].(map[string]any)
	msgs, _ := input["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("unexpected messages: %v", input["messages"])
	}
}

func TestChatPassesUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"output":{"choices":[{"message":{"content":"ok"}}]},"usage":{"input_tokens":3,"output_tokens":1}}`)
	}))
	defer srv.Close()

	res, err := newClient(t, srv.URL).Chat(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hello"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Usage["input_tokens"] != float64(3) {
		t.Fatalf("unexpected usage: %v", res.Usage)
	}
}

func TestChatUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"InvalidApiKey"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Chat(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hello"}})
	var ue *provider.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if ue.StatusCode != http.StatusUnauthorized || !strings.Contains(ue.Body, "InvalidApiKey") {
		t.Fatalf("unexpected upstream error: %+v", ue)
	}
}

func TestChatMissingChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"output":{}}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Chat(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hello"}})
	if !provider.IsUpstreamError(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestInvalidMessagesSkipNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	if _, err := c.Chat(context.Background(), nil); err == nil {
		t.Fatal("expected validation error")
	}
	err := c.StreamChat(context.Background(), []ai.Message{{Role: "robot", Content: "x"}}, func(string) error { return nil })
	if err == nil {
		t.Fatal("expected validation error")
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no upstream calls, got %d", hits)
	}
}

func TestStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-DashScope-SSE") != "enable" {
			t.Errorf("missing X-DashScope-SSE header")
		}
		var req struct {
			Parameters struct {
				IncrementalOutput bool `json:"incremental_output"`
			} `json:"parameters"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Parameters.IncrementalOutput {
			t.Errorf("expected incremental_output")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range []string{
			`id:1`,
			`event:result`,
			`data:{"output":{"choices":[{"message":{"content":"a"}}]}}`,
			``,
			`data:{not json`,
			``,
			`data:{"output":{"choices":[{"message":{"content":""}}]}}`,
			``,
			`data:{"output":{"choices":[{"message":{"content":"b"}}]}}`,
			``,
			`data:{"output":{"choices":[{"message":{"content":"c"}}]}}`,
			``,
		} {
			_, _ = io.WriteString(w, line+"\n")
		}
	}))
	defer srv.Close()

	var got []string
	err := newClient(t, srv.URL).StreamChat(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hello"}}, func(fragment string) error {
		got = append(got, fragment)
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if strings.Join(got, "|") != "a|b|c" {
		t.Fatalf("unexpected fragments: %v", got)
	}
}

func TestStreamChatUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	called := false
	err := newClient(t, srv.URL).StreamChat(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hello"}}, func(string) error {
		called = true
		return nil
	})
	if !provider.IsUpstreamError(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if called {
		t.Fatal("emit should not be called on upstream failure")
	}
}

func TestStreamChatErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data:{\"output\":{\"choices\":[{\"message\":{\"content\":\"a\"}}]}}\n\n")
		_, _ = io.WriteString(w, "event:error\ndata:{\"code\":\"DataInspectionFailed\",\"message\":\"Output data may contain inappropriate content.\"}\n\n")
	}))
	defer srv.Close()

	var got []string
	err := newClient(t, srv.URL).StreamChat(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hello"}}, func(fragment string) error {
		got = append(got, fragment)
		return nil
	})
	var ue *provider.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !strings.Contains(ue.Error(), "DataInspectionFailed") {
		t.Fatalf("error code should be kept for logs: %v", ue)
	}
	if strings.Join(got, "") != "a" {
		t.Fatalf("unexpected fragments: %v", got)
	}
}

func TestStreamChatJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, `{"code":"InvalidParameter","message":"Range of input length should be [1, 6000]"}`)
	}))
	defer srv.Close()

	called := false
	err := newClient(t, srv.URL).StreamChat(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hello"}}, func(string) error {
		called = true
		return nil
	})
	if !provider.IsUpstreamError(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if called {
		t.Fatal("emit should not be called for an error body")
	}
}

func TestChatErrorCodeWithSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"Throttling","message":"Requests rate limit exceeded"}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Chat(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "hello"}})
	if !provider.IsUpstreamError(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
