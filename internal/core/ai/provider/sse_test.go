package provider_test

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
)

func collect(t *testing.T, input, prefix string) []string {
	t.Helper()
	var got []string
	err := provider.ReadEvents(strings.NewReader(input), prefix, func(payload string) (bool, error) {
		got = append(got, payload)
		return false, nil
	})
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	return got
}

func TestReadEventsStopsAtDone(t *testing.T) {
	input := "data: a\n\ndata: b\n\n: comment\nevent: message\ndata: c\n\ndata: [DONE]\n\ndata: after\n\n"
	got := collect(t, input, provider.PrefixDataSpace)
	if strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("unexpected payloads: %v", got)
	}
}

func TestReadEventsSkipsEmptyPayload(t *testing.T) {
	got := collect(t, "data: \n\ndata: x\n\n", provider.PrefixDataSpace)
	if strings.Join(got, ",") != "x" {
		t.Fatalf("unexpected payloads: %v", got)
	}
}

func TestReadEventsPrefixWidth(t *testing.T) {
	input := "data:{\"n\":1}\ndata: {\"n\":2}\n"

	// 不帶空白的前綴同時接受兩種寫法
	if got := collect(t, input, provider.PrefixData); len(got) != 2 {
		t.Fatalf("expected 2 payloads with %q, got %v", provider.PrefixData, got)
	}
	// 帶空白的前綴只接受 "data: "
	if got := collect(t, input, provider.PrefixDataSpace); len(got) != 1 || got[0] != `{"n":2}` {
		t.Fatalf("expected only spaced payload with %q, got %v", provider.PrefixDataSpace, got)
	}
}

func TestReadEventsCallbackStops(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := provider.ReadEvents(strings.NewReader("data: 1\ndata: 2\ndata: 3\n"), provider.PrefixData, func(string) (bool, error) {
		calls++
		if calls == 2 {
			return false, boom
		}
		return false, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected reading to stop after 2 events, got %d", calls)
	}

	calls = 0
	err = provider.ReadEvents(strings.NewReader("data: 1\ndata: 2\n"), provider.PrefixData, func(string) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("expected done after first event, got calls=%d err=%v", calls, err)
	}
}

func TestUpstreamErrorDoesNotLeakURL(t *testing.T) {
	cause := &url.Error{
		Op:  "Post",
		URL: "https://upstream.example/chat?access_token=secret-token",
		Err: errors.New("connection refused"),
	}
	err := provider.NewTransportError("ernie", provider.OpChat, cause)
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("transport error leaked URL: %v", err)
	}
	if !provider.IsUpstreamError(err) {
		t.Fatal("expected upstream error")
	}
}
