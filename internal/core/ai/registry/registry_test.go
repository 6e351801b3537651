package registry_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/registry"
	"github.com/sooogooo/ebooks-chemicalpeel/internal/pkg/common"
)

func newRegistry() *registry.Registry {
	return registry.New(nil, provider.DefaultTimeouts, 5*time.Minute)
}

func TestResolveReturnsDistinctTypes(t *testing.T) {
	reg := newRegistry()
	seen := map[string]string{}

	for _, key := range registry.Keys() {
		p, err := reg.Resolve(key, "cred", ai.ConfigBag{SecondaryCredential: "secret"})
		if err != nil {
			t.Fatalf("resolve %s: %v", key, err)
		}
		if p.Name() != key {
			t.Errorf("adapter for %s reports name %q", key, p.Name())
		}
		typ := fmt.Sprintf("%T", p)
		if other, dup := seen[typ]; dup {
			t.Errorf("%s and %s share adapter type %s", key, other, typ)
		}
		seen[typ] = key
	}

	if len(seen) != 6 {
		t.Fatalf("expected 6 providers, got %d", len(seen))
	}
}

func TestResolveDefaultModel(t *testing.T) {
	reg := newRegistry()
	for _, key := range registry.Keys() {
		entry, err := registry.Lookup(key)
		if err != nil {
			t.Fatalf("lookup %s: %v", key, err)
		}
		p, err := reg.Resolve(key, "cred", ai.ConfigBag{})
		if err != nil {
			t.Fatalf("resolve %s: %v", key, err)
		}
		if p.Model() != entry.DefaultModel {
			t.Errorf("%s: expected default model %q, got %q", key, entry.DefaultModel, p.Model())
		}
	}

	p, err := reg.Resolve("qwen", "cred", ai.ConfigBag{Model: "qwen-max"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Model() != "qwen-max" {
		t.Fatalf("expected model override, got %q", p.Model())
	}
}

func TestResolveUnsupported(t *testing.T) {
	for _, key := range []string{"", "openai", "QWEN"} {
		_, err := newRegistry().Resolve(key, "cred", ai.ConfigBag{})
		if !errors.Is(err, registry.ErrUnsupportedProvider) {
			t.Errorf("key %q: expected ErrUnsupportedProvider, got %v", key, err)
		}
	}
}

func TestResolveInvalidConfig(t *testing.T) {
	topP := 0.0
	_, err := newRegistry().Resolve("glm", "cred", ai.ConfigBag{TopP: &topP})
	if !common.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCatalog(t *testing.T) {
	catalog := registry.Catalog()
	if len(catalog) != len(registry.Keys()) {
		t.Fatalf("catalog has %d entries, expected %d", len(catalog), len(registry.Keys()))
	}
	for key, entry := range catalog {
		found := false
		for _, m := range entry.Models {
			if m == entry.Default {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: default model %q is not in its model list", key, entry.Default)
		}
	}

	// 回傳值為副本
	catalog["qwen"].Models[0] = "mutated"
	if registry.Catalog()["qwen"].Models[0] == "mutated" {
		t.Fatal("catalog should not expose internal slices")
	}
}
