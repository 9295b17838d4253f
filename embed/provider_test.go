package embed

import (
	"context"
	"testing"
)

func TestNewProviderNone(t *testing.T) {
	p, err := NewProvider(Config{Provider: "none"})
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelName() != "none" {
		t.Errorf("got model %q", p.ModelName())
	}
	if _, err := p.Embed(context.Background(), []string{"x"}); err == nil {
		t.Errorf("expected none provider to error on Embed")
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "bogus"}); err == nil {
		t.Errorf("expected error for unknown provider")
	}
}

func TestNewProviderLocalRequiresEnvPath(t *testing.T) {
	t.Setenv("RAGDAG_EMBEDDING_MODEL_PATH", "")
	if _, err := NewProvider(Config{Provider: "local"}); err == nil {
		t.Errorf("expected error when RAGDAG_EMBEDDING_MODEL_PATH unset")
	}
}

func TestAPIProviderRequiresCredentials(t *testing.T) {
	t.Setenv("RAGDAG_EMBEDDING_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	p, err := NewProvider(Config{Provider: "openai", Model: "text-embedding-3-small", Dims: 4})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Embed(context.Background(), []string{"hi"}); err == nil {
		t.Errorf("expected credential error")
	}
}
