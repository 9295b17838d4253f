package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Provider is the embedding capability: a fixed-dimension vector producer.
// Unlike llm.Provider, credentials are always sourced from the process
// environment, never from the store's .config file.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// Config configures an embedding provider.
type Config struct {
	Provider string // none, openai, local
	Model    string
	BaseURL  string
	Dims     int
}

// NewProvider builds a Provider from cfg. The none provider is always
// available and requires no credentials. api and local providers read
// their credentials from environment variables, never cfg, per the
// capability contract.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "none":
		return NoneProvider{}, nil
	case "openai", "api":
		apiKey := os.Getenv("RAGDAG_EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = os.Getenv("RAGDAG_EMBEDDING_BASE_URL")
		}
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		return &APIProvider{
			model:   cfg.Model,
			dims:    cfg.Dims,
			baseURL: baseURL,
			apiKey:  apiKey,
			client:  &http.Client{Timeout: 60 * time.Second},
		}, nil
	case "local":
		path := os.Getenv("RAGDAG_EMBEDDING_MODEL_PATH")
		if path == "" {
			return nil, fmt.Errorf("embed: RAGDAG_EMBEDDING_MODEL_PATH not set for local provider")
		}
		return NewLocalProvider(path, cfg.Dims, cfg.Model), nil
	default:
		return nil, fmt.Errorf("embed: unknown embedding provider %q", cfg.Provider)
	}
}

// NoneProvider is the sentinel "no embedding capability" provider. ingest
// skips embedding silently when this is configured, and hybrid search
// degrades to keyword.
type NoneProvider struct{}

func (NoneProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("embed: embedding provider is none")
}
func (NoneProvider) Dimensions() int    { return 0 }
func (NoneProvider) ModelName() string  { return "none" }

// APIProvider calls an OpenAI-compatible /v1/embeddings endpoint. Each Embed
// call makes a single request; a failed request is not retried.
type APIProvider struct {
	model   string
	dims    int
	baseURL string
	apiKey  string
	client  *http.Client
}

func (p *APIProvider) Dimensions() int   { return p.dims }
func (p *APIProvider) ModelName() string { return p.model }

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (p *APIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("embed: no API credentials in environment for embedding provider")
	}

	body, err := json.Marshal(embeddingRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embed: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("embed: %w", ctx.Err())
		}
		return nil, fmt.Errorf("embed: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embed: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: API error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("embed: decoding response: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	return vectors, nil
}

// LocalProvider is a stub for an in-process local model. Construction does
// not check the model file; Embed reports a missing model file and otherwise
// always fails, because no inference is implemented here.
type LocalProvider struct {
	path  string
	dims  int
	model string
}

// NewLocalProvider binds a local embedding model file path.
func NewLocalProvider(path string, dims int, model string) *LocalProvider {
	return &LocalProvider{path: path, dims: dims, model: model}
}

func (p *LocalProvider) Dimensions() int   { return p.dims }
func (p *LocalProvider) ModelName() string { return p.model }

func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if _, err := os.Stat(p.path); err != nil {
		return nil, fmt.Errorf("embed: local model file %s: %w", p.path, err)
	}
	return nil, fmt.Errorf("embed: local in-process inference is not available in this build")
}
