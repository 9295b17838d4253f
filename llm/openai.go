package llm

import "context"

// openAIProvider implements Provider for the OpenAI API, used by ragdag
// stores configured with llm.provider=openai. (embedding.provider=openai is
// served by embed.APIProvider, not by this type.)
//
// Supported embedding models:
//
//	text-embedding-3-small  (1536 dim, $0.02/M tokens)  — default
//	text-embedding-3-large  (3072 dim, $0.13/M tokens)
//	text-embedding-ada-002  (1536 dim, $0.10/M tokens)
//
// API key: RAGDAG_LLM_API_KEY, falling back to OPENAI_API_KEY.
type openAIProvider struct {
	base openAICompatClient
}

// NewOpenAI creates an embedding/chat provider backed by OpenAI.
func NewOpenAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	return &openAIProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *openAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}
