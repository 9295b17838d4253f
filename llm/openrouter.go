package llm

import "context"

// openRouterProvider implements Provider for OpenRouter, selected via
// llm.provider=openrouter to reach any chat model OpenRouter proxies
// through its single OpenAI-compatible endpoint.
//
// API key: RAGDAG_LLM_API_KEY, falling back to OPENROUTER_API_KEY.
type openRouterProvider struct {
	base openAICompatClient
}

// NewOpenRouter creates a chat provider backed by OpenRouter.
func NewOpenRouter(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api"
	}
	return &openRouterProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openRouterProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *openRouterProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}
