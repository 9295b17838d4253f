package llm

import "context"

// groqProvider implements Provider for Groq's inference API, selected via
// llm.provider=groq. Groq uses the OpenAI-compatible API format and
// provides fast inference for open-source chat models (Llama, Mixtral,
// Gemma, etc.) used to answer ragdag's assembled context.
//
// API key: RAGDAG_LLM_API_KEY, falling back to GROQ_API_KEY.
type groqProvider struct {
	base openAICompatClient
}

// NewGroq creates a chat provider backed by Groq.
func NewGroq(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	return &groqProvider{base: newOpenAICompatClient(cfg)}
}

func (p *groqProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *groqProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}
