package compat

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenEstimator produces an approximate token count for a piece of text.
// The facade builds one from general.token_estimator (ApproxEstimator unless
// that key is "tiktoken") and the ask pipeline's budget loop uses it, so with
// the default setting context assembly follows the words*13/10 formula in
// EstimateTokens.
type TokenEstimator interface {
	Estimate(text string) int
}

// ApproxEstimator implements TokenEstimator using the words*13/10 formula.
type ApproxEstimator struct{}

// Estimate returns EstimateTokens(text).
func (ApproxEstimator) Estimate(text string) int { return EstimateTokens(text) }

// TiktokenEstimator implements TokenEstimator using a real BPE tokenizer.
// It is selected via the general.token_estimator = tiktoken config key.
type TiktokenEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
	model string
}

// NewTiktokenEstimator returns an estimator backed by the given model's
// encoding (e.g. "gpt-4o-mini"). The encoding is loaded lazily on first use
// so that constructing an estimator never fails or blocks on network I/O
// until it is actually needed.
func NewTiktokenEstimator(model string) *TiktokenEstimator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &TiktokenEstimator{model: model}
}

// Estimate returns the real BPE token count, falling back to the approx
// formula if the encoding failed to load (e.g. offline with no cached
// encoding file available).
func (t *TiktokenEstimator) Estimate(text string) int {
	t.once.Do(func() {
		t.enc, t.err = tiktoken.EncodingForModel(t.model)
	})
	if t.err != nil || t.enc == nil {
		return EstimateTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// NewEstimator selects a TokenEstimator by name ("approx" or "tiktoken").
// Unknown names fall back to ApproxEstimator.
func NewEstimator(name, model string) TokenEstimator {
	if name == "tiktoken" {
		return NewTiktokenEstimator(model)
	}
	return ApproxEstimator{}
}
