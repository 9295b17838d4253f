package ask

import "strings"

// ConfidenceWeights controls the relative importance of confidence factors.
type ConfidenceWeights struct {
	SourceCoverage   float64
	CitationAccuracy float64
	SelfConsistency  float64
	AnswerLength     float64
}

// DefaultConfidenceWeights returns balanced weights.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		SourceCoverage:   0.3,
		CitationAccuracy: 0.3,
		SelfConsistency:  0.25,
		AnswerLength:     0.15,
	}
}

// ComputeConfidence calculates a confidence score for an answer in [0, 1],
// advisory only: the ask pipeline always returns the LLM's answer
// verbatim regardless of this score.
func ComputeConfidence(answer string, sources []Source, weights ConfidenceWeights) float64 {
	sc := sourceCoverageScore(answer, sources)
	ca := citationAccuracyScore(answer, sources)
	si := selfConsistencyScore(answer)
	al := answerLengthScore(answer)

	confidence := sc*weights.SourceCoverage +
		ca*weights.CitationAccuracy +
		si*weights.SelfConsistency +
		al*weights.AnswerLength

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

func sourceCoverageScore(answer string, sources []Source) float64 {
	if len(sources) == 0 {
		return 0
	}
	lower := strings.ToLower(answer)
	referenced := 0
	checkCount := len(sources)
	if checkCount > 5 {
		checkCount = 5
	}

	for _, s := range sources[:checkCount] {
		if strings.Contains(lower, strings.ToLower(s.RelPath)) {
			referenced++
			continue
		}
		words := strings.Fields(s.Content)
		if len(words) > 5 {
			phrase := strings.Join(words[:5], " ")
			if strings.Contains(lower, strings.ToLower(phrase)) {
				referenced++
			}
		}
	}
	return float64(referenced) / float64(checkCount)
}

func citationAccuracyScore(answer string, sources []Source) float64 {
	citations := ExtractCitations(answer, sources)
	if len(citations) == 0 {
		return 0.5
	}
	verified := 0
	for _, c := range citations {
		if c.Verified {
			verified++
		}
	}
	return float64(verified) / float64(len(citations))
}

func selfConsistencyScore(answer string) float64 {
	lower := strings.ToLower(answer)
	score := 1.0

	for _, c := range []string{"on the other hand", "however, it also", "contradicts", "inconsistent"} {
		if strings.Contains(lower, c) {
			score -= 0.15
		}
	}
	for _, u := range []string{"i'm not sure", "it's unclear", "cannot determine", "insufficient information", "not enough context"} {
		if strings.Contains(lower, u) {
			score -= 0.2
		}
	}
	if score < 0 {
		return 0
	}
	return score
}

func answerLengthScore(answer string) float64 {
	words := len(strings.Fields(answer))
	switch {
	case words < 10:
		return 0.2
	case words < 30:
		return 0.5
	case words < 100:
		return 0.8
	case words < 500:
		return 1.0
	default:
		return 0.9
	}
}
