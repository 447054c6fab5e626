package engine

import (
	"math"
	"strings"

	"github.com/quizora/evaluation-api/pkg/ai"
)

// shortAnswerTokenLimit is the token count at or below which an answer is
// treated as a short, possibly single-entity response by the guardrails.
const shortAnswerTokenLimit = 3

// ApplyGuardrails corrects a judgment deterministically after parsing. The
// external judge is non-deterministic and cannot be trusted to apply
// brevity-neutrality or entity-match rules every time, so these corrections
// run regardless of judge compliance. Pure: same inputs, same output.
func ApplyGuardrails(judgment ai.Judgment, answer string, band SimilarityBand, entailment float64) ai.Judgment {
	judgment.Concept = clamp01(judgment.Concept)
	judgment.Completeness = clamp01(judgment.Completeness)
	judgment.Clarity = clamp01(judgment.Clarity)
	judgment.Confidence = clamp01(judgment.Confidence)

	shortAnswer := len(strings.Fields(answer)) <= shortAnswerTokenLimit

	if shortAnswer && entailment > 0.7 {
		judgment.Concept = math.Max(judgment.Concept, 0.80)
		judgment.Clarity = math.Max(judgment.Clarity, 0.70)
	}

	// An ambiguous short non-match must earn nothing.
	if band == BandNoise && shortAnswer {
		judgment.Concept = 0.0
	}

	if band == BandFull {
		judgment.Concept = math.Max(judgment.Concept, 0.85)
		if shortAnswer {
			judgment.Clarity = math.Max(judgment.Clarity, 0.70)
		}
	}

	return judgment
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}
