package engine

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quizora/evaluation-api/internal/observability"
	"github.com/quizora/evaluation-api/pkg/embedding"
)

// SimilarityBand is the discrete classification of embedding-space
// closeness between an answer and its reference. The band, not the raw
// score, drives the guardrail logic downstream.
type SimilarityBand string

const (
	BandNoise   SimilarityBand = "Noise"
	BandPartial SimilarityBand = "Partial"
	BandFull    SimilarityBand = "Full"
)

const (
	noiseBandCeiling = 0.30
	fullBandFloor    = 0.70
)

// SimilarityEngine scores semantic closeness between the student answer and
// an optional reference answer. Stateless apart from its fixed encoder.
type SimilarityEngine struct {
	encoder embedding.Encoder
	logger  zerolog.Logger
}

// NewSimilarityEngine constructs the engine around a text encoder.
func NewSimilarityEngine(encoder embedding.Encoder, logger zerolog.Logger) *SimilarityEngine {
	return &SimilarityEngine{
		encoder: encoder,
		logger:  logger.With().Str("component", "similarity_engine").Logger(),
	}
}

// EvaluateWithBand returns the similarity score in [0,1] and its band.
// Priority order: empty answer, missing reference (neutral, never a
// penalty), exact or token-subset match override, then embedding cosine
// distance. Encoder failures degrade to the neutral fallback rather than
// failing the pipeline.
func (e *SimilarityEngine) EvaluateWithBand(ctx context.Context, answer, reference string) (float64, SimilarityBand) {
	answer = strings.TrimSpace(answer)
	reference = strings.TrimSpace(reference)

	if answer == "" {
		return 0.0, BandNoise
	}

	if reference == "" {
		return 0.5, BandPartial
	}

	if exactOrSubsetMatch(answer, reference) {
		return 1.0, BandFull
	}

	if e.encoder == nil {
		observability.SignalDegradations().WithLabelValues("similarity").Inc()
		return 0.5, BandPartial
	}

	answerVec, err := e.encoder.Encode(ctx, answer)
	if err == nil {
		var referenceVec []float32
		referenceVec, err = e.encoder.Encode(ctx, reference)
		if err == nil {
			score := round3((cosine(answerVec, referenceVec) + 1) / 2)
			band := classifyBand(score)
			if band == BandNoise {
				// A below-floor match earns nothing, not a small number.
				score = 0.0
			}
			return score, band
		}
	}

	e.logger.Warn().Err(err).Msg("embedding unavailable, degrading to neutral similarity")
	observability.SignalDegradations().WithLabelValues("similarity").Inc()
	return 0.5, BandPartial
}

// exactOrSubsetMatch protects short factual answers from embedding noise:
// a case-insensitive full match, or an answer of at most four tokens whose
// every token appears in the reference, counts as a full match.
func exactOrSubsetMatch(answer, reference string) bool {
	if strings.EqualFold(answer, reference) {
		return true
	}

	answerTokens := strings.Fields(strings.ToLower(answer))
	if len(answerTokens) == 0 || len(answerTokens) > 4 {
		return false
	}

	referenceSet := map[string]struct{}{}
	for _, t := range strings.Fields(strings.ToLower(reference)) {
		referenceSet[t] = struct{}{}
	}

	for _, t := range answerTokens {
		if _, ok := referenceSet[t]; !ok {
			return false
		}
	}
	return true
}

func classifyBand(score float64) SimilarityBand {
	switch {
	case score < noiseBandCeiling:
		return BandNoise
	case score < fullBandFloor:
		return BandPartial
	default:
		return BandFull
	}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
