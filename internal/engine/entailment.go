package engine

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quizora/evaluation-api/internal/observability"
	"github.com/quizora/evaluation-api/pkg/nli"
)

// EntailmentEngine estimates whether the answer is logically supported by
// the reference. The score doubles as a hallucination check downstream: low
// entailment paired with high similarity suggests keyword stuffing.
type EntailmentEngine struct {
	classifier nli.Classifier
	logger     zerolog.Logger
}

// NewEntailmentEngine constructs the engine around a pairwise classifier.
func NewEntailmentEngine(classifier nli.Classifier, logger zerolog.Logger) *EntailmentEngine {
	return &EntailmentEngine{
		classifier: classifier,
		logger:     logger.With().Str("component", "entailment_engine").Logger(),
	}
}

// Evaluate returns the entailment-class probability of (reference as
// premise, answer as hypothesis) in [0,1]. Empty answers score zero; a
// missing reference or an unavailable classifier degrades to the neutral
// 0.5 rather than failing the pipeline.
func (e *EntailmentEngine) Evaluate(ctx context.Context, question, answer, reference string) float64 {
	if strings.TrimSpace(answer) == "" {
		return 0.0
	}

	if strings.TrimSpace(reference) == "" {
		return 0.5
	}

	if e.classifier == nil {
		observability.SignalDegradations().WithLabelValues("entailment").Inc()
		return 0.5
	}

	probs, err := e.classifier.Classify(ctx, reference, answer)
	if err != nil {
		e.logger.Warn().Err(err).Msg("nli unavailable, degrading to neutral entailment")
		observability.SignalDegradations().WithLabelValues("entailment").Inc()
		return 0.5
	}

	return round3(probs.Entailment)
}
