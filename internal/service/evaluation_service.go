package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quizora/evaluation-api/internal/dto"
	"github.com/quizora/evaluation-api/internal/engine"
	"github.com/quizora/evaluation-api/internal/middleware"
	"github.com/quizora/evaluation-api/internal/observability"
	"github.com/quizora/evaluation-api/pkg/ai"
)

// Pipeline outcome labels reported to Prometheus.
const (
	outcomeCompleted       = "completed"
	outcomeRejected        = "rejected"
	outcomeZeroWeight      = "zero_weight"
	outcomeReasoningFailed = "reasoning_failed"
	outcomeCacheHit        = "cache_hit"
)

// EvaluationService runs the full answer-evaluation pipeline for one request.
type EvaluationService interface {
	Evaluate(ctx context.Context, payload dto.EvaluationRequest) (dto.EvaluationResponse, error)
}

type evaluationService struct {
	gate       *engine.Validator
	depth      *engine.DepthEstimator
	similarity *engine.SimilarityEngine
	entailment *engine.EntailmentEngine
	judge      ai.Judge
	defaults   dto.RubricWeights

	validator *validator.Validate
	sanitizer *bluemonday.Policy

	cache    *redis.Client
	cacheTTL time.Duration

	nats        *nats.Conn
	natsSubject string

	logger zerolog.Logger
	tracer trace.Tracer
}

// EvaluationConfig groups the optional collaborators of the service.
type EvaluationConfig struct {
	Cache       *redis.Client
	CacheTTL    time.Duration
	NATS        *nats.Conn
	NATSSubject string
	// DefaultRubric is applied when the request rubric carries no weights at
	// all. Passed explicitly instead of living as shared module state.
	DefaultRubric dto.RubricWeights
}

// NewEvaluationService wires the pipeline. The engines are stateless and
// shared across in-flight requests; the judge is the only collaborator that
// may block for a non-trivial duration.
func NewEvaluationService(
	gate *engine.Validator,
	depth *engine.DepthEstimator,
	similarity *engine.SimilarityEngine,
	entailment *engine.EntailmentEngine,
	judge ai.Judge,
	validate *validator.Validate,
	logger zerolog.Logger,
	cfg EvaluationConfig,
) EvaluationService {
	subject := cfg.NATSSubject
	if subject == "" {
		subject = "quizora.evaluation.completed"
	}

	return &evaluationService{
		gate:        gate,
		depth:       depth,
		similarity:  similarity,
		entailment:  entailment,
		judge:       judge,
		defaults:    cfg.DefaultRubric,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		cache:       cfg.Cache,
		cacheTTL:    cfg.CacheTTL,
		nats:        cfg.NATS,
		natsSubject: subject,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		tracer:      otel.Tracer("github.com/quizora/evaluation-api/internal/service/evaluation"),
	}
}

// Evaluate sequences the pipeline: gate, signal generation, reasoning,
// guardrails, aggregation. Internal faults never escape as errors; they
// become terminal zero-score results with an explanatory feedback string.
// The returned error is non-nil only for invalid payloads.
func (s *evaluationService) Evaluate(ctx context.Context, payload dto.EvaluationRequest) (dto.EvaluationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.pipeline")
	defer span.End()

	question := strings.TrimSpace(s.sanitizer.Sanitize(payload.Question))
	answer := strings.TrimSpace(s.sanitizer.Sanitize(payload.StudentAnswer))
	reference := strings.TrimSpace(s.sanitizer.Sanitize(payload.ReferenceAnswer))

	totalMarks := payload.ResolveTotalMarks()
	span.SetAttributes(attribute.Float64("evaluation.total_marks", totalMarks))

	rubric := payload.Rubric
	if rubricIsEmpty(rubric) {
		rubric = s.defaults
	}
	weights := rubric.Normalize()

	// Gating: degenerate input terminates before any signal or judge work.
	if ok, reason := s.gate.Validate(answer, totalMarks); !ok {
		s.logger.Info().Str("reason", reason).Msg("answer rejected by structural gate")
		span.SetAttributes(attribute.String("evaluation.outcome", outcomeRejected))
		observability.EvalOutcomes().WithLabelValues(outcomeRejected).Inc()
		return s.finish(ctx, outcomeRejected, dto.NewZeroEvaluationResponse(reason, 1.0)), nil
	}

	// A rubric with no weight mass means the platform asked for nothing.
	if weights.IsZero() {
		s.logger.Info().Msg("all rubric weights are zero, skipping signals and reasoning")
		span.SetAttributes(attribute.String("evaluation.outcome", outcomeZeroWeight))
		observability.EvalOutcomes().WithLabelValues(outcomeZeroWeight).Inc()
		return s.finish(ctx, outcomeZeroWeight, dto.NewZeroEvaluationResponse("No active rubric weights.", 1.0)), nil
	}

	fingerprint := s.fingerprint(question, answer, reference, weights, totalMarks, payload.Style())
	if cached, ok := s.cachedResult(ctx, fingerprint); ok {
		span.SetAttributes(attribute.String("evaluation.outcome", outcomeCacheHit))
		observability.EvalOutcomes().WithLabelValues(outcomeCacheHit).Inc()
		observability.EvalCacheHits().Inc()
		return cached, nil
	}

	// Signal generation. The three signals are independent and read-only
	// over the request, so similarity and entailment run concurrently.
	depthSignals := s.depth.Estimate(answer, totalMarks)

	var (
		wg       sync.WaitGroup
		simScore float64
		simBand  engine.SimilarityBand
		nliScore float64
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		simScore, simBand = s.similarity.EvaluateWithBand(ctx, answer, reference)
	}()
	go func() {
		defer wg.Done()
		nliScore = s.entailment.Evaluate(ctx, question, answer, reference)
	}()
	wg.Wait()

	s.logger.Debug().
		Float64("similarity", simScore).
		Str("band", string(simBand)).
		Float64("nli", nliScore).
		Float64("depth", depthSignals.DepthScore).
		Msg("signals computed")

	span.SetAttributes(
		attribute.String("evaluation.similarity_band", string(simBand)),
		attribute.Float64("evaluation.similarity", simScore),
		attribute.Float64("evaluation.entailment", nliScore),
	)

	// Reasoning: the sole suspension point. Terminal failure becomes a
	// zero result whose feedback names the failure category.
	judgment, err := s.judge.Judge(ctx, ai.JudgeInput{
		Question:        question,
		StudentAnswer:   answer,
		ReferenceAnswer: reference,
		TotalMarks:      totalMarks,
		Style:           payload.Style(),
		SimilarityBand:  string(simBand),
		Signals: ai.Signals{
			Similarity: simScore,
			Entailment: nliScore,
			Depth:      depthSignals.DepthScore,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("reasoning step failed terminally")
		span.RecordError(err)
		span.SetAttributes(attribute.String("evaluation.outcome", outcomeReasoningFailed))
		observability.EvalOutcomes().WithLabelValues(outcomeReasoningFailed).Inc()
		return s.finish(ctx, outcomeReasoningFailed, dto.NewZeroEvaluationResponse(reasoningFailureFeedback(err), 0.0)), nil
	}

	judgment = engine.ApplyGuardrails(judgment, answer, simBand, nliScore)

	result := engine.Aggregate(judgment, totalMarks)
	result.Metrics = dto.Metrics{
		LLM:        judgment.Concept,
		NLI:        nliScore,
		Similarity: simScore,
	}

	s.logger.Info().
		Float64("final_score", result.FinalScore).
		Float64("percentage", result.Percentage).
		Str("grade", result.Grade).
		Str("band", string(simBand)).
		Msg("evaluation completed")

	span.SetAttributes(
		attribute.String("evaluation.outcome", outcomeCompleted),
		attribute.Float64("evaluation.final_score", result.FinalScore),
		attribute.String("evaluation.grade", result.Grade),
	)
	observability.EvalOutcomes().WithLabelValues(outcomeCompleted).Inc()

	s.storeResult(ctx, fingerprint, result)
	return s.finish(ctx, outcomeCompleted, result), nil
}

// finish publishes the completion event and hands the immutable result back.
func (s *evaluationService) finish(ctx context.Context, outcome string, result dto.EvaluationResponse) dto.EvaluationResponse {
	s.publishEvent(ctx, outcome, result)
	return result
}

func rubricIsEmpty(r dto.RubricWeights) bool {
	return r.Concept == nil && r.Completeness == nil && r.Clarity == nil &&
		r.ConceptualUnderstanding == nil && r.LanguageClarity == nil &&
		r.AnswerCompleteness == nil && r.SpellingAccuracy == nil &&
		r.HandlingIncorrect == nil && r.EffortBonus == nil
}

func reasoningFailureFeedback(err error) string {
	switch ai.KindOf(err) {
	case ai.FailureTimeout:
		return "Evaluation could not be completed: the reasoning step timed out."
	case ai.FailureMalformed:
		return "Evaluation could not be completed: the reasoning step returned malformed output."
	case ai.FailureCredential:
		return "Evaluation could not be completed: the reasoning service credential is missing or invalid."
	default:
		return "Evaluation could not be completed: the reasoning service is unavailable."
	}
}

// fingerprint keys the result cache on everything that feeds the
// deterministic aggregation, so a hit can never change the outcome.
func (s *evaluationService) fingerprint(question, answer, reference string, weights dto.NormalizedRubric, totalMarks float64, style string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x1f%s\x1f%s\x1f%.6f\x1f%.6f\x1f%.6f\x1f%g\x1f%s",
		question, answer, reference,
		weights.Concept, weights.Completeness, weights.Clarity,
		totalMarks, style,
	)
	return "evaluation:result:" + hex.EncodeToString(h.Sum(nil))
}

func (s *evaluationService) cachedResult(ctx context.Context, key string) (dto.EvaluationResponse, bool) {
	if s.cache == nil {
		return dto.EvaluationResponse{}, false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read evaluation cache")
		}
		return dto.EvaluationResponse{}, false
	}

	var response dto.EvaluationResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode cached evaluation")
		return dto.EvaluationResponse{}, false
	}

	s.logger.Debug().Str("key", key).Msg("evaluation cache hit")
	return response, true
}

// storeResult caches only successful, well-formed results. Zero results
// from failures are never cached so a transient judge outage cannot pin a
// student to zero.
func (s *evaluationService) storeResult(ctx context.Context, key string, result dto.EvaluationResponse) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store evaluation cache")
	}
}

type evaluationEvent struct {
	Outcome       string    `json:"outcome"`
	FinalScore    float64   `json:"final_score"`
	Percentage    float64   `json:"percentage"`
	Grade         string    `json:"grade"`
	Confidence    float64   `json:"confidence"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	SentAt        time.Time `json:"sent_at"`
}

// publishEvent notifies the platform that an evaluation finished. Publish
// failures are logged and never fail the request.
func (s *evaluationService) publishEvent(ctx context.Context, outcome string, result dto.EvaluationResponse) {
	if s.nats == nil {
		return
	}

	payload, err := json.Marshal(evaluationEvent{
		Outcome:       outcome,
		FinalScore:    result.FinalScore,
		Percentage:    result.Percentage,
		Grade:         result.Grade,
		Confidence:    result.Confidence,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		SentAt:        time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := s.nats.Publish(s.natsSubject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", s.natsSubject).Msg("failed to publish evaluation event")
	}
}
