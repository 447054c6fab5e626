package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	judgeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "quizora",
		Subsystem: "judge",
		Name:      "request_duration_seconds",
		Help:      "Duration of external judge requests",
	}, []string{"model"})

	judgeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizora",
		Subsystem: "judge",
		Name:      "failures_total",
		Help:      "Number of terminal judge failures",
	}, []string{"model", "kind"})

	judgeRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizora",
		Subsystem: "judge",
		Name:      "retries_total",
		Help:      "Number of judge attempts retried",
	}, []string{"model"})
)

// judgmentSchemaJSON is the required shape of the judge's JSON reply. Range
// clamping is deliberately left to the guardrails so an out-of-range number
// is corrected rather than retried.
const judgmentSchemaJSON = `{
  "type": "object",
  "required": ["concept", "completeness", "clarity", "feedback"],
  "properties": {
    "concept": {"type": "number"},
    "completeness": {"type": "number"},
    "clarity": {"type": "number"},
    "feedback": {"type": "string"},
    "confidence": {"type": "number"}
  }
}`

var judgmentSchema = jsonschema.MustCompileString("judgment.schema.json", judgmentSchemaJSON)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// chatCompleter is the slice of the OpenAI client the judge depends on.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIJudgeConfig defines configuration options for the OpenAI-backed judge.
type OpenAIJudgeConfig struct {
	APIKey       string
	Model        string
	MaxTokens    int
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       zerolog.Logger
}

// OpenAIJudge implements Judge against the OpenAI chat completion API with
// bounded fixed-backoff retries. Stateless per call and safe to share.
type OpenAIJudge struct {
	client chatCompleter
	cfg    OpenAIJudgeConfig
	tracer trace.Tracer
	logger zerolog.Logger
	sleep  func(time.Duration)
}

// NewOpenAIJudge builds a judge using the provided configuration.
func NewOpenAIJudge(cfg OpenAIJudgeConfig) (*OpenAIJudge, error) {
	if cfg.APIKey == "" {
		return nil, &ReasoningError{Kind: FailureCredential, Attempts: 0, Err: errors.New("openai api key is required")}
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIJudge{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/quizora/evaluation-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_judge").Logger(),
		sleep:  time.Sleep,
	}, nil
}

// Judge sends the structured prompt and parses the constrained JSON reply.
// The per-attempt timeout is independent of the caller's deadline; after
// retries are exhausted a ReasoningError carrying the failure kind and
// attempt count is returned.
func (j *OpenAIJudge) Judge(parent context.Context, input JudgeInput) (Judgment, error) {
	ctx, span := j.tracer.Start(parent, "judge.evaluate", trace.WithAttributes(
		attribute.String("model", j.cfg.Model),
		attribute.String("similarity_band", input.SimilarityBand),
		attribute.Float64("total_marks", input.TotalMarks),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       j.cfg.Model,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildJudgePrompt(input)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	attempts := j.cfg.MaxRetries + 1
	performed := 0
	var lastErr error
	var lastKind FailureKind

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			judgeRetries.WithLabelValues(j.cfg.Model).Inc()
			j.sleep(j.cfg.RetryBackoff)
		}

		judgment, kind, err := j.attempt(ctx, request)
		performed = attempt
		if err == nil {
			span.SetAttributes(attribute.Int("judge.attempts", attempt))
			return judgment, nil
		}

		lastErr = err
		lastKind = kind
		j.logger.Warn().Err(err).Int("attempt", attempt).Str("kind", string(kind)).Msg("judge attempt failed")

		// A rejected credential cannot heal between attempts.
		if kind == FailureCredential {
			break
		}
	}

	terminal := &ReasoningError{Kind: lastKind, Attempts: performed, Err: lastErr}
	judgeFailures.WithLabelValues(j.cfg.Model, string(lastKind)).Inc()
	span.RecordError(terminal)
	span.SetStatus(codes.Error, terminal.Error())
	return Judgment{}, terminal
}

func (j *OpenAIJudge) attempt(parent context.Context, request openai.ChatCompletionRequest) (Judgment, FailureKind, error) {
	ctx, cancel := context.WithTimeout(parent, j.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := j.client.CreateChatCompletion(ctx, request)
	judgeDuration.WithLabelValues(j.cfg.Model).Observe(time.Since(start).Seconds())

	if err != nil {
		return Judgment{}, classifyTransportError(err), fmt.Errorf("judge completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Judgment{}, FailureMalformed, errors.New("no choices returned from judge")
	}

	judgment, err := ParseJudgment(resp.Choices[0].Message.Content)
	if err != nil {
		return Judgment{}, FailureMalformed, err
	}
	return judgment, "", nil
}

func classifyTransportError(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return FailureCredential
		}
	}
	return FailureTransport
}

// ParseJudgment strips an optional fenced code block, parses the JSON, and
// validates it against the judgment schema. Any other shape is a parse
// failure subject to retry.
func ParseJudgment(content string) (Judgment, error) {
	cleaned := strings.TrimSpace(content)
	if match := codeFencePattern.FindStringSubmatch(cleaned); match != nil {
		cleaned = strings.TrimSpace(match[1])
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Judgment{}, fmt.Errorf("parse judgment json: %w", err)
	}

	if err := judgmentSchema.Validate(raw); err != nil {
		return Judgment{}, fmt.Errorf("judgment schema violation: %w", err)
	}

	// Confidence is decoded through a pointer so an asserted 0.0 is
	// distinguishable from an absent field; only absence defaults to 1.0.
	var decoded struct {
		Concept      float64  `json:"concept"`
		Completeness float64  `json:"completeness"`
		Clarity      float64  `json:"clarity"`
		Feedback     string   `json:"feedback"`
		Confidence   *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return Judgment{}, fmt.Errorf("decode judgment: %w", err)
	}

	judgment := Judgment{
		Concept:      decoded.Concept,
		Completeness: decoded.Completeness,
		Clarity:      decoded.Clarity,
		Feedback:     decoded.Feedback,
		Confidence:   1.0,
	}
	if decoded.Confidence != nil {
		judgment.Confidence = *decoded.Confidence
	}
	if judgment.Feedback == "" {
		judgment.Feedback = "No feedback provided."
	}
	return judgment, nil
}
