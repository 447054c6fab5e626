package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	embedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "quizora",
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Duration of embedding requests",
	}, []string{"model"})

	embedFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizora",
		Subsystem: "embedding",
		Name:      "failures_total",
		Help:      "Number of embedding request failures",
	}, []string{"model"})
)

// embeddingCreator is the slice of the OpenAI client the encoder depends on.
type embeddingCreator interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIConfig defines configuration options for the OpenAI encoder.
type OpenAIConfig struct {
	APIKey string
	Model  string
	Logger zerolog.Logger
}

// OpenAIEncoder implements Encoder against the OpenAI embeddings API.
type OpenAIEncoder struct {
	client embeddingCreator
	model  openai.EmbeddingModel
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEncoder builds an encoder using the provided configuration.
func NewOpenAIEncoder(cfg OpenAIConfig) (*OpenAIEncoder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := openai.SmallEmbedding3
	if cfg.Model != "" {
		model = openai.EmbeddingModel(cfg.Model)
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIEncoder{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		model:  model,
		tracer: otel.Tracer("github.com/quizora/evaluation-api/pkg/embedding/openai"),
		logger: logger.With().Str("component", "openai_encoder").Logger(),
	}, nil
}

// Encode returns the embedding vector for the given text.
func (e *OpenAIEncoder) Encode(parent context.Context, text string) ([]float32, error) {
	ctx, span := e.tracer.Start(parent, "embedding.encode", trace.WithAttributes(
		attribute.String("model", string(e.model)),
	))
	defer span.End()

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	embedDuration.WithLabelValues(string(e.model)).Observe(time.Since(start).Seconds())

	if err != nil {
		embedFailures.WithLabelValues(string(e.model)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) == 0 {
		err := errors.New("no embedding data returned")
		embedFailures.WithLabelValues(string(e.model)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return resp.Data[0].Embedding, nil
}
