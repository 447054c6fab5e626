package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	nliDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quizora",
		Subsystem: "nli",
		Name:      "request_duration_seconds",
		Help:      "Duration of NLI inference requests",
	})

	nliFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizora",
		Subsystem: "nli",
		Name:      "failures_total",
		Help:      "Number of NLI inference failures",
	})
)

// HTTPConfig defines configuration options for the HTTP classifier.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// HTTPClassifier implements Classifier against a cross-encoder inference
// service exposing a POST /classify endpoint.
type HTTPClassifier struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

type classifyRequest struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

// NewHTTPClassifier builds a classifier using the provided configuration.
func NewHTTPClassifier(cfg HTTPConfig) (*HTTPClassifier, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("nli service url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &HTTPClassifier{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With().Str("component", "nli_classifier").Logger(),
	}, nil
}

// Classify posts the (premise, hypothesis) pair and returns the class
// probabilities.
func (c *HTTPClassifier) Classify(ctx context.Context, premise, hypothesis string) (Probabilities, error) {
	body, err := json.Marshal(classifyRequest{Premise: premise, Hypothesis: hypothesis})
	if err != nil {
		return Probabilities{}, fmt.Errorf("marshal nli request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return Probabilities{}, fmt.Errorf("build nli request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	nliDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		nliFailures.Inc()
		return Probabilities{}, fmt.Errorf("nli request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		nliFailures.Inc()
		return Probabilities{}, fmt.Errorf("read nli response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		nliFailures.Inc()
		return Probabilities{}, fmt.Errorf("nli service returned %d: %s", resp.StatusCode, string(payload))
	}

	var probs Probabilities
	if err := json.Unmarshal(payload, &probs); err != nil {
		nliFailures.Inc()
		return Probabilities{}, fmt.Errorf("parse nli response: %w", err)
	}

	return probs, nil
}
