package ai

import (
	"context"
	"errors"
	"fmt"
)

// Signals carries the numeric pipeline signals forwarded to the judge as
// guidance. The judge may weigh them, but must never be the only source of
// the invariants the guardrails enforce afterwards.
type Signals struct {
	Similarity float64
	Entailment float64
	Depth      float64
}

// JudgeInput is everything the external judge needs to grade one answer.
type JudgeInput struct {
	Question        string
	StudentAnswer   string
	ReferenceAnswer string
	TotalMarks      float64
	Style           string
	SimilarityBand  string
	Signals         Signals
}

// Judgment is the parsed, schema-validated output of the external judge.
// Guardrail corrections are applied to it afterwards by the caller.
type Judgment struct {
	Concept      float64 `json:"concept"`
	Completeness float64 `json:"completeness"`
	Clarity      float64 `json:"clarity"`
	Feedback     string  `json:"feedback"`
	Confidence   float64 `json:"confidence"`
}

// Judge grades a free-text answer. Implementations must be safe for
// concurrent use and must not retain request state between calls.
type Judge interface {
	Judge(ctx context.Context, input JudgeInput) (Judgment, error)
}

// FailureKind classifies why a reasoning call failed terminally.
type FailureKind string

const (
	FailureTimeout    FailureKind = "timeout"
	FailureTransport  FailureKind = "transport"
	FailureMalformed  FailureKind = "malformed_output"
	FailureCredential FailureKind = "missing_credential"
)

// ReasoningError is returned once retries are exhausted. It carries the
// attempt count and the failure kind so callers can explain the failure
// instead of guessing.
type ReasoningError struct {
	Kind     FailureKind
	Attempts int
	Err      error
}

func (e *ReasoningError) Error() string {
	return fmt.Sprintf("reasoning failed after %d attempt(s) (%s): %v", e.Attempts, e.Kind, e.Err)
}

func (e *ReasoningError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error chain, defaulting to
// transport for unclassified errors.
func KindOf(err error) FailureKind {
	var re *ReasoningError
	if errors.As(err, &re) {
		return re.Kind
	}
	return FailureTransport
}
