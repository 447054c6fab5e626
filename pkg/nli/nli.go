package nli

import "context"

// Probabilities is the class distribution returned by a pairwise natural
// language inference model.
type Probabilities struct {
	Contradiction float64 `json:"contradiction"`
	Entailment    float64 `json:"entailment"`
	Neutral       float64 `json:"neutral"`
}

// Classifier scores whether a hypothesis is supported by a premise.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, premise, hypothesis string) (Probabilities, error)
}
