package dto

// RubricWeights carries the grading weights supplied by the platform.
// Two schemas coexist in the wild: the newer three-category form and a
// legacy six-category form. Both are accepted here and folded into a
// NormalizedRubric exactly once, at ingestion.
type RubricWeights struct {
	// New three-category schema.
	Concept      *float64 `json:"concept" validate:"omitempty,gte=0"`
	Completeness *float64 `json:"completeness" validate:"omitempty,gte=0"`
	Clarity      *float64 `json:"clarity" validate:"omitempty,gte=0"`

	// Legacy six-category schema.
	ConceptualUnderstanding *float64 `json:"conceptual_understanding" validate:"omitempty,gte=0"`
	LanguageClarity         *float64 `json:"language_clarity" validate:"omitempty,gte=0"`
	AnswerCompleteness      *float64 `json:"answer_completeness" validate:"omitempty,gte=0"`
	SpellingAccuracy        *float64 `json:"spelling_accuracy" validate:"omitempty,gte=0"`
	HandlingIncorrect       *float64 `json:"handling_incorrect" validate:"omitempty,gte=0"`
	EffortBonus             *float64 `json:"effort_bonus" validate:"omitempty,gte=0"`
}

// NormalizedRubric is the single rubric form used past ingestion. After
// Normalize the three weights sum to 1.0, or all are zero (reasoning is
// skipped entirely in that case).
type NormalizedRubric struct {
	Concept      float64 `json:"concept"`
	Completeness float64 `json:"completeness"`
	Clarity      float64 `json:"clarity"`
}

// Sum returns the total weight mass.
func (r NormalizedRubric) Sum() float64 {
	return r.Concept + r.Completeness + r.Clarity
}

// IsZero reports whether every weight is zero.
func (r NormalizedRubric) IsZero() bool {
	return r.Sum() == 0
}

// Normalize resolves the tagged union: if any new-schema field is present
// the new schema wins, otherwise the legacy categories are folded pairwise
// (concept = conceptual understanding + handling incorrect, completeness =
// answer completeness + effort, clarity = language clarity + spelling).
// The result is scaled so the weights sum to 1.0 unless all are zero.
func (w RubricWeights) Normalize() NormalizedRubric {
	rubric := NormalizedRubric{}

	if w.Concept != nil || w.Completeness != nil || w.Clarity != nil {
		rubric.Concept = deref(w.Concept)
		rubric.Completeness = deref(w.Completeness)
		rubric.Clarity = deref(w.Clarity)
	} else {
		rubric.Concept = deref(w.ConceptualUnderstanding) + deref(w.HandlingIncorrect)
		rubric.Completeness = deref(w.AnswerCompleteness) + deref(w.EffortBonus)
		rubric.Clarity = deref(w.LanguageClarity) + deref(w.SpellingAccuracy)
	}

	total := rubric.Sum()
	if total == 0 {
		return rubric
	}

	rubric.Concept /= total
	rubric.Completeness /= total
	rubric.Clarity /= total
	return rubric
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// DefaultRubricWeights returns the weights used when the platform sends an
// empty rubric. Passed explicitly at call sites rather than kept as shared
// module state.
func DefaultRubricWeights() RubricWeights {
	concept := 0.6
	completeness := 0.2
	clarity := 0.2
	return RubricWeights{Concept: &concept, Completeness: &completeness, Clarity: &clarity}
}

// EvaluationRequest is the inbound payload for scoring a free-text answer.
// StudentAnswer deliberately carries no "required" tag: degenerate answers
// must flow through the structural gate and come back as zero-score results,
// not as HTTP errors.
type EvaluationRequest struct {
	Question        string        `json:"question" validate:"required"`
	StudentAnswer   string        `json:"student_answer"`
	Rubric          RubricWeights `json:"rubric"`
	MaxScore        float64       `json:"max_score" validate:"omitempty,gt=0"`
	TotalMarks      *float64      `json:"total_marks" validate:"omitempty,gt=0"`
	EvaluationStyle string        `json:"evaluation_style" validate:"omitempty,oneof=balanced concept-focused strict"`
	ReferenceAnswer string        `json:"reference_answer"`
}

// ResolveTotalMarks returns the effective mark ceiling: total_marks when
// present, otherwise max_score, otherwise 10.
func (r EvaluationRequest) ResolveTotalMarks() float64 {
	if r.TotalMarks != nil && *r.TotalMarks > 0 {
		return *r.TotalMarks
	}
	if r.MaxScore > 0 {
		return r.MaxScore
	}
	return 10
}

// Style returns the evaluation style tag, defaulting to "balanced".
func (r EvaluationRequest) Style() string {
	if r.EvaluationStyle == "" {
		return "balanced"
	}
	return r.EvaluationStyle
}

// RubricBreakdown reports per-category component scores. The legacy field
// names are kept for display compatibility with existing platform clients;
// the spelling/handling/effort slots are always zero under the current model.
type RubricBreakdown struct {
	ConceptualUnderstanding float64 `json:"conceptual_understanding"`
	CompletenessLength      float64 `json:"completeness_length"`
	LanguageClarity         float64 `json:"language_clarity"`
	SpellingAccuracy        float64 `json:"spelling_accuracy"`
	HandlingIncorrect       float64 `json:"handling_incorrect"`
	EffortBonus             float64 `json:"effort_bonus"`
}

// Metrics is the signal snapshot attached to every response.
type Metrics struct {
	LLM        float64 `json:"llm"`
	NLI        float64 `json:"nli"`
	Similarity float64 `json:"similarity"`
}

// EvaluationResponse is the outbound result. It is constructed once per
// request and never mutated after being returned.
type EvaluationResponse struct {
	FinalScore      float64         `json:"final_score"`
	Percentage      float64         `json:"percentage"`
	Grade           string          `json:"grade"`
	Feedback        string          `json:"feedback"`
	RubricBreakdown RubricBreakdown `json:"rubric_breakdown"`
	Metrics         Metrics         `json:"metrics"`
	Confidence      float64         `json:"confidence"`
}

// NewZeroEvaluationResponse builds the terminal zero-score result used for
// validator rejections, zero-weight rubrics, and reasoning failures. The
// reason is surfaced verbatim as feedback.
func NewZeroEvaluationResponse(reason string, confidence float64) EvaluationResponse {
	return EvaluationResponse{
		FinalScore: 0,
		Percentage: 0,
		Grade:      "F",
		Feedback:   reason,
		Confidence: confidence,
	}
}
