package engine

import (
	"github.com/quizora/evaluation-api/internal/dto"
	"github.com/quizora/evaluation-api/pkg/ai"
)

// Weighting of the final formula. Completeness is deliberately absent:
// brevity cannot depress the score once concept and clarity are established.
const (
	conceptWeight = 0.8
	clarityWeight = 0.2
)

// Aggregate combines a guardrail-corrected judgment into the final result.
// Pure and deterministic: identical inputs always produce identical outputs.
//
// ratio = 0 when concept is 0, otherwise concept*0.8 + clarity*0.2;
// final score = round(clamp(ratio) * total marks, 2). Completeness is
// carried in the breakdown for display only.
func Aggregate(judgment ai.Judgment, totalMarks float64) dto.EvaluationResponse {
	var ratio float64
	if judgment.Concept != 0 {
		ratio = judgment.Concept*conceptWeight + judgment.Clarity*clarityWeight
	}
	ratio = clamp01(ratio)

	percentage := round2(ratio * 100)

	return dto.EvaluationResponse{
		FinalScore: round2(ratio * totalMarks),
		Percentage: percentage,
		Grade:      AssignGrade(percentage),
		Feedback:   judgment.Feedback,
		RubricBreakdown: dto.RubricBreakdown{
			ConceptualUnderstanding: judgment.Concept,
			CompletenessLength:      judgment.Completeness,
			LanguageClarity:         judgment.Clarity,
		},
		Confidence: judgment.Confidence,
	}
}

// AssignGrade maps a percentage to a letter grade.
func AssignGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}
