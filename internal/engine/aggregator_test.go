package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quizora/evaluation-api/pkg/ai"
)

func TestAggregateAppliesBalancedFormula(t *testing.T) {
	judgment := ai.Judgment{Concept: 0.9, Completeness: 0.4, Clarity: 0.8, Feedback: "solid", Confidence: 0.9}

	result := Aggregate(judgment, 10)
	// 0.9*0.8 + 0.8*0.2 = 0.88
	require.Equal(t, 8.8, result.FinalScore)
	require.Equal(t, 88.0, result.Percentage)
	require.Equal(t, "B", result.Grade)
	require.Equal(t, "solid", result.Feedback)
	require.Equal(t, 0.9, result.Confidence)
}

func TestAggregateZeroConceptZeroesEverything(t *testing.T) {
	judgment := ai.Judgment{Concept: 0, Completeness: 1, Clarity: 1, Feedback: "misconception"}

	result := Aggregate(judgment, 10)
	require.Equal(t, 0.0, result.FinalScore)
	require.Equal(t, 0.0, result.Percentage)
	require.Equal(t, "F", result.Grade)
}

func TestAggregateCompletenessIsDisplayOnly(t *testing.T) {
	low := Aggregate(ai.Judgment{Concept: 0.9, Completeness: 0.1, Clarity: 0.8}, 10)
	high := Aggregate(ai.Judgment{Concept: 0.9, Completeness: 1.0, Clarity: 0.8}, 10)

	require.Equal(t, low.FinalScore, high.FinalScore)
	require.Equal(t, low.Percentage, high.Percentage)
	require.NotEqual(t, low.RubricBreakdown.CompletenessLength, high.RubricBreakdown.CompletenessLength)
}

func TestAggregateScalesWithTotalMarks(t *testing.T) {
	judgment := ai.Judgment{Concept: 0.9, Clarity: 0.8}

	twoMarks := Aggregate(judgment, 2)
	tenMarks := Aggregate(judgment, 10)

	// Same ratio regardless of the mark ceiling.
	require.Equal(t, twoMarks.Percentage, tenMarks.Percentage)
	require.Equal(t, 1.76, twoMarks.FinalScore)
	require.Equal(t, 8.8, tenMarks.FinalScore)
}

func TestAssignGradeBands(t *testing.T) {
	cases := []struct {
		percentage float64
		grade      string
	}{
		{95, "A"}, {90, "A"}, {89.99, "B"}, {80, "B"}, {75, "C"}, {70, "C"}, {65, "D"}, {60, "D"}, {59.99, "F"}, {0, "F"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.grade, AssignGrade(tc.percentage), "percentage=%v", tc.percentage)
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	judgment := ai.Judgment{Concept: 0.77, Completeness: 0.33, Clarity: 0.61, Feedback: "ok", Confidence: 0.8}

	first := Aggregate(judgment, 7.5)
	second := Aggregate(judgment, 7.5)
	require.Equal(t, first, second)
}
