package engine

import (
	"math"
	"regexp"
	"strings"
)

var segmentSplitter = regexp.MustCompile(`[.!?\n;]+`)

// connectives suggest explicit reasoning; their presence earns a small
// depth bonus.
var connectives = []string{"because", "therefore", "however", "additionally", "firstly", "contrast"}

// DepthSignals is the advisory output of the depth heuristic. It is passed
// to the reasoning step as guidance and never sets the final score directly.
type DepthSignals struct {
	ExpectedPoints float64 `json:"expected_depth"`
	ActualPoints   float64 `json:"actual_depth_heuristic"`
	DepthScore     float64 `json:"depth_score"`
}

// DepthEstimator derives how developed an answer is relative to the marks
// on offer. Deterministic and stateless.
type DepthEstimator struct{}

// NewDepthEstimator constructs the heuristic.
func NewDepthEstimator() *DepthEstimator {
	return &DepthEstimator{}
}

// Estimate counts meaningful text segments against a mark-driven
// expectation. Segments split on sentence terminators, newlines, and
// semicolons; only segments with at least three tokens count as a point.
func (e *DepthEstimator) Estimate(answer string, totalMarks float64) DepthSignals {
	var expected int
	switch {
	case totalMarks <= 2:
		expected = 1
	case totalMarks <= 5:
		expected = 2
	case totalMarks <= 10:
		expected = 3
	default:
		expected = 4
	}

	actual := 0
	for _, segment := range segmentSplitter.Split(answer, -1) {
		if len(strings.Fields(segment)) >= 3 {
			actual++
		}
	}

	score := math.Min(float64(actual)/float64(expected), 1.0)

	lowered := strings.ToLower(answer)
	for _, c := range connectives {
		if strings.Contains(lowered, c) {
			score = math.Min(score+0.1, 1.0)
			break
		}
	}

	return DepthSignals{
		ExpectedPoints: float64(expected),
		ActualPoints:   float64(actual),
		DepthScore:     round2(score),
	}
}
