package ai

import (
	"fmt"
	"strings"
)

func judgeSystemPrompt() string {
	return "You are an expert academic evaluator grading free-text answers against a rubric. " +
		"Respond with a single JSON object containing numeric fields concept, completeness, clarity " +
		"(each 0.0-1.0), a feedback string, and an optional confidence (0.0-1.0). No other text."
}

// buildJudgePrompt assembles the structured user prompt: context, signals,
// and the explicit rule set the judge must follow. The rules restate the
// invariants the guardrails also enforce, because the judge cannot be
// trusted to apply them every time.
func buildJudgePrompt(input JudgeInput) string {
	b := strings.Builder{}

	fmt.Fprintf(&b, "Grading Style: %s\n", input.Style)
	fmt.Fprintf(&b, "Total Marks: %g\n\n", input.TotalMarks)

	b.WriteString("## Question\n")
	b.WriteString(input.Question)
	b.WriteString("\n\n## Student Answer\n")
	b.WriteString(input.StudentAnswer)

	b.WriteString("\n\n## Reference Answer\n")
	if strings.TrimSpace(input.ReferenceAnswer) == "" {
		b.WriteString("(not provided)")
	} else {
		b.WriteString(input.ReferenceAnswer)
	}

	b.WriteString("\n\n## Signals (guidance only, the rubric is the final authority)\n")
	fmt.Fprintf(&b, "- Similarity Band: %s\n", input.SimilarityBand)
	fmt.Fprintf(&b, "- Semantic Similarity: %.2f\n", input.Signals.Similarity)
	fmt.Fprintf(&b, "- NLI Entailment: %.2f\n", input.Signals.Entailment)
	fmt.Fprintf(&b, "- Estimated Depth: %.2f\n", input.Signals.Depth)

	b.WriteString("\n## Rules\n")
	b.WriteString("1. EXACT ENTITY MATCH: if the answer matches the expected entity or the similarity band is Full, concept must be maximal regardless of length.\n")
	b.WriteString("2. NEVER PENALIZE BREVITY: a short, correct answer scores as well as a long one. Brevity may lower completeness only, never concept or clarity.\n")
	b.WriteString("3. MISCONCEPTIONS: any fundamental misconception means concept = 0.0 regardless of surface overlap with the reference.\n")
	b.WriteString("4. COMPLETENESS SCALES WITH MARKS: 1-2 marks expect a concise definition, 3-5 a short explanation, 6+ detailed structured reasoning.\n")
	b.WriteString("5. HALLUCINATION CHECK: low entailment with high similarity suggests keyword stuffing, be skeptical of concept.\n")

	b.WriteString("\nReturn ONLY valid JSON:\n")
	b.WriteString(`{"concept": <0.0-1.0>, "completeness": <0.0-1.0>, "clarity": <0.0-1.0>, "feedback": "<explanation addressed to the student>", "confidence": <0.0-1.0>}`)

	return b.String()
}
