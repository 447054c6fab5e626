package engine

import (
	"fmt"
	"strings"
	"unicode"
)

// stopwords is the minimal set stripped before the meaningful-word count.
// It exists to defeat "the a is" style gaming, not to be linguistically
// complete.
var stopwords = map[string]struct{}{
	"the": {}, "is": {}, "at": {}, "which": {}, "on": {}, "a": {}, "an": {},
	"and": {}, "or": {}, "in": {}, "of": {}, "to": {}, "for": {}, "with": {},
	"by": {}, "from": {}, "as": {}, "it": {}, "this": {}, "that": {},
}

// unattemptedPhrases are surrender markers; answers containing one are
// rejected before any signal or reasoning work is spent on them.
var unattemptedPhrases = []string{
	"i don't know", "i dont know", "idk", "no idea", "don't know",
	"dont know", "not sure", "no clue", "i have no idea", "i am not sure",
	"im not sure", "i do not know", "i dunno", "dunno",
}

var bareDenials = map[string]struct{}{
	"no": {}, "nope": {}, "nah": {}, "na": {}, "nothing": {}, "none": {}, "unknown": {},
}

// Answers shorter than this many characters skip the conditional gibberish
// heuristics so acronyms and single-entity answers ("AI", "Islamabad") are
// never rejected for their letter statistics.
const shortAnswerExemptionChars = 12

// Validator is the deterministic structural gate in front of the pipeline.
// It holds no per-call state and is safe to share across requests.
type Validator struct{}

// NewValidator constructs the structural gate.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the structural checks in a fixed order, short-circuiting on
// the first failure. It returns whether the answer may proceed and a
// human-readable reason when it may not.
func (v *Validator) Validate(answer string, totalMarks float64) (bool, string) {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return false, "Answer is empty."
	}

	if reason, unattempted := v.isUnattempted(trimmed); unattempted {
		return false, reason
	}

	tokens := strings.Fields(trimmed)

	if v.isSpam(tokens) {
		return false, "Answer detected as spam (excessive repetition)."
	}

	if reason, gibberish := v.isGibberish(trimmed, tokens); gibberish {
		return false, reason
	}

	if !v.hasMeaningfulWord(tokens) {
		return false, "Answer contains no meaningful words."
	}

	return true, ""
}

func (v *Validator) isUnattempted(trimmed string) (string, bool) {
	lowered := strings.ToLower(trimmed)

	if _, ok := bareDenials[lowered]; ok {
		return "Answer is unattempted (bare denial).", true
	}

	for _, phrase := range unattemptedPhrases {
		if strings.Contains(lowered, phrase) {
			return fmt.Sprintf("Answer is unattempted (contains %q).", phrase), true
		}
	}

	return "", false
}

// isSpam flags keyword stuffing: a low unique-token ratio over longer
// answers, or any single token dominating the answer.
func (v *Validator) isSpam(tokens []string) bool {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[strings.ToLower(t)]++
	}

	total := len(tokens)
	if total > 6 {
		if float64(len(freq))/float64(total) < 0.4 {
			return true
		}
	}

	if total > 3 {
		for _, count := range freq {
			if float64(count) > float64(total)*0.5 {
				return true
			}
		}
	}

	return false
}

func (v *Validator) isGibberish(trimmed string, tokens []string) (string, bool) {
	var letters []rune
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}

	if len(letters) == 0 {
		return "Answer contains no words (symbolic content only).", true
	}

	// Short answers are exempt from the statistical heuristics below.
	if len([]rune(trimmed)) < shortAnswerExemptionChars {
		return "", false
	}

	totalChars := 0
	for _, t := range tokens {
		totalChars += len([]rune(t))
	}
	if float64(totalChars)/float64(len(tokens)) > 30 {
		return "Answer appears to be gibberish (implausible word length).", true
	}

	vowels, consonants := 0, 0
	for _, r := range letters {
		switch unicode.ToLower(r) {
		case 'a', 'e', 'i', 'o', 'u':
			vowels++
		default:
			consonants++
		}
	}

	if vowels == 0 && consonants > 4 {
		return "Answer appears to be gibberish (no vowels).", true
	}
	if vowels > 0 && float64(consonants)/float64(vowels) > 6 {
		return "Answer appears to be gibberish (implausible letter mix).", true
	}

	return "", false
}

func (v *Validator) hasMeaningfulWord(tokens []string) bool {
	for _, t := range tokens {
		if _, stop := stopwords[strings.ToLower(t)]; !stop {
			return true
		}
	}
	return false
}
