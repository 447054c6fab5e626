package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatorRejectsEmptyAndWhitespace(t *testing.T) {
	v := NewValidator()

	for _, answer := range []string{"", "   ", "\n\t "} {
		ok, reason := v.Validate(answer, 10)
		require.False(t, ok, "answer %q should be rejected", answer)
		require.Contains(t, reason, "empty")
	}
}

func TestValidatorRejectsSymbolicContent(t *testing.T) {
	v := NewValidator()

	ok, reason := v.Validate("123@#$", 10)
	require.False(t, ok)
	require.Contains(t, reason, "symbolic")
}

func TestValidatorRejectsGibberish(t *testing.T) {
	v := NewValidator()

	ok, reason := v.Validate("zxcvbnm qwerty", 10)
	require.False(t, ok)
	require.Contains(t, strings.ToLower(reason), "gibberish")

	ok, reason = v.Validate(strings.Repeat("x", 40)+" "+strings.Repeat("z", 40), 10)
	require.False(t, ok)
	require.Contains(t, strings.ToLower(reason), "gibberish")
}

func TestValidatorExemptsShortEntityAnswers(t *testing.T) {
	v := NewValidator()

	for _, answer := range []string{"Islamabad", "AI", "NLP", "TCP/IP"} {
		ok, reason := v.Validate(answer, 10)
		require.True(t, ok, "answer %q should pass: %s", answer, reason)
	}
}

func TestValidatorRejectsSpamRepetition(t *testing.T) {
	v := NewValidator()

	ok, reason := v.Validate("java java java java java java java", 10)
	require.False(t, ok)
	require.Contains(t, strings.ToLower(reason), "spam")

	// A single dominant token in a short answer is also spam.
	ok, _ = v.Validate("java java java code", 10)
	require.False(t, ok)
}

func TestValidatorRejectsStopwordOnlyAnswers(t *testing.T) {
	v := NewValidator()

	ok, reason := v.Validate("the is at on", 10)
	require.False(t, ok)
	require.Contains(t, reason, "meaningful")
}

func TestValidatorRejectsUnattemptedAnswers(t *testing.T) {
	v := NewValidator()

	for _, answer := range []string{"i don't know", "no idea", "idk", "no", "nothing"} {
		ok, reason := v.Validate(answer, 10)
		require.False(t, ok, "answer %q should be rejected", answer)
		require.Contains(t, reason, "unattempted")
	}
}

func TestValidatorAcceptsOrdinaryAnswers(t *testing.T) {
	v := NewValidator()

	answers := []string{
		"Islamabad is the capital of Pakistan",
		"Photosynthesis converts light energy into chemical energy because chlorophyll absorbs sunlight.",
		"A stack is a LIFO data structure",
	}
	for _, answer := range answers {
		ok, reason := v.Validate(answer, 10)
		require.True(t, ok, "answer %q should pass: %s", answer, reason)
	}
}

func TestValidatorIsDeterministic(t *testing.T) {
	v := NewValidator()

	ok1, reason1 := v.Validate("zxcvbnm qwerty", 5)
	ok2, reason2 := v.Validate("zxcvbnm qwerty", 5)
	require.Equal(t, ok1, ok2)
	require.Equal(t, reason1, reason2)
}
