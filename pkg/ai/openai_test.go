package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/trace/noop"
)

type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return openai.ChatCompletionResponse{}, f.errs[idx]
	}
	content := ""
	if idx < len(f.responses) {
		content = f.responses[idx]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

func testJudge(t *testing.T, completer chatCompleter, retries int) *OpenAIJudge {
	t.Helper()
	return &OpenAIJudge{
		client: completer,
		cfg: OpenAIJudgeConfig{
			Model:        "gpt-4o-mini",
			MaxTokens:    512,
			Timeout:      time.Second,
			MaxRetries:   retries,
			RetryBackoff: time.Millisecond,
		},
		tracer: noop.NewTracerProvider().Tracer("test"),
		logger: zerolog.Nop(),
		sleep:  func(time.Duration) {},
	}
}

func TestJudgeParsesValidResponse(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"concept": 0.9, "completeness": 0.5, "clarity": 0.8, "feedback": "well reasoned", "confidence": 0.85}`,
	}}
	judge := testJudge(t, completer, 2)

	judgment, err := judge.Judge(context.Background(), JudgeInput{Question: "q", StudentAnswer: "a", TotalMarks: 10})
	require.NoError(t, err)
	require.Equal(t, 0.9, judgment.Concept)
	require.Equal(t, 0.85, judgment.Confidence)
	require.Equal(t, 1, completer.calls)
}

func TestJudgeStripsFencedCodeBlocks(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		"```json\n{\"concept\": 0.7, \"completeness\": 0.6, \"clarity\": 0.5, \"feedback\": \"fine\"}\n```",
	}}
	judge := testJudge(t, completer, 0)

	judgment, err := judge.Judge(context.Background(), JudgeInput{})
	require.NoError(t, err)
	require.Equal(t, 0.7, judgment.Concept)
	require.Equal(t, 1.0, judgment.Confidence)
}

func TestJudgeRetriesMalformedOutputThenSucceeds(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		"the answer deserves a good grade",
		`{"concept": 0.6, "completeness": 0.4, "clarity": 0.5, "feedback": "ok"}`,
	}}
	judge := testJudge(t, completer, 2)

	judgment, err := judge.Judge(context.Background(), JudgeInput{})
	require.NoError(t, err)
	require.Equal(t, 0.6, judgment.Concept)
	require.Equal(t, 2, completer.calls)
}

func TestJudgeExhaustsRetriesWithMalformedKind(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"nope", "nope", "nope"}}
	judge := testJudge(t, completer, 2)

	_, err := judge.Judge(context.Background(), JudgeInput{})
	require.Error(t, err)

	var re *ReasoningError
	require.ErrorAs(t, err, &re)
	require.Equal(t, FailureMalformed, re.Kind)
	require.Equal(t, 3, re.Attempts)
	require.Equal(t, 3, completer.calls)
}

func TestJudgeClassifiesTimeout(t *testing.T) {
	completer := &fakeCompleter{errs: []error{context.DeadlineExceeded, context.DeadlineExceeded}}
	judge := testJudge(t, completer, 1)

	_, err := judge.Judge(context.Background(), JudgeInput{})
	var re *ReasoningError
	require.ErrorAs(t, err, &re)
	require.Equal(t, FailureTimeout, re.Kind)
}

func TestJudgeStopsEarlyOnCredentialFailure(t *testing.T) {
	apiErr := &openai.APIError{HTTPStatusCode: 401, Message: "invalid key"}
	completer := &fakeCompleter{errs: []error{apiErr, apiErr, apiErr}}
	judge := testJudge(t, completer, 2)

	_, err := judge.Judge(context.Background(), JudgeInput{})
	var re *ReasoningError
	require.ErrorAs(t, err, &re)
	require.Equal(t, FailureCredential, re.Kind)
	require.Equal(t, 1, completer.calls)
}

func TestParseJudgmentRejectsWrongShape(t *testing.T) {
	cases := []string{
		`{"score": 0.9, "feedback": "missing components"}`,
		`{"concept": "high", "completeness": 0.4, "clarity": 0.5, "feedback": "ok"}`,
		`[0.9, 0.4, 0.5]`,
		`not json at all`,
	}

	for _, content := range cases {
		_, err := ParseJudgment(content)
		require.Error(t, err, "content %q should fail", content)
	}
}

func TestParseJudgmentDefaults(t *testing.T) {
	judgment, err := ParseJudgment(`{"concept": 0.5, "completeness": 0.5, "clarity": 0.5, "feedback": ""}`)
	require.NoError(t, err)
	require.Equal(t, 1.0, judgment.Confidence)
	require.Equal(t, "No feedback provided.", judgment.Feedback)
}

func TestParseJudgmentPreservesExplicitZeroConfidence(t *testing.T) {
	judgment, err := ParseJudgment(`{"concept": 0.5, "completeness": 0.5, "clarity": 0.5, "feedback": "unsure", "confidence": 0.0}`)
	require.NoError(t, err)
	require.Equal(t, 0.0, judgment.Confidence)
}

func TestNewOpenAIJudgeRequiresKey(t *testing.T) {
	_, err := NewOpenAIJudge(OpenAIJudgeConfig{})
	require.Error(t, err)
	require.Equal(t, FailureCredential, KindOf(err))
	require.True(t, errors.As(err, new(*ReasoningError)))
}
