package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeEncoder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func TestSimilarityEmptyAnswerIsNoise(t *testing.T) {
	e := NewSimilarityEngine(&fakeEncoder{}, zerolog.Nop())

	score, band := e.EvaluateWithBand(context.Background(), "   ", "reference")
	require.Equal(t, 0.0, score)
	require.Equal(t, BandNoise, band)
}

func TestSimilarityMissingReferenceIsNeutral(t *testing.T) {
	e := NewSimilarityEngine(&fakeEncoder{}, zerolog.Nop())

	score, band := e.EvaluateWithBand(context.Background(), "Islamabad", "")
	require.Equal(t, 0.5, score)
	require.Equal(t, BandPartial, band)
}

func TestSimilarityExactMatchSkipsEmbeddings(t *testing.T) {
	encoder := &fakeEncoder{}
	e := NewSimilarityEngine(encoder, zerolog.Nop())

	score, band := e.EvaluateWithBand(context.Background(), "islamabad", "Islamabad")
	require.Equal(t, 1.0, score)
	require.Equal(t, BandFull, band)
	require.Equal(t, 0, encoder.calls)
}

func TestSimilarityTokenSubsetIsFullMatch(t *testing.T) {
	encoder := &fakeEncoder{}
	e := NewSimilarityEngine(encoder, zerolog.Nop())

	score, band := e.EvaluateWithBand(context.Background(), "Islamabad", "Islamabad is the capital of Pakistan")
	require.Equal(t, 1.0, score)
	require.Equal(t, BandFull, band)
	require.Equal(t, 0, encoder.calls)

	// Five tokens no longer qualify for the subset override.
	_, band = e.EvaluateWithBand(context.Background(), "Islamabad is the capital of", "Islamabad is the capital of Pakistan")
	require.NotEqual(t, 0, encoder.calls)
	_ = band
}

func TestSimilarityCosineBands(t *testing.T) {
	encoder := &fakeEncoder{vectors: map[string][]float32{
		"aligned answer":  {1, 0},
		"opposed answer":  {-1, 0},
		"sideways answer": {0, 1},
		"the reference":   {1, 0},
	}}
	e := NewSimilarityEngine(encoder, zerolog.Nop())

	score, band := e.EvaluateWithBand(context.Background(), "aligned answer", "the reference")
	require.Equal(t, 1.0, score)
	require.Equal(t, BandFull, band)

	score, band = e.EvaluateWithBand(context.Background(), "opposed answer", "the reference")
	require.Equal(t, 0.0, score)
	require.Equal(t, BandNoise, band)

	score, band = e.EvaluateWithBand(context.Background(), "sideways answer", "the reference")
	require.Equal(t, 0.5, score)
	require.Equal(t, BandPartial, band)
}

func TestSimilarityDegradesOnEncoderFailure(t *testing.T) {
	encoder := &fakeEncoder{err: errors.New("model unavailable")}
	e := NewSimilarityEngine(encoder, zerolog.Nop())

	score, band := e.EvaluateWithBand(context.Background(), "a perfectly reasonable answer", "a different reference entirely")
	require.Equal(t, 0.5, score)
	require.Equal(t, BandPartial, band)
}
