package readability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankontop/backend/internal/llm"
	"github.com/rankontop/backend/internal/signal"
)

func TestConstant(t *testing.T) {
	v, err := Constant(70).Estimate(context.Background(), signal.PageContent{})
	require.NoError(t, err)
	assert.Equal(t, 70.0, v)
}

func TestFlesch_SimpleTextScoresHigher(t *testing.T) {
	simple := signal.PageContent{Text: "The cat sat. The dog ran. We had fun. It was a good day."}
	dense := signal.PageContent{Text: "Notwithstanding considerable organizational heterogeneity, interdisciplinary collaboration necessitates comprehensive institutional accountability mechanisms."}

	s, err := Flesch{}.Estimate(context.Background(), simple)
	require.NoError(t, err)
	d, err := Flesch{}.Estimate(context.Background(), dense)
	require.NoError(t, err)

	assert.Greater(t, s, d)
	assert.GreaterOrEqual(t, d, 0.0)
	assert.LessOrEqual(t, s, 100.0)
}

func TestFlesch_NoText(t *testing.T) {
	_, err := Flesch{}.Estimate(context.Background(), signal.PageContent{Text: "   "})
	assert.ErrorIs(t, err, ErrNoText)
}

func TestCountSyllables(t *testing.T) {
	assert.Equal(t, 1, countSyllables("cat"))
	assert.Equal(t, 1, countSyllables("make"))
	assert.Equal(t, 2, countSyllables("table"))
	assert.Equal(t, 3, countSyllables("banana"))
	assert.Equal(t, 1, countSyllables("rhythm"))
}

func TestParseScore(t *testing.T) {
	v, err := ParseScore("Score: 82")
	require.NoError(t, err)
	assert.Equal(t, 82.0, v)

	v, err = ParseScore("140")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	_, err = ParseScore("no idea")
	assert.Error(t, err)
}

type fakeCompleter struct {
	reply string
	err   error
}

func (f fakeCompleter) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.reply}, nil
}

type promptRecorder struct{ prompt string }

func (p *promptRecorder) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.prompt = req.UserPrompt
	return &llm.CompletionResponse{Content: "50"}, nil
}

func TestLLM_PromptStaysValidUTF8(t *testing.T) {
	rec := &promptRecorder{}
	page := signal.PageContent{Text: "a" + strings.Repeat("é", maxPromptText/2)}

	_, err := NewLLM(rec).Estimate(context.Background(), page)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(rec.prompt))
	assert.NotContains(t, rec.prompt, strings.Repeat("é", maxPromptText/2))
}

func TestLLM(t *testing.T) {
	page := signal.PageContent{Title: "Widgets", Text: "We sell widgets."}

	v, err := NewLLM(fakeCompleter{reply: "64"}).Estimate(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, 64.0, v)
}

func TestNew_FallsBackOnError(t *testing.T) {
	est, err := New(ModeLLM, 70, fakeCompleter{err: errors.New("timeout")})
	require.NoError(t, err)

	v, err := est.Estimate(context.Background(), signal.PageContent{Title: "x", Text: "y"})
	require.NoError(t, err)
	assert.Equal(t, 70.0, v)
}

func TestNew_Modes(t *testing.T) {
	est, err := New("", 70, nil)
	require.NoError(t, err)
	assert.Equal(t, Constant(70), est)

	_, err = New(ModeLLM, 70, nil)
	assert.Error(t, err)

	_, err = New("magic", 70, nil)
	assert.Error(t, err)

	est, err = New(ModeFlesch, 70, nil)
	require.NoError(t, err)
	v, err := est.Estimate(context.Background(), signal.PageContent{})
	require.NoError(t, err)
	assert.Equal(t, 70.0, v)
}
