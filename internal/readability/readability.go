// Package readability estimates how readable a page is for AI answer engines,
// on a 0-100 scale.
package readability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/llm"
	"github.com/rankontop/backend/internal/signal"
	"github.com/rankontop/backend/pkg/logger"
	"github.com/rankontop/backend/pkg/utils"
)

const (
	ModePlaceholder = "placeholder"
	ModeFlesch      = "flesch"
	ModeLLM         = "llm"
)

var ErrNoText = errors.New("page has no readable text")

type Estimator interface {
	Estimate(ctx context.Context, page signal.PageContent) (float64, error)
}

// Constant always answers with the same value.
type Constant float64

func (c Constant) Estimate(context.Context, signal.PageContent) (float64, error) {
	return float64(c), nil
}

// Flesch computes the Flesch reading-ease of the page text.
type Flesch struct{}

func (Flesch) Estimate(_ context.Context, page signal.PageContent) (float64, error) {
	text := strings.TrimSpace(page.Text)
	if text == "" {
		return 0, ErrNoText
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to segment text: %w", err)
	}

	sentences := len(doc.Sentences())
	words, syllables := 0, 0
	for _, tok := range doc.Tokens() {
		if !hasLetter(tok.Text) {
			continue
		}
		words++
		syllables += countSyllables(tok.Text)
	}
	if words == 0 {
		return 0, ErrNoText
	}
	if sentences == 0 {
		sentences = 1
	}

	score := 206.835 - 1.015*(float64(words)/float64(sentences)) - 84.6*(float64(syllables)/float64(words))
	return math.Max(0, math.Min(100, score)), nil
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// countSyllables counts vowel groups, dropping a silent trailing "e".
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// LLM asks a chat model to grade the page.
type LLM struct {
	client Completer
}

func NewLLM(client Completer) *LLM {
	return &LLM{client: client}
}

const llmSystemPrompt = `You grade web pages for how easily an AI assistant could quote and summarise them.
Consider clarity, structure and directness of the answers the page gives.
Reply with a single integer from 0 to 100 and nothing else.`

const maxPromptText = 4000

var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

func (l *LLM) Estimate(ctx context.Context, page signal.PageContent) (float64, error) {
	text := utils.TruncateUTF8(page.Text, maxPromptText)
	if strings.TrimSpace(text) == "" && !page.HasTitle() && !page.HasHeading() {
		return 0, ErrNoText
	}

	prompt := fmt.Sprintf("Title: %s\nDescription: %s\nHeading: %s\n\n%s",
		page.Title, page.Description, page.Heading, text)

	resp, err := l.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: llmSystemPrompt,
		UserPrompt:   prompt,
	})
	if err != nil {
		return 0, err
	}

	return ParseScore(resp.Content)
}

// ParseScore reads the first number in a model reply and clamps it to 0-100.
func ParseScore(reply string) (float64, error) {
	match := numberPattern.FindString(reply)
	if match == "" {
		return 0, fmt.Errorf("no score in reply %q", reply)
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse score: %w", err)
	}
	return math.Max(0, math.Min(100, v)), nil
}

// WithFallback answers with fallback whenever the wrapped estimator fails.
type WithFallback struct {
	Estimator Estimator
	Fallback  float64
}

func (w WithFallback) Estimate(ctx context.Context, page signal.PageContent) (float64, error) {
	v, err := w.Estimator.Estimate(ctx, page)
	if err != nil {
		logger.Debug("Readability estimate unavailable, using fallback",
			zap.Float64("fallback", w.Fallback), zap.Error(err))
		return w.Fallback, nil
	}
	return v, nil
}

// New builds the estimator for mode. Every mode except the placeholder falls
// back to placeholder on error.
func New(mode string, placeholder float64, client Completer) (Estimator, error) {
	switch mode {
	case "", ModePlaceholder:
		return Constant(placeholder), nil
	case ModeFlesch:
		return WithFallback{Estimator: Flesch{}, Fallback: placeholder}, nil
	case ModeLLM:
		if client == nil {
			return nil, fmt.Errorf("readability mode %q needs an llm client", mode)
		}
		return WithFallback{Estimator: NewLLM(client), Fallback: placeholder}, nil
	default:
		return nil, fmt.Errorf("unknown readability mode %q", mode)
	}
}
