// Package signal holds the fixed-shape results returned by signal source
// adapters. A Result is either ok with a payload or failed with a description.
package signal

import "fmt"

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Result is the outcome of one adapter call. Data is set only when Status is
// StatusOK and Error only when Status is StatusFailed.
type Result[T any] struct {
	Status Status `json:"status"`
	Data   *T     `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func OK[T any](v T) Result[T] {
	return Result[T]{Status: StatusOK, Data: &v}
}

func Failed[T any](err error) Result[T] {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result[T]{Status: StatusFailed, Error: msg}
}

// Failedf builds a failed result from a format string.
func Failedf[T any](format string, args ...any) Result[T] {
	return Result[T]{Status: StatusFailed, Error: fmt.Sprintf(format, args...)}
}

func (r Result[T]) OK() bool {
	return r.Status == StatusOK && r.Data != nil
}

// Value returns the payload and whether the result is ok.
func (r Result[T]) Value() (T, bool) {
	if !r.OK() {
		var zero T
		return zero, false
	}
	return *r.Data, true
}

// Performance is the page-speed measurement of a URL.
type Performance struct {
	Score    float64 `json:"performance_score"`
	Strategy string  `json:"strategy,omitempty"`
}

// PageContent lists the structural on-page elements found on a URL.
type PageContent struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"meta_description,omitempty"`
	Heading     string `json:"h1,omitempty"`
	Text        string `json:"-"`
}

func (p PageContent) HasTitle() bool       { return p.Title != "" }
func (p PageContent) HasDescription() bool { return p.Description != "" }
func (p PageContent) HasHeading() bool     { return p.Heading != "" }

// KeywordInsight is the competitiveness data for one keyword.
type KeywordInsight struct {
	Keyword        string `json:"keyword_analyzed"`
	CompetingPages int64  `json:"competing_pages"`
	Difficulty     string `json:"estimated_difficulty"`
	InTop10        bool   `json:"domain_in_top_10"`
}

// Origin tells which path produced an app reputation.
type Origin string

const (
	OriginProvider  Origin = "provider"
	OriginEstimated Origin = "estimated"
)

// AppReputation is the store rating and review sentiment of an app.
type AppReputation struct {
	AppID     string  `json:"app_id"`
	Rating    float64 `json:"user_rating"`
	Sentiment float64 `json:"review_sentiment_score"`
	Origin    Origin  `json:"origin"`
}
