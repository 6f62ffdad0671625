package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rankontop/backend/internal/quota"
	"github.com/rankontop/backend/internal/scoring"
	"github.com/rankontop/backend/internal/signal"
)

var (
	ErrInvalidTarget   = errors.New("invalid analysis target")
	ErrQuotaExceeded   = quota.ErrQuotaExceeded
	ErrAccountNotFound = errors.New("account not found")
	ErrPersistence     = errors.New("failed to persist analysis")
)

const StatusComplete = "complete"

const (
	KindURL = "url"
	KindApp = "app"
)

// Target is what one analysis scores: a URL (with an optional keyword) or an
// app id, never both.
type Target struct {
	URL     string `json:"url,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	AppID   string `json:"app_id,omitempty"`
}

// Normalize trims every field. A keyword given with an app-only target is
// dropped since keyword analysis needs a page.
func (t Target) Normalize() Target {
	t.URL = strings.TrimSpace(t.URL)
	t.Keyword = strings.TrimSpace(t.Keyword)
	t.AppID = strings.TrimSpace(t.AppID)
	if t.URL == "" {
		t.Keyword = ""
	}
	return t
}

func (t Target) Validate() error {
	switch {
	case t.URL == "" && t.AppID == "":
		return fmt.Errorf("%w: provide a URL or an app id", ErrInvalidTarget)
	case t.URL != "" && t.AppID != "":
		return fmt.Errorf("%w: provide either a URL or an app id, not both", ErrInvalidTarget)
	case t.URL != "":
		u, err := url.ParseRequestURI(t.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidTarget, t.URL)
		}
	}
	return nil
}

func (t Target) Kind() string {
	if t.URL != "" {
		return KindURL
	}
	return KindApp
}

// Label is the value stored as the analysed target.
func (t Target) Label() string {
	if t.URL != "" {
		return t.URL
	}
	return t.AppID
}

// Signals keeps the raw adapter results behind a record. Adapters that were
// not run are nil.
type Signals struct {
	Performance *signal.Result[signal.Performance]    `json:"performance,omitempty"`
	Content     *signal.Result[signal.PageContent]    `json:"on_page,omitempty"`
	Keyword     *signal.Result[signal.KeywordInsight] `json:"keyword,omitempty"`
	App         *signal.Result[signal.AppReputation]  `json:"app,omitempty"`
}

// Record is the immutable outcome of one analysis.
type Record struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Target       Target            `json:"target"`
	Scores       scoring.SubScores `json:"scores"`
	OverallScore float64           `json:"overall_score"`
	Signals      Signals           `json:"signals"`
	CreatedAt    time.Time         `json:"created_at"`
}

type PerformanceSource interface {
	Fetch(ctx context.Context, pageURL string) signal.Result[signal.Performance]
}

type ContentSource interface {
	Fetch(ctx context.Context, pageURL string) signal.Result[signal.PageContent]
}

type KeywordSource interface {
	Fetch(ctx context.Context, keyword, pageURL string) signal.Result[signal.KeywordInsight]
}

type AppSource interface {
	Fetch(ctx context.Context, appID string) signal.Result[signal.AppReputation]
}

// Sources are the signal adapters an analysis draws on.
type Sources struct {
	Performance PerformanceSource
	Content     ContentSource
	Keyword     KeywordSource
	App         AppSource
}

// AccountStore resolves an authenticated identity to its quota state. It
// returns an error wrapping ErrAccountNotFound for unknown identities.
type AccountStore interface {
	LookupAccount(ctx context.Context, identity string) (quota.Account, error)
}

// Store persists finished records and counts them against the owner's quota.
// SaveAndCount stores rec and increments the owner's analysis count as one
// atomic unit and returns the new count. A free-tier owner already at
// freeLimit gets an error wrapping ErrQuotaExceeded and nothing is stored.
type Store interface {
	SaveAndCount(ctx context.Context, ownerID int64, rec *Record, freeLimit int) (int, error)
}
