package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/metrics"
	"github.com/rankontop/backend/internal/providers"
	"github.com/rankontop/backend/internal/signal"
	"github.com/rankontop/backend/pkg/logger"
	"github.com/rankontop/backend/pkg/utils"
)

const (
	providerName     = "scraper"
	DefaultUserAgent = "RankOnTopBot/1.0"
	maxTextLength    = 20000
)

// Scraper fetches a page and extracts its on-page SEO elements.
type Scraper struct {
	userAgent  string
	httpClient *http.Client
	guard      *providers.Guard
}

func New(userAgent string, timeout time.Duration) *Scraper {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Scraper{
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		guard:      providers.NewGuard(providerName, 1),
	}
}

// Fetch never returns an error; an unreachable page or non-2xx answer is a
// failed result.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) signal.Result[signal.PageContent] {
	var content signal.PageContent
	err := s.guard.Do(ctx, func() error {
		var err error
		content, err = s.scrape(ctx, pageURL)
		return err
	})
	if err != nil {
		metrics.AdapterFailures.WithLabelValues(providerName).Inc()
		logger.Warn("Failed to scrape page", zap.String("url", pageURL), zap.Error(err))
		return signal.Failed[signal.PageContent](err)
	}

	logger.Debug("Page scraped",
		zap.String("url", pageURL),
		zap.Bool("title", content.HasTitle()),
		zap.Bool("description", content.HasDescription()),
		zap.Bool("h1", content.HasHeading()),
	)
	return signal.OK(content)
}

func (s *Scraper) scrape(ctx context.Context, pageURL string) (signal.PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return signal.PageContent{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return signal.PageContent{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if err := providers.CheckStatus(providerName, resp); err != nil {
		return signal.PageContent{}, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return signal.PageContent{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return Extract(doc), nil
}

// Extract reads the title, meta description, first h1 and visible body text.
// Elements that are absent or blank come back empty.
func Extract(doc *goquery.Document) signal.PageContent {
	var content signal.PageContent

	content.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("meta").EachWithBreak(func(_ int, m *goquery.Selection) bool {
		name, _ := m.Attr("name")
		if !strings.EqualFold(name, "description") {
			return true
		}
		desc, _ := m.Attr("content")
		content.Description = strings.TrimSpace(desc)
		return false
	})

	content.Heading = strings.TrimSpace(doc.Find("h1").First().Text())

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(body.Text()), " ")
	content.Text = utils.TruncateUTF8(text, maxTextLength)

	return content
}
