package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/metrics"
	"github.com/rankontop/backend/internal/quota"
	"github.com/rankontop/backend/internal/readability"
	"github.com/rankontop/backend/internal/scoring"
	"github.com/rankontop/backend/internal/signal"
	"github.com/rankontop/backend/pkg/logger"
)

type Config struct {
	Gate        *quota.Gate
	Readability readability.Estimator
	CTR         scoring.CTREstimator
}

type Service struct {
	sources     Sources
	accounts    AccountStore
	store       Store
	gate        *quota.Gate
	readability readability.Estimator
	ctr         scoring.CTREstimator
	now         func() time.Time
}

func NewService(sources Sources, accounts AccountStore, store Store, cfg Config) *Service {
	if cfg.Gate == nil {
		cfg.Gate = quota.NewGate(quota.DefaultFreeTierLimit)
	}
	if cfg.Readability == nil {
		cfg.Readability = readability.Constant(scoring.ProvisionalReadability)
	}
	if cfg.CTR == nil {
		cfg.CTR = scoring.ConstantCTR(scoring.ProvisionalCTR)
	}

	return &Service{
		sources:     sources,
		accounts:    accounts,
		store:       store,
		gate:        cfg.Gate,
		readability: cfg.Readability,
		ctr:         cfg.CTR,
		now:         time.Now,
	}
}

// Analyze runs one quota-counted analysis for identity. Rejected targets,
// unknown accounts and exhausted quotas return before any adapter runs. The
// record is saved and counted together, or not at all.
func (s *Service) Analyze(ctx context.Context, identity string, target Target) (*Record, error) {
	target = target.Normalize()
	if err := target.Validate(); err != nil {
		metrics.AnalysisTotal.WithLabelValues("invalid_target").Inc()
		return nil, err
	}

	acc, err := s.accounts.LookupAccount(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			metrics.AnalysisTotal.WithLabelValues("account_not_found").Inc()
			return nil, err
		}
		metrics.AnalysisTotal.WithLabelValues("persistence_error").Inc()
		return nil, fmt.Errorf("%w: account lookup: %v", ErrPersistence, err)
	}

	if err := s.gate.Check(acc); err != nil {
		metrics.AnalysisTotal.WithLabelValues("quota_exceeded").Inc()
		logger.Info("Analysis rejected by quota",
			zap.Int64("account_id", acc.ID),
			zap.Int("analysis_count", acc.AnalysisCount),
		)
		return nil, err
	}

	rec := s.evaluate(ctx, target)

	// The gate above only rejects early. Concurrent requests can all pass it,
	// so the store re-checks the limit in the same transaction as the save.
	count, err := s.store.SaveAndCount(ctx, acc.ID, rec, s.gate.FreeLimit())
	if errors.Is(err, ErrQuotaExceeded) {
		metrics.AnalysisTotal.WithLabelValues("quota_exceeded").Inc()
		logger.Info("Analysis rejected by quota on save",
			zap.String("analysis_id", rec.ID),
			zap.Int64("account_id", acc.ID),
		)
		return nil, err
	}
	if err != nil {
		metrics.AnalysisTotal.WithLabelValues("persistence_error").Inc()
		logger.Error("Failed to save analysis", zap.String("analysis_id", rec.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.AnalysisTotal.WithLabelValues(StatusComplete).Inc()
	logger.Info("Analysis complete",
		zap.String("analysis_id", rec.ID),
		zap.Int64("account_id", acc.ID),
		zap.String("target", target.Label()),
		zap.Float64("overall_score", rec.OverallScore),
		zap.Int("analysis_count", count),
	)

	return rec, nil
}

// Evaluate scores target without touching quota or persistence.
func (s *Service) Evaluate(ctx context.Context, target Target) (*Record, error) {
	target = target.Normalize()
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return s.evaluate(ctx, target), nil
}

func (s *Service) evaluate(ctx context.Context, target Target) *Record {
	start := s.now()

	var signals Signals
	if target.Kind() == KindURL {
		signals = s.fetchPage(ctx, target)
	} else {
		app := s.sources.App.Fetch(ctx, target.AppID)
		signals.App = &app
	}

	scores := s.score(ctx, signals)
	overall := scoring.Composite(scores)

	for _, d := range scores.Dimensions() {
		v, _ := scores.Get(d)
		metrics.SubScore.WithLabelValues(string(d)).Observe(v)
	}
	metrics.OverallScore.Observe(overall)
	metrics.AnalysisDuration.WithLabelValues(target.Kind()).Observe(s.now().Sub(start).Seconds())

	return &Record{
		ID:           uuid.New().String(),
		Status:       StatusComplete,
		Target:       target,
		Scores:       scores,
		OverallScore: overall,
		Signals:      signals,
		CreatedAt:    s.now().UTC(),
	}
}

// fetchPage runs the page adapters concurrently. They share nothing, and none
// of them can fail the request.
func (s *Service) fetchPage(ctx context.Context, target Target) Signals {
	var (
		wg          sync.WaitGroup
		performance signal.Result[signal.Performance]
		content     signal.Result[signal.PageContent]
		keyword     signal.Result[signal.KeywordInsight]
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		performance = s.sources.Performance.Fetch(ctx, target.URL)
	}()
	go func() {
		defer wg.Done()
		content = s.sources.Content.Fetch(ctx, target.URL)
	}()
	if target.Keyword != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keyword = s.sources.Keyword.Fetch(ctx, target.Keyword, target.URL)
		}()
	}
	wg.Wait()

	signals := Signals{Performance: &performance, Content: &content}
	if target.Keyword != "" {
		signals.Keyword = &keyword
	}
	return signals
}

func (s *Service) score(ctx context.Context, signals Signals) scoring.SubScores {
	var scores scoring.SubScores

	if signals.Performance != nil && signals.Content != nil {
		ctr := s.ctr.EstimateCTR(valueOrFailed(signals.Keyword))
		seo := scoring.SEO(
			scoring.PerformanceContribution(*signals.Performance),
			scoring.Completeness(*signals.Content),
			ctr,
		)
		scores.SEO = scoring.Score(seo)
	}

	if signals.Keyword != nil && signals.Keyword.OK() {
		page, _ := signals.Content.Value()
		readable, err := s.readability.Estimate(ctx, page)
		if err != nil {
			readable = scoring.ProvisionalReadability
		}
		if aieo, ok := scoring.AIEO(*signals.Keyword, readable); ok {
			scores.AIEO = scoring.Score(aieo)
		}
	}

	if signals.App != nil {
		scores.ASO = scoring.Score(scoring.ASO(*signals.App))
	}

	return scores
}

func valueOrFailed(r *signal.Result[signal.KeywordInsight]) signal.Result[signal.KeywordInsight] {
	if r == nil {
		return signal.Failedf[signal.KeywordInsight]("keyword not requested")
	}
	return *r
}
