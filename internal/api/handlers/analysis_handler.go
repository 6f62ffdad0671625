package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/analysis"
	"github.com/rankontop/backend/internal/auth"
	"github.com/rankontop/backend/internal/middleware/validation"
	"github.com/rankontop/backend/internal/quota"
	"github.com/rankontop/backend/internal/storage/models"
	"github.com/rankontop/backend/pkg/logger"
)

const maxHistoryLimit = 100

type Analyzer interface {
	Analyze(ctx context.Context, identity string, target analysis.Target) (*analysis.Record, error)
}

type HistoryStore interface {
	analysis.AccountStore
	ListAnalyses(ctx context.Context, userID int64, limit int) ([]models.AnalysisEntry, error)
}

type AnalysisHandler struct {
	analyzer Analyzer
	history  HistoryStore
	gate     *quota.Gate
}

func NewAnalysisHandler(analyzer Analyzer, history HistoryStore, gate *quota.Gate) *AnalysisHandler {
	if gate == nil {
		gate = quota.NewGate(quota.DefaultFreeTierLimit)
	}
	return &AnalysisHandler{
		analyzer: analyzer,
		history:  history,
		gate:     gate,
	}
}

// HandleAnalyze expects auth.Middleware and validation.AnalyzeBody in front.
func (h *AnalysisHandler) HandleAnalyze(c *fiber.Ctx) error {
	target, ok := validation.Target(c)
	if !ok {
		return writeError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	rec, err := h.analyzer.Analyze(c.UserContext(), auth.Identity(c), target)
	if err != nil {
		status, msg := analysisStatus(err)
		if status == fiber.StatusInternalServerError {
			logger.Error("Analysis failed", zap.Error(err))
		}
		return writeError(c, status, msg)
	}

	return c.JSON(rec)
}

func (h *AnalysisHandler) ListAnalyses(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > maxHistoryLimit {
		return writeError(c, fiber.StatusUnprocessableEntity, "limit must be between 1 and 100")
	}

	acc, err := h.history.LookupAccount(c.UserContext(), auth.Identity(c))
	if err != nil {
		if errors.Is(err, analysis.ErrAccountNotFound) {
			return writeError(c, fiber.StatusNotFound, "User not found.")
		}
		logger.Error("Failed to look up account", zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "Failed to load history")
	}

	entries, err := h.history.ListAnalyses(c.UserContext(), acc.ID, limit)
	if err != nil {
		logger.Error("Failed to list analyses", zap.Int64("user_id", acc.ID), zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "Failed to load history")
	}

	// remaining_analyses is -1 for tiers without a limit.
	return c.JSON(fiber.Map{
		"analyses":           entries,
		"analysis_count":     acc.AnalysisCount,
		"tier":               acc.Tier,
		"remaining_analyses": h.gate.Remaining(acc),
	})
}
