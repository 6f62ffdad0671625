package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/rankontop/backend/internal/analysis"
)

// analysisStatus maps an analysis error to its HTTP status and public message.
func analysisStatus(err error) (int, string) {
	switch {
	case errors.Is(err, analysis.ErrInvalidTarget):
		return fiber.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, analysis.ErrQuotaExceeded):
		return fiber.StatusForbidden, "Free analysis limit reached. Please upgrade."
	case errors.Is(err, analysis.ErrAccountNotFound):
		return fiber.StatusNotFound, "User not found."
	default:
		return fiber.StatusInternalServerError, "Failed to complete analysis"
	}
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
