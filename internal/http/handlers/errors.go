package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/http/dto"
	"github.com/gorsocial/backend/internal/ledger"
	"github.com/gorsocial/backend/internal/repositories"
	"github.com/gorsocial/backend/internal/services"
)

// respondError maps service errors onto HTTP statuses. Validation
// failures are the caller's fault, missing records are 404, ledger
// rejections and timeouts surface as 502 so clients can distinguish
// them from our own faults.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: ve.Reason})
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "not found"})
	}
	var le *ledger.LedgerError
	if errors.As(err, &le) {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "ledger transfer " + le.Code})
	}
	log.Error("request failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
}
