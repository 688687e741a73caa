package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/http/dto"
	"github.com/gorsocial/backend/internal/middleware"
	"github.com/gorsocial/backend/internal/services"
)

type NotificationHandler struct {
	notifier *services.Notifier
	log      *zap.Logger
}

func NewNotificationHandler(notifier *services.Notifier, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, log: log}
}

// List returns the caller's notifications, newest first.
// GET /me/notifications
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	notifications, err := h.notifier.List(c.Context(), middleware.GetWalletAddress(c), c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(notifications)
}

// MarkRead flags one of the caller's notifications as read.
// POST /me/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid notification id"})
	}
	if err := h.notifier.MarkRead(c.Context(), id, middleware.GetWalletAddress(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
