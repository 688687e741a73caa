package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/http/dto"
	"github.com/gorsocial/backend/internal/middleware"
	"github.com/gorsocial/backend/internal/services"
)

type ProfileHandler struct {
	social *services.SocialService
	log    *zap.Logger
}

func NewProfileHandler(social *services.SocialService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{social: social, log: log}
}

// Get returns a profile by wallet address.
// GET /profiles/:address
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	profile, err := h.social.GetProfile(c.Context(), c.Params("address"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(profile)
}

// Me returns the caller's own profile, creating it on first access.
// GET /me/profile
func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	address := middleware.GetWalletAddress(c)
	profile, err := h.social.EnsureProfile(c.Context(), address)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(profile)
}

// Update changes the caller's username and bio.
// PUT /me/profile
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	address := middleware.GetWalletAddress(c)
	if err := h.social.UpdateProfile(c.Context(), address, req.Username, req.Bio); err != nil {
		return respondError(c, h.log, err)
	}
	profile, err := h.social.GetProfile(c.Context(), address)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(profile)
}

// Follow adds the target to the caller's following set.
// POST /profiles/:address/follow
func (h *ProfileHandler) Follow(c *fiber.Ctx) error {
	if err := h.social.Follow(c.Context(), middleware.GetWalletAddress(c), c.Params("address")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Unfollow removes the target from the caller's following set.
// DELETE /profiles/:address/follow
func (h *ProfileHandler) Unfollow(c *fiber.Ctx) error {
	if err := h.social.Unfollow(c.Context(), middleware.GetWalletAddress(c), c.Params("address")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Block adds the target to the caller's blocked set.
// POST /profiles/:address/block
func (h *ProfileHandler) Block(c *fiber.Ctx) error {
	if err := h.social.Block(c.Context(), middleware.GetWalletAddress(c), c.Params("address")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Unblock removes the target from the caller's blocked set.
// DELETE /profiles/:address/block
func (h *ProfileHandler) Unblock(c *fiber.Ctx) error {
	if err := h.social.Unblock(c.Context(), middleware.GetWalletAddress(c), c.Params("address")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
