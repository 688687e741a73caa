package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/http/dto"
	"github.com/gorsocial/backend/internal/middleware"
	"github.com/gorsocial/backend/internal/models"
	"github.com/gorsocial/backend/internal/services"
)

type SettlementHandler struct {
	settlements *services.SettlementService
	wallets     services.WalletStore
	log         *zap.Logger
}

func NewSettlementHandler(settlements *services.SettlementService, wallets services.WalletStore, log *zap.Logger) *SettlementHandler {
	return &SettlementHandler{settlements: settlements, wallets: wallets, log: log}
}

// Wallet returns the caller's balance and ticket holdings.
// GET /me/wallet
func (h *SettlementHandler) Wallet(c *fiber.Ctx) error {
	wallet, err := h.wallets.Ensure(c.Context(), middleware.GetWalletAddress(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(wallet)
}

// Tip moves GOR from the caller to another wallet. The call blocks
// until the settlement reaches a terminal state.
// POST /settlements/tip
func (h *SettlementHandler) Tip(c *fiber.Ctx) error {
	var req dto.TipRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	sender := middleware.GetWalletAddress(c)
	settlement, err := h.settlements.Tip(c.Context(), sender, req.Recipient, req.Amount)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(h.withWallet(c, sender, settlement))
}

// BuyTicket purchases one ticket for the target profile.
// POST /settlements/tickets/buy
func (h *SettlementHandler) BuyTicket(c *fiber.Ctx) error {
	var req dto.TicketRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	buyer := middleware.GetWalletAddress(c)
	settlement, err := h.settlements.BuyTicket(c.Context(), buyer, req.Target)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(h.withWallet(c, buyer, settlement))
}

// SellTicket sells one held ticket back. No ledger transfer happens
// on the sell path, so the response comes back fast.
// POST /settlements/tickets/sell
func (h *SettlementHandler) SellTicket(c *fiber.Ctx) error {
	var req dto.TicketRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	seller := middleware.GetWalletAddress(c)
	settlement, err := h.settlements.SellTicket(c.Context(), seller, req.Target)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(h.withWallet(c, seller, settlement))
}

// Stuck lists settlements that confirmed on the ledger but failed to
// mirror, for operator review.
// GET /settlements/stuck
func (h *SettlementHandler) Stuck(c *fiber.Ctx) error {
	stuck, err := h.settlements.ListStuck(c.Context(), c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(stuck)
}

func (h *SettlementHandler) withWallet(c *fiber.Ctx, address string, settlement *models.Settlement) dto.SettlementResponse {
	resp := dto.SettlementResponse{Settlement: settlement}
	if wallet, err := h.wallets.Get(c.Context(), address); err == nil {
		resp.Wallet = wallet
	}
	return resp
}
