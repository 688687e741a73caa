package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/auth"
	"github.com/gorsocial/backend/internal/http/dto"
	"github.com/gorsocial/backend/internal/repositories"
	"github.com/gorsocial/backend/internal/services"
)

type AuthHandler struct {
	nonces        *repositories.NonceRepo
	social        *services.SocialService
	jwtSecret     string
	jwtExpiration time.Duration
	nonceTTL      time.Duration
	log           *zap.Logger
}

func NewAuthHandler(
	nonces *repositories.NonceRepo,
	social *services.SocialService,
	jwtSecret string,
	jwtExpiration time.Duration,
	nonceTTL time.Duration,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		nonces:        nonces,
		social:        social,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		nonceTTL:      nonceTTL,
		log:           log,
	}
}

// Nonce issues a single-use challenge a wallet must sign to prove ownership.
// POST /auth/nonce
func (h *AuthHandler) Nonce(c *fiber.Ctx) error {
	var req dto.NonceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "wallet_address is required"})
	}

	nonce, err := h.nonces.Create(c.Context(), req.WalletAddress, h.nonceTTL)
	if err != nil {
		h.log.Error("failed to create auth nonce", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.NonceResponse{Nonce: nonce})
}

// Verify checks the signed nonce and returns a session token. The
// profile row is created lazily on first sign-in.
// POST /auth/verify
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.WalletAddress == "" || req.Proof.Nonce == "" || req.Proof.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "wallet_address, proof.nonce and proof.signature are required"})
	}

	if err := h.nonces.Consume(c.Context(), req.Proof.Nonce); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unknown or expired nonce"})
	}
	if err := auth.VerifyProof(req.WalletAddress, req.Proof); err != nil {
		h.log.Debug("wallet proof rejected", zap.String("wallet", req.WalletAddress), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid wallet proof"})
	}

	if _, err := h.social.EnsureProfile(c.Context(), req.WalletAddress); err != nil {
		return respondError(c, h.log, err)
	}

	token, err := auth.GenerateJWT(h.jwtSecret, req.WalletAddress, h.jwtExpiration)
	if err != nil {
		h.log.Error("failed to sign token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.TokenResponse{Token: token, WalletAddress: req.WalletAddress})
}
