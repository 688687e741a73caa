package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gorsocial/backend/internal/auth"
	"github.com/gorsocial/backend/internal/config"
	"go.uber.org/zap"
)

const CtxWalletAddress = "wallet_address"

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxWalletAddress, claims.WalletAddress)

		return c.Next()
	}
}

func GetWalletAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(CtxWalletAddress).(string)
	return addr
}
