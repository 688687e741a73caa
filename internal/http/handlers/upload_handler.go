package handlers

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/blobstore"
	"github.com/gorsocial/backend/internal/http/dto"
	"github.com/gorsocial/backend/internal/middleware"
)

const maxUploadBytes = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type UploadHandler struct {
	store *blobstore.Store
	log   *zap.Logger
}

func NewUploadHandler(store *blobstore.Store, log *zap.Logger) *UploadHandler {
	return &UploadHandler{store: store, log: log}
}

// Image accepts a multipart image and returns its public URL for use
// as a post attachment.
// POST /uploads/image
func (h *UploadHandler) Image(c *fiber.Ctx) error {
	if h.store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "uploads are not configured"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "file is required"})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{Error: "file exceeds 5MB limit"})
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "unsupported image type"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Error("failed to open upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.log.Error("failed to read upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	key := "images/" + middleware.GetWalletAddress(c) + "/" + uuid.NewString() + ext
	url, err := h.store.Upload(c.Context(), key, contentType, data)
	if err != nil {
		h.log.Error("blob upload failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "upload failed"})
	}
	return c.JSON(dto.UploadResponse{URL: url})
}
