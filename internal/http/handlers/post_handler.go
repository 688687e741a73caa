package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/http/dto"
	"github.com/gorsocial/backend/internal/middleware"
	"github.com/gorsocial/backend/internal/services"
)

const defaultFeedLimit = 100

type PostHandler struct {
	social *services.SocialService
	log    *zap.Logger
}

func NewPostHandler(social *services.SocialService, log *zap.Logger) *PostHandler {
	return &PostHandler{social: social, log: log}
}

func parsePostID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

// Create publishes a new post authored by the caller.
// POST /posts
func (h *PostHandler) Create(c *fiber.Ctx) error {
	var req dto.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	post, err := h.social.CreatePost(c.Context(), middleware.GetWalletAddress(c), req.Content, req.ImageURL)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// Feed returns the newest posts across all authors.
// GET /posts
func (h *PostHandler) Feed(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultFeedLimit)
	posts, err := h.social.ListFeed(c.Context(), limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(posts)
}

// ByAuthor returns one author's posts, newest first.
// GET /profiles/:address/posts
func (h *PostHandler) ByAuthor(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultFeedLimit)
	posts, err := h.social.ListByAuthor(c.Context(), c.Params("address"), limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(posts)
}

// Get returns a single post.
// GET /posts/:id
func (h *PostHandler) Get(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid post id"})
	}
	post, err := h.social.GetPost(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(post)
}

// Like records the caller in the post's likes set.
// POST /posts/:id/like
func (h *PostHandler) Like(c *fiber.Ctx) error {
	return h.reaction(c, h.social.Like)
}

// Unlike removes the caller from the post's likes set.
// DELETE /posts/:id/like
func (h *PostHandler) Unlike(c *fiber.Ctx) error {
	return h.reaction(c, h.social.Unlike)
}

// Repost records the caller in the post's reposts set.
// POST /posts/:id/repost
func (h *PostHandler) Repost(c *fiber.Ctx) error {
	return h.reaction(c, h.social.Repost)
}

// Unrepost removes the caller from the post's reposts set.
// DELETE /posts/:id/repost
func (h *PostHandler) Unrepost(c *fiber.Ctx) error {
	return h.reaction(c, h.social.Unrepost)
}

func (h *PostHandler) reaction(c *fiber.Ctx, op func(ctx context.Context, postID uuid.UUID, address string) error) error {
	id, err := parsePostID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid post id"})
	}
	if err := op(c.Context(), id, middleware.GetWalletAddress(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Comment attaches a comment to a post.
// POST /posts/:id/comments
func (h *PostHandler) Comment(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid post id"})
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	comment, err := h.social.Comment(c.Context(), id, middleware.GetWalletAddress(c), req.Content)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// Comments lists a post's comments, oldest first.
// GET /posts/:id/comments
func (h *PostHandler) Comments(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid post id"})
	}
	comments, err := h.social.ListComments(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(comments)
}
