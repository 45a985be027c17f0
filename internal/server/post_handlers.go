package server

import (
	"encoding/json"
	"errors"
	"log/slog"

	"quill/internal/cache"
	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// failureMessage is the generic 500 message per operation; raw errors go to
// the log only.
func failureMessage(op string) string {
	switch op {
	case "create":
		return "Failed to create blog post"
	case "list":
		return "Failed to fetch blog posts"
	case "update":
		return "Failed to update blog post"
	case "delete":
		return "Failed to delete blog post"
	default:
		return "Failed to fetch blog post"
	}
}

// respondStoreError maps a storage-layer error to the HTTP contract: expected
// AppErrors keep their status, anything else is logged and becomes a generic 500.
func (s *Server) respondStoreError(c *fiber.Ctx, err error, op string) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		return models.RespondWithError(c, appErr.Status(), appErr)
	}

	middleware.Logger.ErrorContext(c.UserContext(), "post operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError,
		models.NewInternalError(failureMessage(op), err))
}

// bodyParseError classifies a request body decode failure. A non-array tags
// value is reported as the corresponding validation message.
func bodyParseError(err error) *models.AppError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == "tags" {
		return models.NewValidationError("Validation failed: Tags must be an array")
	}
	return models.NewValidationError("Invalid request body")
}

// CreatePost handles POST /posts.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.Context()

	var input models.PostInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, bodyParseError(err))
	}

	post, err := s.store.Create(ctx, &input)
	if err != nil {
		return s.respondStoreError(c, err, "create")
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /posts with the optional term query parameter.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	ctx := c.Context()
	term := c.Query("term")

	posts, err := s.store.List(ctx, term)
	if err != nil {
		return s.respondStoreError(c, err, "list")
	}

	return c.JSON(posts)
}

// GetPost handles GET /posts/:id with cache-aside on the single-post read.
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	var post models.Post
	err := s.posts.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		fetched, err := s.store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		post = *fetched
		return nil
	})
	if err != nil {
		return s.respondStoreError(c, err, "fetch")
	}

	return c.JSON(post)
}

// UpdatePost handles PUT /posts/:id.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	var input models.PostInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, bodyParseError(err))
	}

	post, err := s.store.Update(ctx, id, &input)
	if err != nil {
		return s.respondStoreError(c, err, "update")
	}

	s.posts.Invalidate(ctx, id)

	return c.JSON(post)
}

// DeletePost handles DELETE /posts/:id.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return s.respondStoreError(c, err, "delete")
	}
	if !deleted {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError())
	}

	s.posts.Invalidate(ctx, id)

	return c.SendStatus(fiber.StatusNoContent)
}
