// Package storage provides the post persistence layer with interchangeable
// backend implementations.
package storage

import (
	"context"

	"quill/internal/models"
)

// PostStore is the storage capability contract shared by both backends. The
// backend is selected once at startup; implementations own their identifier
// format rules and report malformed ids as AppErrors rather than not-found.
type PostStore interface {
	// Create validates, trims and persists a new post, returning the freshly
	// read-back record so callers see exactly the stored values.
	Create(ctx context.Context, input *models.PostInput) (*models.Post, error)

	// GetByID returns the post behind a well-formed identifier, a NOT_FOUND
	// AppError when absent, or an INVALID_ID AppError when malformed.
	GetByID(ctx context.Context, id string) (*models.Post, error)

	// List returns all posts newest-first. A non-empty term restricts the
	// result to posts whose title, content or category contains the term
	// case-insensitively. The result is never nil.
	List(ctx context.Context, term string) ([]*models.Post, error)

	// Update validates the input before checking existence, then overwrites
	// all four mutable fields together and returns the updated record.
	Update(ctx context.Context, id string, input *models.PostInput) (*models.Post, error)

	// Delete removes the post and reports whether a record existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Ping checks backend reachability for health reporting.
	Ping(ctx context.Context) error

	// Close releases the backend handle.
	Close(ctx context.Context) error
}
