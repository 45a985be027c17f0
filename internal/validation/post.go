// Package validation holds field validation rules for blog post input.
package validation

import (
	"fmt"
	"strings"

	"quill/internal/models"
)

// Policy carries the per-backend validation limits. A zero cap disables the
// check: the relational backend only enforces non-emptiness, while the
// document backend additionally caps title and category length.
type Policy struct {
	MaxTitleLen    int
	MaxCategoryLen int
}

// RelationalPolicy matches the SQLite backend: non-empty fields, no caps.
var RelationalPolicy = Policy{}

// DocumentPolicy matches the Mongo backend: title <= 200, category <= 50.
var DocumentPolicy = Policy{MaxTitleLen: 200, MaxCategoryLen: 50}

// ValidatePost checks every rule independently and returns the accumulated
// list of violations. An empty slice means the input is valid.
func ValidatePost(input *models.PostInput, policy Policy) []string {
	var errs []string

	if strings.TrimSpace(input.Title) == "" {
		errs = append(errs, "Title is required and must be a non-empty string")
	} else if policy.MaxTitleLen > 0 && len(strings.TrimSpace(input.Title)) > policy.MaxTitleLen {
		errs = append(errs, fmt.Sprintf("Title cannot be more than %d characters", policy.MaxTitleLen))
	}

	if strings.TrimSpace(input.Content) == "" {
		errs = append(errs, "Content is required and must be a non-empty string")
	}

	if strings.TrimSpace(input.Category) == "" {
		errs = append(errs, "Category is required and must be a non-empty string")
	} else if policy.MaxCategoryLen > 0 && len(strings.TrimSpace(input.Category)) > policy.MaxCategoryLen {
		errs = append(errs, fmt.Sprintf("Category cannot be more than %d characters", policy.MaxCategoryLen))
	}

	if input.Tags == nil {
		errs = append(errs, "Tags must be an array")
	}

	return errs
}

// ValidationError builds the comma-joined AppError for a non-empty violation
// list, matching the "Validation failed: ..." message contract.
func ValidationError(errs []string) *models.AppError {
	return models.NewValidationError("Validation failed: " + strings.Join(errs, ", "))
}

// Normalize returns a copy of the input with string fields trimmed, which is
// exactly what gets persisted and therefore read back by callers.
func Normalize(input *models.PostInput) *models.PostInput {
	return &models.PostInput{
		Title:    strings.TrimSpace(input.Title),
		Content:  strings.TrimSpace(input.Content),
		Category: strings.TrimSpace(input.Category),
		Tags:     input.Tags,
	}
}
