package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the uniform JSON error envelope returned by every failing
// request: a category label plus a human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error codes used to classify AppErrors across layers.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidID    = "INVALID_ID"
	CodeNotFound     = "NOT_FOUND"
	CodeDuplicateKey = "DUPLICATE_KEY"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is a classified application error. Code drives the HTTP status
// mapping; Message is safe to expose to clients.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status this error maps to.
func (e *AppError) Status() int {
	switch e.Code {
	case CodeValidation, CodeInvalidID, CodeDuplicateKey:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// NewValidationError wraps accumulated field violations. The message already
// carries the "Validation failed: ..." prefix built by the validator caller.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewInvalidIDError reports a syntactically malformed post identifier. The
// message text is backend-specific ("Invalid post ID" vs "Invalid post ID format").
func NewInvalidIDError(message string) *AppError {
	return &AppError{Code: CodeInvalidID, Message: message}
}

// NewNotFoundError reports an absent post behind a well-formed identifier.
func NewNotFoundError() *AppError {
	return &AppError{Code: CodeNotFound, Message: "Blog post not found"}
}

// NewDuplicateKeyError reports a unique-index conflict (document backend only).
func NewDuplicateKeyError(err error) *AppError {
	return &AppError{Code: CodeDuplicateKey, Message: "Duplicate field value entered", Err: err}
}

// NewInternalError wraps an unexpected failure behind a generic client message.
func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: err}
}

// statusLabel maps an HTTP status to the envelope's category label.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "Internal Server Error"
	case status == fiber.StatusNotFound:
		return "Not Found"
	default:
		return "Bad Request"
	}
}

// RespondWithError writes the standard error envelope. 5xx responses never
// leak internal error text; the AppError message is already generic there.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	message := "Internal Server Error"

	var appErr *AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if status < 500 && err != nil {
		message = err.Error()
	}

	return c.Status(status).JSON(ErrorResponse{
		Error:   statusLabel(status),
		Message: message,
	})
}
