package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Error codes carried by AppError.
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeTokenDisplayExpired = "TOKEN_DISPLAY_EXPIRED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeTimeout             = "TIMEOUT"
	CodeInternal            = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeBadRequest:          fiber.StatusBadRequest,
	CodeNotFound:            fiber.StatusNotFound,
	CodeValidation:          fiber.StatusUnprocessableEntity,
	CodeUnauthorized:        fiber.StatusUnauthorized,
	CodeTokenExpired:        fiber.StatusUnauthorized,
	CodeForbidden:           fiber.StatusForbidden,
	CodeConflict:            fiber.StatusConflict,
	CodeTokenDisplayExpired: fiber.StatusGone,
	CodeRateLimited:         fiber.StatusTooManyRequests,
	CodeTimeout:             fiber.StatusServiceUnavailable,
	CodeInternal:            fiber.StatusInternalServerError,
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError is a failure the API reports with a stable code.
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

func newAppError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewBadRequestError reports a malformed request: unparseable body or route id.
func NewBadRequestError(message string) *AppError { return newAppError(CodeBadRequest, message) }

func NewNotFoundError(resource string, id any) *AppError {
	return newAppError(CodeNotFound, fmt.Sprintf("%s with ID %v not found", resource, id))
}

func NewValidationError(message string) *AppError   { return newAppError(CodeValidation, message) }
func NewUnauthorizedError(message string) *AppError { return newAppError(CodeUnauthorized, message) }
func NewForbiddenError(message string) *AppError    { return newAppError(CodeForbidden, message) }
func NewConflictError(message string) *AppError     { return newAppError(CodeConflict, message) }

func NewTokenExpiredError() *AppError {
	return newAppError(CodeTokenExpired, "API token has expired")
}

func NewTokenDisplayExpiredError() *AppError {
	return newAppError(CodeTokenDisplayExpired, "This token link has expired or was already used")
}

// NewTimeoutError reports work the server abandoned after its deadline. The request may be retried.
func NewTimeoutError(message string, err error) *AppError {
	return &AppError{Code: CodeTimeout, Message: message, Err: err}
}

// NewInternalError hides err from clients; it is only logged.
func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusFor maps an error to the HTTP status used to report it. Unknown errors are 500.
func StatusFor(err error) int {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.StatusNotFound
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if status, ok := statusByCode[appErr.Code]; ok {
			return status
		}
	}
	return fiber.StatusInternalServerError
}

// RespondWithError writes err as an ErrorResponse with the given status. Internal
// details never reach the client.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	body := ErrorResponse{Error: err.Error()}

	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		body = ErrorResponse{Error: appErr.Message, Code: appErr.Code}
		if appErr.Err != nil && appErr.Code != CodeInternal {
			body.Details = appErr.Err.Error()
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		body = ErrorResponse{Error: "Resource not found", Code: CodeNotFound}
	case status >= fiber.StatusInternalServerError:
		body = ErrorResponse{Error: "Internal server error", Code: CodeInternal}
	}
	return c.Status(status).JSON(body)
}

// RespondWithAppError writes err using the status derived from its kind.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, StatusFor(err), err)
}
