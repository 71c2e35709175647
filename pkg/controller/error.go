package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ponzu-dev/ponzu-back/pkg/middleware"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

const genericServerMessage = "an unexpected error occurred"

// ErrorResponse represents the consistent error response format.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// MapError maps application and repository errors to HTTP responses.
//
// Repository errors keep their classification: an invalid identifier is a 400, a missing
// document a 404. Storage and internal failures become a 500 with a generic message; their
// cause never reaches the client.
func MapError(ctx context.Context, err error) (int, ErrorResponse) {
	requestID := middleware.RequestIDFromContext(ctx)

	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = fromDocumentError(err)
	}
	if appErr == nil {
		return http.StatusInternalServerError, ErrorResponse{
			Error:     "internal_server_error",
			Code:      "internal.error",
			Message:   genericServerMessage,
			RequestID: requestID,
		}
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = inferStatusFromCode(appErr.Code)
	}

	message := appErr.FallbackMessage
	if message == "" || status >= http.StatusInternalServerError {
		message = genericServerMessage
	}

	return status, ErrorResponse{
		Error:     errorCategory(status, appErr.Code),
		Code:      appErr.Code,
		Message:   message,
		RequestID: requestID,
		Details:   appErr.Details,
	}
}

func fromDocumentError(err error) *AppError {
	var docErr *document.Error
	if !errors.As(err, &docErr) {
		return nil
	}

	switch docErr.Kind {
	case document.KindInvalidIdentifier:
		return NewValidationErrorWithCode("validation.invalid_identifier", "invalid identifier", map[string]interface{}{
			"id": docErr.Detail,
		})
	case document.KindNotFound:
		resource := docErr.Collection
		if resource == "" {
			resource = "resource"
		}
		return NewNotFoundError(resource + " not found").WithDetails(map[string]interface{}{
			"resource": resource,
		})
	case document.KindConflict:
		resource := docErr.Collection
		if resource == "" {
			resource = "resource"
		}
		return NewConflictError(resource+" already holds a record with that value", map[string]interface{}{
			"resource": resource,
		})
	case document.KindInvalidQuery:
		var details map[string]interface{}
		if docErr.Err != nil {
			details = map[string]interface{}{"reason": docErr.Err.Error()}
		}
		return NewValidationErrorWithCode("validation.invalid_filter", "query uses an unsupported operator", details)
	case document.KindStorage:
		return NewError("storage.error", err).WithHTTPStatus(http.StatusInternalServerError)
	case document.KindUnavailable:
		return NewError("storage.unavailable", err).WithHTTPStatus(http.StatusServiceUnavailable)
	default:
		return NewInternalError(genericServerMessage, err)
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return NewValidationErrorWithCode("validation.failed", message, details)
}

// NewValidationErrorWithCode creates a 400 error with a specific validation code.
func NewValidationErrorWithCode(code, message string, details map[string]interface{}) *AppError {
	return NewError(code, nil).
		WithMessage(message).
		WithHTTPStatus(http.StatusBadRequest).
		WithDetails(details)
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(message string) *AppError {
	return NewError("resource.not_found", nil).
		WithMessage(message).
		WithHTTPStatus(http.StatusNotFound)
}

// NewConflictError creates a new conflict error.
func NewConflictError(message string, details map[string]interface{}) *AppError {
	return NewError("resource.conflict", nil).
		WithMessage(message).
		WithHTTPStatus(http.StatusConflict).
		WithDetails(details)
}

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	return NewError("auth.unauthorized", nil).
		WithMessage(message).
		WithHTTPStatus(http.StatusUnauthorized)
}

// NewForbiddenError creates a new forbidden error.
func NewForbiddenError(message string) *AppError {
	return NewError("auth.forbidden", nil).
		WithMessage(message).
		WithHTTPStatus(http.StatusForbidden)
}

// NewInternalError creates a new internal error with optional cause.
func NewInternalError(message string, cause error) *AppError {
	return NewError("internal.error", cause).
		WithMessage(message).
		WithHTTPStatus(http.StatusInternalServerError)
}

func errorCategory(status int, code string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(code)), "validation.") {
		return "validation_error"
	}

	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		if status >= 500 {
			return "internal_server_error"
		}
		return "application_error"
	}
}

func inferStatusFromCode(code string) int {
	lowerCode := strings.ToLower(strings.TrimSpace(code))
	switch {
	case strings.HasPrefix(lowerCode, "validation."):
		return http.StatusBadRequest
	case strings.Contains(lowerCode, "unauthorized"):
		return http.StatusUnauthorized
	case strings.Contains(lowerCode, "forbidden"):
		return http.StatusForbidden
	case strings.Contains(lowerCode, "not_found"):
		return http.StatusNotFound
	case strings.Contains(lowerCode, "conflict"):
		return http.StatusConflict
	case strings.HasPrefix(lowerCode, "storage."), strings.Contains(lowerCode, "internal"):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
