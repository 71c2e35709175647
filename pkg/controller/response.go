package controller

import (
	"net/http"

	"github.com/ponzu-dev/ponzu-back/pkg/middleware"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// SuccessResponse represents a successful response with data
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success sends data with HTTP 200 OK in the standard envelope.
func Success(c router.Context, data interface{}) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Data:      data,
		RequestID: middleware.RequestIDFromContext(c.Request().Context()),
	})
}

// Created sends data with HTTP 201 Created in the standard envelope.
func Created(c router.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, SuccessResponse{
		Data:      data,
		RequestID: middleware.RequestIDFromContext(c.Request().Context()),
	})
}

// NoContent sends HTTP 204 with no body.
func NoContent(c router.Context) error {
	return c.JSON(http.StatusNoContent, nil)
}

// Error sends an error response with the appropriate HTTP status code
// It uses MapError to convert application errors to HTTP responses
func Error(c router.Context, err error) error {
	statusCode, errorResponse := MapError(c.Request().Context(), err)
	return c.JSON(statusCode, errorResponse)
}
