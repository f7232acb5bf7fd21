// Package mq owns the message envelope and the broker-facing
// request/response plumbing around the user service.
package mq

import (
	"errors"

	"github.com/corevoice/users-service/internal/models"
	"github.com/corevoice/users-service/internal/service"
	"github.com/corevoice/users-service/internal/storage"
)

// Operations accepted in a request envelope
const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Request is the inbound operation envelope. A supplied User object
// must agree with the top-level Username field; the router rejects the
// request before touching the core otherwise.
type Request struct {
	MessageID  string       `json:"message_id"`
	RoutingKey string       `json:"routing_key,omitempty"`
	Operation  string       `json:"operation"`
	Username   string       `json:"username"`
	Password   string       `json:"password,omitempty"`
	User       *models.User `json:"user,omitempty"`
}

// Response is the outbound envelope. Code carries the stable numeric
// error code on failure and is omitted on success.
type Response struct {
	MessageID string       `json:"message_id,omitempty"`
	Success   bool         `json:"success"`
	User      *models.User `json:"user,omitempty"`
	Error     string       `json:"error,omitempty"`
	Code      int          `json:"code,omitempty"`
}

// Stable numeric codes for the transport boundary
const (
	CodeBadRequest    = 400
	CodeUnauthorized  = 401
	CodeNotFound      = 404
	CodeConflict      = 409
	CodeInternalError = 500
)

// codeFor maps core errors onto the stable numeric codes. Defensive
// internal-consistency faults deliberately stay in the 500 bucket; they
// signal a backend bug, not a client mistake.
func codeFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrUserExists):
		return CodeConflict
	case errors.Is(err, storage.ErrUserNotFound):
		return CodeNotFound
	case errors.Is(err, service.ErrUserNotMatched):
		return CodeUnauthorized
	case errors.Is(err, service.ErrAuthentication):
		return CodeUnauthorized
	case errors.Is(err, service.ErrInvalidUser):
		return CodeBadRequest
	default:
		return CodeInternalError
	}
}

// successResponse wraps a record in a success envelope
func successResponse(user *models.User) *Response {
	return &Response{
		Success: true,
		User:    user,
	}
}

// errorResponse wraps a failure message and code in an envelope
func errorResponse(code int, message string) *Response {
	return &Response{
		Success: false,
		Error:   message,
		Code:    code,
	}
}
