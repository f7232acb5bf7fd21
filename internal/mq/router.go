package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corevoice/users-service/internal/models"
	"github.com/corevoice/users-service/internal/service"
)

// Router decodes operation requests, dispatches them to the service
// and produces response envelopes. It carries no broker state, so it
// is directly testable without a running broker.
type Router struct {
	logger *slog.Logger
	svc    *service.Service
}

// NewRouter creates a router over the given service
func NewRouter(logger *slog.Logger, svc *service.Service) *Router {
	return &Router{
		logger: logger,
		svc:    svc,
	}
}

// Handle processes one request envelope and always returns a response,
// mirroring the request's message_id. Request latency and outcome are
// logged; sensitive material never is.
func (r *Router) Handle(ctx context.Context, req *Request) *Response {
	start := time.Now()

	resp := r.dispatch(ctx, req)
	resp.MessageID = req.MessageID

	logLevel := slog.LevelInfo
	if resp.Code >= CodeInternalError {
		logLevel = slog.LevelError
	} else if resp.Code >= CodeBadRequest {
		logLevel = slog.LevelWarn
	}

	r.logger.Log(ctx, logLevel, "request handled",
		"operation", req.Operation,
		"username", req.Username,
		"message_id", req.MessageID,
		"success", resp.Success,
		"code", resp.Code,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return resp
}

func (r *Router) dispatch(ctx context.Context, req *Request) *Response {
	// Ensure a supplied user object is consistent with request params
	if req.User != nil && req.Username != req.User.Username {
		return errorResponse(CodeBadRequest,
			fmt.Sprintf("supplied username (%s) does not match user object (%s)",
				req.Username, req.User.Username))
	}

	switch req.Operation {
	case OpCreate:
		if req.Password == "" {
			return errorResponse(CodeBadRequest, "empty password provided")
		}
		user := req.User
		if user == nil {
			user = models.NewUser(req.Username, req.Password)
		} else {
			user = user.Clone()
			user.PasswordHash = req.Password
		}
		created, err := r.svc.CreateUser(ctx, user)
		if err != nil {
			return errorResponse(codeFor(err), err.Error())
		}
		return successResponse(created)

	case OpRead:
		var (
			user *models.User
			err  error
		)
		if req.Password != "" {
			user, err = r.svc.ReadAuthenticatedUser(ctx, req.Username, req.Password)
		} else {
			user, err = r.svc.ReadUnauthenticatedUser(ctx, req.Username)
		}
		if err != nil {
			return errorResponse(codeFor(err), err.Error())
		}
		return successResponse(user)

	case OpUpdate:
		if req.User == nil {
			return errorResponse(CodeBadRequest, "user object is required")
		}
		user := req.User.Clone()
		if req.Password != "" {
			user.PasswordHash = req.Password
		}
		updated, err := r.svc.UpdateUser(ctx, user)
		if err != nil {
			return errorResponse(codeFor(err), err.Error())
		}
		return successResponse(updated)

	case OpDelete:
		if req.User == nil {
			return errorResponse(CodeBadRequest, "user object is required")
		}
		removed, err := r.svc.DeleteUser(ctx, req.User)
		if err != nil {
			return errorResponse(codeFor(err), err.Error())
		}
		return successResponse(removed)

	default:
		return errorResponse(CodeBadRequest,
			fmt.Sprintf("invalid operation requested: %q", req.Operation))
	}
}
