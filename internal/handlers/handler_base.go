package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/finance_deal_ledger/internal/apperrors"
	"github.com/SscSPs/finance_deal_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps an application error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrPreconditionFailed), errors.Is(err, apperrors.ErrUnsupportedOperation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrCollaboratorFailure):
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err at a level matching its status and writes the error body.
// Internal failures never leak their message.
func respondError(c *gin.Context, err error, operation string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	status := statusFor(err)

	body := ErrorResponse{
		Error: apperrors.MessageOf(err),
		Kind:  apperrors.KindName(err),
		Code:  apperrors.CodeOf(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", slog.String("operation", operation), slog.String("error", err.Error()))
		body.Error = "Failed to " + operation
	} else {
		logger.Warn("Request rejected", slog.String("operation", operation),
			slog.Int("status", status), slog.String("error", err.Error()))
	}
	c.JSON(status, body)
}

// respondBindError reports a malformed request body or query.
func respondBindError(c *gin.Context, err error, what string) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind "+what, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: "Invalid " + what + ": " + err.Error(),
		Kind:  apperrors.KindName(apperrors.ErrValidation),
		Code:  apperrors.CodeInvalidInput,
	})
}

// actorFromContext returns the authenticated user id or writes a 401.
func actorFromContext(c *gin.Context) (string, bool) {
	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Actor user ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Kind: "unauthorized"})
		return "", false
	}
	return actorID, true
}
