package web

// errors.go turns service errors into responses.
//
// The technical error is logged with the request ID; the client gets the
// coded message from core.MapError. API routes answer in JSON, pages in
// plain text.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/gamedata/internal/core"
)

var (
	errRateLimited      = errors.New("rate limit exceeded")
	errBadBody          = errors.New("invalid request body")
	errTransferNotFound = errors.New("transfer not found")
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownTable),
		errors.Is(err, core.ErrRowNotFound),
		errors.Is(err, errTransferNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTransferBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrInvalidID),
		errors.Is(err, core.ErrNoIDColumn),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrInvalidMode),
		errors.Is(err, http.ErrMissingFile),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the user-facing version of it.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if wantsJSON(r) {
		writeJSON(w, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}
	http.Error(w, core.FormatUserError(err), status)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
