package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
	"github.com/shehryarbajwa/devtools-inspector/internal/remote"
	"github.com/shehryarbajwa/devtools-inspector/internal/session"
	"github.com/shehryarbajwa/devtools-inspector/internal/snapshot"
	"github.com/shehryarbajwa/devtools-inspector/pkg/models"
)

// statusOf maps an error onto the HTTP status reported to clients
func statusOf(err error) int {
	var (
		repErr       *remote.RepresentationError
		remoteErr    *devtools.RemoteError
		violation    *devtools.ProtocolViolation
		transportErr *devtools.TransportError
	)

	switch {
	case errors.As(err, &repErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	case errors.As(err, &violation), errors.As(err, &transportErr), errors.Is(err, devtools.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrObjectNotFound),
		errors.Is(err, snapshot.ErrNotFound),
		errors.Is(err, devtools.ErrUnknownScript),
		errors.Is(err, devtools.ErrUnknownContext),
		errors.Is(err, devtools.ErrFrameOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrConcurrencyLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, session.ErrSessionNotRunning), errors.Is(err, devtools.ErrNotPaused):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoLauncher):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as an ErrorResponse. Remote errors carry the
// debuggee's payload unchanged.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	resp := models.ErrorResponse{Error: err.Error()}

	var remoteErr *devtools.RemoteError
	if errors.As(err, &remoteErr) && json.Valid(remoteErr.Payload) {
		resp.Payload = remoteErr.Payload
	}

	if status == http.StatusInternalServerError {
		log.Printf("❌ Request failed: %v", err)
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
