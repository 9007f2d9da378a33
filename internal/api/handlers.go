package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/devtools-inspector/internal/session"
	"github.com/shehryarbajwa/devtools-inspector/internal/snapshot"
	"github.com/shehryarbajwa/devtools-inspector/pkg/models"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sessionMgr     *session.Manager
	snapshots      *snapshot.Manager
	requestTimeout time.Duration
}

// NewHandler creates a new HTTP handler. requestTimeout bounds every call
// into the debuggee.
func NewHandler(sessionMgr *session.Manager, snapshots *snapshot.Manager, requestTimeout time.Duration) *Handler {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Handler{
		sessionMgr:     sessionMgr,
		snapshots:      snapshots,
		requestTimeout: requestTimeout,
	}
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.requestTimeout)
}

// inspector resolves the {id} route variable to a running session
func (h *Handler) inspector(r *http.Request) (*session.Inspector, error) {
	return h.sessionMgr.Inspector(mux.Vars(r)["id"])
}

// CreateSession handles POST /v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body: %v", session.ErrInvalidRequest, err))
		return
	}

	// Launching a container can take a while; the client's request context
	// still applies.
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute+h.requestTimeout)
	defer cancel()

	sess, err := h.sessionMgr.CreateSession(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// GetSession handles GET /v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionMgr.GetSession(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// ListSessions handles GET /v1/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	status := models.SessionStatus(r.URL.Query().Get("status"))

	writeJSON(w, http.StatusOK, h.sessionMgr.ListSessions(status))
}

// DeleteSession handles DELETE /v1/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionMgr.DeleteSession(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
