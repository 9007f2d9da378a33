package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/devtools-inspector/internal/proxy"
	"github.com/shehryarbajwa/devtools-inspector/internal/ratelimit"
	"github.com/shehryarbajwa/devtools-inspector/pkg/models"
)

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes(proxyServer *proxy.Server, rateLimiter *ratelimit.Limiter) *mux.Router {
	r := mux.NewRouter()

	// API v1 routes
	api := r.PathPrefix("/v1").Subrouter()

	// Session creation and evaluation start work in the debuggee, so they
	// are rate limited
	rateLimitedAPI := api.PathPrefix("").Subrouter()
	rateLimitedAPI.Use(RateLimitMiddleware(rateLimiter))

	rateLimitedAPI.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	rateLimitedAPI.HandleFunc("/sessions/{id}/evaluate", h.Evaluate).Methods("POST")

	// Session endpoints
	api.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")

	// Debuggee state
	api.HandleFunc("/sessions/{id}/state", h.GetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/contexts", h.ListContexts).Methods("GET")
	api.HandleFunc("/sessions/{id}/scripts/{scriptId}", h.GetScript).Methods("GET")
	api.HandleFunc("/sessions/{id}/frames/{index:[0-9]+}/location", h.GetFrameLocation).Methods("GET")
	api.HandleFunc("/sessions/{id}/{action:pause|resume|step-over|step-into|step-out}", h.DebuggerAction).Methods("POST")

	// Remote objects
	api.HandleFunc("/sessions/{id}/objects/{objectId}", h.GetObject).Methods("GET")
	api.HandleFunc("/sessions/{id}/objects/{objectId}", h.ReleaseObject).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/objects/{objectId}/properties", h.GetProperties).Methods("GET")
	api.HandleFunc("/sessions/{id}/objects/{objectId}/coerce", h.CoerceObject).Methods("POST")

	// Heap snapshots
	api.HandleFunc("/sessions/{id}/snapshots", h.CaptureSnapshot).Methods("POST")
	api.HandleFunc("/sessions/{id}/snapshots", h.ListSnapshots).Methods("GET")
	api.HandleFunc("/snapshots/{id}", h.DownloadSnapshot).Methods("GET")
	api.HandleFunc("/snapshots/{id}", h.DeleteSnapshot).Methods("DELETE")

	// Live event stream
	api.HandleFunc("/sessions/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		proxyServer.HandleEvents(w, r, vars["id"])
	}).Methods("GET")

	// CORS middleware. Preflight requests match no route, so the
	// method-not-allowed handler answers them too.
	r.Use(corsMiddleware)
	r.MethodNotAllowedHandler = corsMiddleware(http.HandlerFunc(methodNotAllowed))

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, models.ErrorResponse{
		Error: fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
	})
}
