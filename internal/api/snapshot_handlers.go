package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// snapshotTimeout is the least time a heap snapshot is given to finish
const snapshotTimeout = 2 * time.Minute

// CaptureSnapshot handles POST /v1/sessions/{id}/snapshots
func (h *Handler) CaptureSnapshot(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), max(h.requestTimeout, snapshotTimeout))
	defer cancel()

	snap, err := h.snapshots.Capture(ctx, insp.SessionID(), insp)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// ListSnapshots handles GET /v1/sessions/{id}/snapshots
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Snapshots outlive their session, so only existence is checked.
	if _, err := h.sessionMgr.GetSession(id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.snapshots.List(id))
}

// DownloadSnapshot handles GET /v1/snapshots/{id}
func (h *Handler) DownloadSnapshot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	data, err := h.snapshots.Open(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer data.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".heapsnapshot"))
	if _, err := io.Copy(w, data); err != nil {
		log.Printf("⚠️  Snapshot %s download interrupted: %v", id, err)
	}
}

// DeleteSnapshot handles DELETE /v1/snapshots/{id}
func (h *Handler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.snapshots.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
