package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
	"github.com/shehryarbajwa/devtools-inspector/internal/locate"
	"github.com/shehryarbajwa/devtools-inspector/internal/preview"
	"github.com/shehryarbajwa/devtools-inspector/internal/remote"
	"github.com/shehryarbajwa/devtools-inspector/internal/session"
	"github.com/shehryarbajwa/devtools-inspector/pkg/models"
)

// GetState handles GET /v1/sessions/{id}/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	conn := insp.Conn()
	state := models.PauseState{
		Paused: conn.IsPaused(),
		Reason: conn.PauseReason(),
		Frames: []models.FrameState{},
	}

	for _, frame := range conn.CallFrames() {
		fs := models.FrameState{
			CallFrameID:  frame.CallFrameID,
			FunctionName: frame.FunctionName,
			ScriptID:     frame.Location.ScriptID,
			LineNumber:   frame.Location.LineNumber,
			ColumnNumber: frame.Location.ColumnNumber,
		}
		// Frames in scripts we never saw parsed keep an empty URL.
		if loc, err := locate.Resolve(conn, frame.Location); err == nil {
			fs.URL = loc.URL
		}
		state.Frames = append(state.Frames, fs)
	}

	writeJSON(w, http.StatusOK, state)
}

// ListContexts handles GET /v1/sessions/{id}/contexts
func (h *Handler) ListContexts(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	contexts := insp.Conn().ExecutionContexts()
	if contexts == nil {
		contexts = []devtools.ExecutionContext{}
	}
	writeJSON(w, http.StatusOK, contexts)
}

// GetScript handles GET /v1/sessions/{id}/scripts/{scriptId}
func (h *Handler) GetScript(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	scriptID := mux.Vars(r)["scriptId"]
	script, ok := insp.Conn().ScriptByID(scriptID)
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", devtools.ErrUnknownScript, scriptID))
		return
	}

	writeJSON(w, http.StatusOK, script)
}

// GetFrameLocation handles GET /v1/sessions/{id}/frames/{index}/location
func (h *Handler) GetFrameLocation(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, fmt.Errorf("%w: frame index must be an integer", session.ErrInvalidRequest))
		return
	}

	loc, err := locate.FromFrame(insp.Conn(), index)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loc)
}

// Evaluate handles POST /v1/sessions/{id}/evaluate
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body: %v", session.ErrInvalidRequest, err))
		return
	}
	if strings.TrimSpace(req.Expression) == "" {
		writeError(w, fmt.Errorf("%w: expression is required", session.ErrInvalidRequest))
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	obj, err := insp.Evaluate(ctx, req.Expression, req.ContextID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeObject(ctx, w, insp, obj)
}

// DebuggerAction handles POST /v1/sessions/{id}/{resume|pause|step-over|step-into|step-out}
func (h *Handler) DebuggerAction(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	actions := map[string]func(context.Context) error{
		"pause":     insp.Pause,
		"resume":    insp.Resume,
		"step-over": insp.StepOver,
		"step-into": insp.StepInto,
		"step-out":  insp.StepOut,
	}
	action, ok := actions[mux.Vars(r)["action"]]
	if !ok {
		writeError(w, fmt.Errorf("%w: unknown debugger action %q", session.ErrInvalidRequest, mux.Vars(r)["action"]))
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := action(ctx); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetObject handles GET /v1/sessions/{id}/objects/{objectId}
func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	obj, err := insp.Object(mux.Vars(r)["objectId"])
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	h.writeObject(ctx, w, insp, obj)
}

// GetProperties handles GET /v1/sessions/{id}/objects/{objectId}/properties
func (h *Handler) GetProperties(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	rows, err := insp.Rows(ctx, mux.Vars(r)["objectId"])
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []preview.Row{}
	}

	writeJSON(w, http.StatusOK, rows)
}

// CoerceObject handles POST /v1/sessions/{id}/objects/{objectId}/coerce?kind=float|integer|string
func (h *Handler) CoerceObject(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	kind := session.CoerceKind(r.URL.Query().Get("kind"))
	obj, err := insp.Coerce(ctx, mux.Vars(r)["objectId"], kind)
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeObject(ctx, w, insp, obj)
}

// ReleaseObject handles DELETE /v1/sessions/{id}/objects/{objectId}
func (h *Handler) ReleaseObject(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspector(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := insp.Release(ctx, mux.Vars(r)["objectId"]); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeObject renders a handle with its summary and single-line text
func (h *Handler) writeObject(ctx context.Context, w http.ResponseWriter, insp *session.Inspector, obj *remote.Object) {
	text, err := preview.Text(ctx, obj, insp.Conn())
	if err != nil {
		writeError(w, err)
		return
	}

	desc, err := json.Marshal(obj.Descriptor())
	if err != nil {
		writeError(w, fmt.Errorf("failed to encode descriptor: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, models.ObjectView{
		ObjectID:   obj.ObjectID(),
		Type:       obj.Type(),
		Subtype:    obj.Subtype(),
		Summary:    preview.Summary(obj),
		Text:       text,
		Descriptor: desc,
	})
}
