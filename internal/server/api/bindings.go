package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// BindingHandler handles HTTP requests for gesture binding overrides.
type BindingHandler struct {
	store  *store.Store
	engine Engine
	log    *zap.Logger
}

// NewBindingHandler creates a new BindingHandler.
func NewBindingHandler(s *store.Store, e Engine, log *zap.Logger) *BindingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BindingHandler{store: s, engine: e, log: log}
}

// ServeHTTP routes /api/bindings and /api/bindings/{gesture}.
func (h *BindingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/bindings")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.upsert(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.delete(w, r, path)
}

type bindingRequest struct {
	Gesture string `json:"gesture"`
	Command string `json:"command"`
}

type listBindingsResponse struct {
	Bindings []*store.Binding `json:"bindings"`
}

func (h *BindingHandler) list(w http.ResponseWriter, r *http.Request) {
	bindings, err := h.store.Bindings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bindings")
		return
	}
	if bindings == nil {
		bindings = []*store.Binding{}
	}
	writeJSON(w, http.StatusOK, listBindingsResponse{Bindings: bindings})
}

// upsert handles POST /api/bindings. A gesture has at most one binding, so
// posting again replaces the command.
func (h *BindingHandler) upsert(w http.ResponseWriter, r *http.Request) {
	var req bindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	g, err := gesture.Parse(req.Gesture)
	if err != nil || g == gesture.None {
		writeError(w, http.StatusBadRequest, "Unknown gesture")
		return
	}
	if _, err := h.engine.Actions().WithOverrides(map[gesture.Gesture]gesture.Command{
		g: gesture.Command(req.Command),
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b := &store.Binding{Gesture: g.String(), Command: req.Command}
	if err := h.store.Bindings().Upsert(b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save binding")
		return
	}
	if !h.reload(w) {
		return
	}

	h.log.Info("binding saved", zap.String("gesture", b.Gesture), zap.String("command", b.Command))
	writeJSON(w, http.StatusCreated, b)
}

// delete handles DELETE /api/bindings/{gesture}, restoring the default.
func (h *BindingHandler) delete(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.store.Bindings().Delete(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete binding")
		return
	}
	if !h.reload(w) {
		return
	}
	h.log.Info("binding removed", zap.String("gesture", name))
	w.WriteHeader(http.StatusNoContent)
}

func (h *BindingHandler) reload(w http.ResponseWriter) bool {
	if err := h.engine.Reload(); err != nil {
		h.log.Error("reload after binding change failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to reload")
		return false
	}
	return true
}
