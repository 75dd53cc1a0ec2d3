package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/gesture"
)

// GestureHandler serves the effective gesture to action table.
type GestureHandler struct {
	engine Engine
}

// NewGestureHandler creates a new GestureHandler.
func NewGestureHandler(e Engine) *GestureHandler {
	return &GestureHandler{engine: e}
}

type listGesturesResponse struct {
	Gestures []gesture.ActionSpec `json:"gestures"`
	Commands []gesture.Command    `json:"commands"`
}

// ServeHTTP handles GET /api/gestures.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, listGesturesResponse{
		Gestures: h.engine.Actions().Sorted(),
		Commands: gesture.Commands(),
	})
}
