package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/store"
)

// Event list limits.
const (
	DefaultEventLimit = 50
	MaxEventLimit     = 500
)

// EventHandler serves the recent journal.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

type listEventsResponse struct {
	Events []*store.Event `json:"events"`
}

// ServeHTTP handles GET /api/events?limit=N, newest first.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := DefaultEventLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}

	events, err := h.store.Events().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, listEventsResponse{Events: events})
}
