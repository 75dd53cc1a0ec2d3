package api

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

// SettingsHandler reads and persists tunable options.
type SettingsHandler struct {
	store  *store.Store
	engine Engine
	log    *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(s *store.Store, e Engine, log *zap.Logger) *SettingsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SettingsHandler{store: s, engine: e, log: log}
}

// ServeHTTP handles GET and PUT /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, settingsOf(h.engine.Config()))
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func settingsOf(c config.Config) map[string]string {
	out := make(map[string]string)
	for _, k := range config.Keys() {
		if v, ok := c.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// update validates the changes against the effective configuration, then
// persists them and reloads the pipeline. Nothing is stored when any value
// is rejected.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var changes map[string]string
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(changes) == 0 {
		writeError(w, http.StatusBadRequest, "No settings given")
		return
	}

	next := h.engine.Config()
	if err := next.ApplySettings(changes); err != nil {
		if errors.Is(err, config.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply settings")
		return
	}

	if err := h.store.Settings().SetMany(changes); err != nil {
		h.log.Error("persisting settings failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	if err := h.engine.Reload(); err != nil {
		h.log.Error("reload after settings change failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to reload")
		return
	}

	h.log.Info("settings updated", zap.Int("count", len(changes)))
	writeJSON(w, http.StatusOK, settingsOf(h.engine.Config()))
}
