package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goodtune/zentube/internal/engine"
	"github.com/goodtune/zentube/internal/notify"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/goodtune/zentube/internal/wellbeing"
	"github.com/rs/zerolog"
)

// WellbeingHandler serves the watch-time view, the settings and the full
// reset.
type WellbeingHandler struct {
	engine *engine.Engine
	logger zerolog.Logger
}

// NewWellbeingHandler creates a new wellbeing handler.
func NewWellbeingHandler(e *engine.Engine, logger zerolog.Logger) *WellbeingHandler {
	return &WellbeingHandler{
		engine: e,
		logger: logger.With().Str("handler", "wellbeing").Logger(),
	}
}

// SettingsResponse is returned by every settings write.
type SettingsResponse struct {
	Settings storage.WellbeingSettings `json:"settings"`
	Toast    *notify.Toast             `json:"toast,omitempty"`
}

// FieldUpdate is the body of a PATCH to the settings.
type FieldUpdate struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

// WatchTime returns today's record, status and the weekly view.
func (h *WellbeingHandler) WatchTime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot(r.Context()))
}

// GetSettings returns the current settings.
func (h *WellbeingHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Settings().Read(r.Context()))
}

// PutSettings replaces the settings.
func (h *WellbeingHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var settings storage.WellbeingSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	settings.DailyWatchTimeTarget = clampTarget(settings.DailyWatchTimeTarget)

	if err := h.engine.Settings().Write(r.Context(), settings); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save settings")
		writeFailure(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}

	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
}

// PatchSettings updates a single field.
func (h *WellbeingHandler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	var req FieldUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	settings, err := h.engine.Settings().UpdateField(r.Context(), req.Field, req.Value)
	switch {
	case errors.Is(err, wellbeing.ErrUnknownField), errors.Is(err, wellbeing.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Str("field", req.Field).Msg("Failed to update setting")
		writeFailure(w, http.StatusInternalServerError, "Failed to update setting", err)
		return
	}

	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
}

// PutTarget sets the daily target. Hours and minutes are clamped to 0-23 and
// 0-59 the way the settings form does.
func (h *WellbeingHandler) PutTarget(w http.ResponseWriter, r *http.Request) {
	var target storage.DailyTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	target = clampTarget(target)

	settings, err := h.engine.Settings().SetDailyTarget(r.Context(), target)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to save daily target")
		writeFailure(w, http.StatusInternalServerError, "Failed to update daily target", err)
		return
	}

	toast := notify.TargetDisabled()
	if target.Enabled {
		toast = notify.TargetSet(target.Hours, target.Minutes)
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings, Toast: &toast})
}

// PutBreak configures the break reminder.
func (h *WellbeingHandler) PutBreak(w http.ResponseWriter, r *http.Request) {
	var reminder storage.TakeABreak
	if err := json.NewDecoder(r.Body).Decode(&reminder); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if reminder.IntervalMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "intervalMinutes must be positive")
		return
	}

	settings, err := h.engine.Settings().SetTakeABreak(r.Context(), reminder)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to save break reminder")
		writeFailure(w, http.StatusInternalServerError, "Failed to update break reminder", err)
		return
	}

	writeJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
}

// ResetData clears every record in the application namespace.
func (h *WellbeingHandler) ResetData(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reset(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to reset data")
		writeFailure(w, http.StatusInternalServerError, "Failed to reset data", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "All data cleared",
	})
}

func clampTarget(t storage.DailyTarget) storage.DailyTarget {
	t.Hours = clamp(t.Hours, 0, 23)
	t.Minutes = clamp(t.Minutes, 0, 59)
	return t
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
