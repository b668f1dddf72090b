package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goodtune/zentube/internal/library"
	"github.com/goodtune/zentube/internal/storage"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// PersonalHandler serves the app preferences, the profile and comment
// interactions.
type PersonalHandler struct {
	library *library.Library
	logger  zerolog.Logger
}

// NewPersonalHandler creates a new handler over lib.
func NewPersonalHandler(lib *library.Library, logger zerolog.Logger) *PersonalHandler {
	return &PersonalHandler{
		library: lib,
		logger:  logger.With().Str("handler", "personal").Logger(),
	}
}

// Register mounts the routes on r.
func (h *PersonalHandler) Register(r *mux.Router) {
	r.HandleFunc("/preferences", h.GetPreferences).Methods("GET")
	r.HandleFunc("/preferences", h.PutPreferences).Methods("PUT")
	r.HandleFunc("/preferences", h.PatchPreferences).Methods("PATCH")
	r.HandleFunc("/profile", h.GetProfile).Methods("GET")
	r.HandleFunc("/profile", h.PutProfile).Methods("PUT")
	r.HandleFunc("/library/comments/{videoId}", h.CommentInteractions).Methods("GET")
	r.HandleFunc("/library/comments/{videoId}/{commentId}", h.ToggleComment).Methods("POST")
	r.HandleFunc("/library/comments/{videoId}/{commentId}", h.ClearComment).Methods("DELETE")
}

// GetPreferences returns the app preferences.
func (h *PersonalHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.library.Preferences.Read(r.Context()))
}

// PutPreferences replaces the app preferences.
func (h *PersonalHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var settings storage.AppSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.library.Preferences.Write(r.Context(), settings)
	switch {
	case errors.Is(err, library.ErrInvalidPreference):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("Failed to save preferences")
		writeFailure(w, http.StatusInternalServerError, "Failed to save preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PatchPreferences updates a single preference.
func (h *PersonalHandler) PatchPreferences(w http.ResponseWriter, r *http.Request) {
	var req FieldUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	settings, err := h.library.Preferences.UpdateField(r.Context(), req.Field, req.Value)
	switch {
	case errors.Is(err, library.ErrUnknownPreference), errors.Is(err, library.ErrInvalidPreference):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Str("field", req.Field).Msg("Failed to update preference")
		writeFailure(w, http.StatusInternalServerError, "Failed to update preference", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// GetProfile returns the user bio.
func (h *PersonalHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.library.Profile.Read(r.Context()))
}

// PutProfile renames the user.
func (h *PersonalHandler) PutProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bio, err := h.library.Profile.SetName(r.Context(), req.Name)
	switch {
	case errors.Is(err, library.ErrEmptyName):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("Failed to save profile")
		writeFailure(w, http.StatusInternalServerError, "Failed to save profile", err)
		return
	}
	writeJSON(w, http.StatusOK, bio)
}

// CommentInteractions returns the likes and dislikes on a video's comments.
func (h *PersonalHandler) CommentInteractions(w http.ResponseWriter, r *http.Request) {
	items := h.library.Comments.For(r.Context(), mux.Vars(r)["videoId"])
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// ToggleComment applies a like or dislike to a comment.
func (h *PersonalHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	kind, err := h.library.Comments.Toggle(r.Context(), vars["videoId"], vars["commentId"], req.Type)
	switch {
	case errors.Is(err, library.ErrInvalidInteraction):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Str("comment", vars["commentId"]).Msg("Failed to save comment interaction")
		writeFailure(w, http.StatusInternalServerError, "Failed to save", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"commentId": vars["commentId"],
		"type":      kind,
	})
}

// ClearComment removes any interaction on a comment.
func (h *PersonalHandler) ClearComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.library.Comments.Remove(r.Context(), vars["videoId"], vars["commentId"]); err != nil {
		h.logger.Error().Err(err).Str("comment", vars["commentId"]).Msg("Failed to remove comment interaction")
		writeFailure(w, http.StatusInternalServerError, "Failed to remove", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
