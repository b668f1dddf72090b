package api

import (
	"encoding/json"
	"net/http"

	"github.com/goodtune/zentube/internal/library"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ListHandler serves one saved list.
type ListHandler[T any] struct {
	list   *library.List[T]
	name   string
	logger zerolog.Logger
}

// NewListHandler creates a handler for list, logged under name.
func NewListHandler[T any](list *library.List[T], name string, logger zerolog.Logger) *ListHandler[T] {
	return &ListHandler[T]{
		list:   list,
		name:   name,
		logger: logger.With().Str("handler", "library").Str("list", name).Logger(),
	}
}

// Register mounts the list's routes under prefix.
func (h *ListHandler[T]) Register(r *mux.Router, prefix string) {
	r.HandleFunc(prefix, h.List).Methods("GET")
	r.HandleFunc(prefix, h.Add).Methods("POST")
	r.HandleFunc(prefix, h.Clear).Methods("DELETE")
	r.HandleFunc(prefix+"/{id}", h.Contains).Methods("GET")
	r.HandleFunc(prefix+"/{id}", h.Remove).Methods("DELETE")
}

// List returns every entry.
func (h *ListHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	items := h.list.All(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// Add saves an entry at the front of the list.
func (h *ListHandler[T]) Add(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if h.list.IDOf(item) == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	items, err := h.list.Add(r.Context(), item)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to add to list")
		writeFailure(w, http.StatusInternalServerError, "Failed to save", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// Contains reports whether the entry is saved.
func (h *ListHandler[T]) Contains(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       id,
		"contains": h.list.Contains(r.Context(), id),
	})
}

// Remove deletes one entry.
func (h *ListHandler[T]) Remove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	items, err := h.list.Remove(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("id", id).Msg("Failed to remove from list")
		writeFailure(w, http.StatusInternalServerError, "Failed to remove", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// Clear empties the list.
func (h *ListHandler[T]) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.list.Clear(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear list")
		writeFailure(w, http.StatusInternalServerError, "Failed to clear", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
