package api

import (
	"errors"
	"net/http"

	"github.com/goodtune/zentube/internal/catalog"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// CatalogHandler proxies catalog lookups.
type CatalogHandler struct {
	client *catalog.Client
	logger zerolog.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(client *catalog.Client, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		client: client,
		logger: logger.With().Str("handler", "catalog").Logger(),
	}
}

// Popular returns the most popular videos.
func (h *CatalogHandler) Popular(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.client.Popular(r.Context(), q.Get("category"), q.Get("pageToken"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Search returns videos matching q.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	page, err := h.client.Search(r.Context(), query, q.Get("pageToken"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Categories returns the video categories.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.client.Categories(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// Video returns a single video.
func (h *CatalogHandler) Video(w http.ResponseWriter, r *http.Request) {
	video, err := h.client.Video(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// Comments returns a page of comments on a video.
func (h *CatalogHandler) Comments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.client.Comments(r.Context(), mux.Vars(r)["id"], q.Get("order"), q.Get("pageToken"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Recommended returns videos to watch next.
func (h *CatalogHandler) Recommended(w http.ResponseWriter, r *http.Request) {
	videos, err := h.client.Recommended(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": videos,
		"count": len(videos),
	})
}

// Suggestions returns search completions for q.
func (h *CatalogHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.client.Suggestions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
	})
}

func (h *CatalogHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "Catalog is not configured")
	case errors.Is(err, catalog.ErrVideoNotFound):
		writeError(w, http.StatusNotFound, "Video not found")
	case errors.Is(err, catalog.ErrCommentsDisabled):
		writeError(w, http.StatusForbidden, "Comments are disabled for this video")
	default:
		h.logger.Error().Err(err).Msg("Catalog request failed")
		writeError(w, http.StatusBadGateway, "Catalog request failed")
	}
}
