package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Borislavv/go-feed-cache/internal/service/posts"
	"github.com/Borislavv/go-feed-cache/internal/storage"
	"github.com/go-chi/chi/v5"
)

// readFeed serves one feed page through the feed cache. limit defaults to posts.DefaultLimit.
func (h *handler) readFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := posts.DefaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
			return
		}
		limit = n
	}

	var cursor *string
	if v := q.Get("cursor"); v != "" {
		cursor = &v
	}

	var offset *int
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("offset must be a non-negative integer"))
			return
		}
		offset = &n
	}

	f, err := h.deps.FeedReader.GetFeed(r.Context(), chi.URLParam(r, "userID"), limit, cursor, offset)
	if err != nil {
		h.writeError(w, statusOf(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, f)
}

func (h *handler) readProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.ProfileReader.GetProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, statusOf(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *handler) readUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	n, err := h.deps.UnreadCounter.UnreadCount(r.Context(), userID)
	if err != nil {
		h.writeError(w, statusOf(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "unread": n})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, posts.ErrInvalidLimit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
