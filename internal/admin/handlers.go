package admin

import (
	"log/slog"
	"net/http"

	"github.com/Borislavv/go-feed-cache/internal/cache"
	"github.com/Borislavv/go-feed-cache/internal/feed"
	"github.com/Borislavv/go-feed-cache/internal/profile"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

type handler struct {
	deps   Deps
	logger *slog.Logger
}

type statsResponse struct {
	Feed      feed.Stats    `json:"feed"`
	SignedURL cache.Stats   `json:"signed_url"`
	Profile   profile.Stats `json:"profile"`
	Sweeper   *sweeperStats `json:"sweeper,omitempty"`
}

type sweeperStats struct {
	Runs    int64 `json:"runs"`
	Removed int64 `json:"removed"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{
		Feed:      h.deps.Feed.Stats(),
		SignedURL: h.deps.SignedURLs.Stats(),
		Profile:   h.deps.Profiles.Stats(),
	}
	if h.deps.Sweeper != nil {
		runs, removed := h.deps.Sweeper.SweeperMetrics()
		resp.Sweeper = &sweeperStats{Runs: runs, Removed: removed}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) cleanup(w http.ResponseWriter, _ *http.Request) {
	removed := map[string]int{
		h.deps.Feed.Name():       h.deps.Feed.CleanupExpired(),
		h.deps.SignedURLs.Name(): h.deps.SignedURLs.CleanupExpired(),
		h.deps.Profiles.Name():   h.deps.Profiles.CleanupExpired(),
	}
	h.logger.Info("manual cleanup", "removed", removed)
	h.writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// invalidateFeedShared bumps the version marker so every process drops its feed pages.
func (h *handler) invalidateFeedShared(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Feed.InvalidateViaDatabase(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"invalidated": true})
}

func (h *handler) invalidateFeedLocal(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"removed": h.deps.Feed.InvalidateAll()})
}

func (h *handler) invalidateProfiles(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"removed": h.deps.Profiles.InvalidateAll()})
}

func (h *handler) invalidateProfile(w http.ResponseWriter, r *http.Request) {
	ok := h.deps.Profiles.Invalidate(chi.URLParam(r, "userID"))
	h.writeJSON(w, http.StatusOK, map[string]any{"removed": ok})
}

func (h *handler) invalidateNotificationCount(w http.ResponseWriter, r *http.Request) {
	ok := h.deps.Profiles.InvalidateNotificationCount(chi.URLParam(r, "userID"))
	h.writeJSON(w, http.StatusOK, map[string]any{"removed": ok})
}

// invalidateSignedURLs drops every URL cached for ?path=; without a path the whole cache is cleared.
func (h *handler) invalidateSignedURLs(w http.ResponseWriter, r *http.Request) {
	n := h.deps.SignedURLs.Invalidate(r.URL.Query().Get("path"))
	h.writeJSON(w, http.StatusOK, map[string]any{"removed": n})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode admin response", "err", err)
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, err error) {
	h.logger.Warn("admin request failed", "status", status, "err", err)
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
