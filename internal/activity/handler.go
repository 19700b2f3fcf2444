package activity

import (
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-admin/aegis/internal/platform/httpx"
	"github.com/aegis-admin/aegis/internal/shared"
)

// Gate guards routes with permission requirements.
type Gate interface {
	RequirePermissions(spec string) func(http.Handler) http.Handler
}

// Handler exposes the activity log over HTTP.
type Handler struct {
	logger *slog.Logger
	repo   RepositoryPort
	gate   Gate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo RepositoryPort, gate Gate) *Handler {
	return &Handler{logger: logger, repo: repo, gate: gate}
}

// MountRoutes registers activity log routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequirePermissions("view-activity-logs"))
		r.Get("/", h.list)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{
		Entity: r.URL.Query().Get("entity"),
		Action: r.URL.Query().Get("action"),
		Page:   queryInt(r, "page", 1),
	}
	filters.PerPage = queryInt(r, "per_page", 20)
	if filters.PerPage > 50 {
		filters.PerPage = 50
	}
	if raw := r.URL.Query().Get("actor_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.ActorID = &id
		}
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.From = ts
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.To = ts
		}
	}
	records, total, err := h.repo.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list activity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	meta := shared.NewPagination(filters.Page, filters.PerPage, total)
	httpx.JSON(w, http.StatusOK, map[string]any{"data": records, "meta": meta})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return fallback
	}
	return val
}
