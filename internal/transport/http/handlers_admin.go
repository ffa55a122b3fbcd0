package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trustcheck/internal/fusion/store"
	"trustcheck/pkg/domain"
	dErrors "trustcheck/pkg/domain-errors"
	"trustcheck/pkg/platform/httputil"
	"trustcheck/pkg/requestcontext"
)

// CacheAdmin defines the maintenance operations behind the admin guard.
type CacheAdmin interface {
	CacheStats(ctx context.Context, source domain.Source) (store.Stats, error)
	BulkRefreshStale(ctx context.Context, source domain.Source, limit int) (int, error)
}

// AdminHandler serves the JWT-guarded cache maintenance endpoints.
type AdminHandler struct {
	admin  CacheAdmin
	logger *slog.Logger
}

func NewAdminHandler(admin CacheAdmin, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/v1/cache/stats", h.HandleStats)
	r.Post("/v1/cache/refresh", h.HandleRefresh)
}

// HandleStats handles GET /v1/cache/stats?source=.
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	source, err := domain.ParseSource(r.URL.Query().Get("source"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stats, err := h.admin.CacheStats(r.Context(), source)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

type refreshRequest struct {
	Source string `json:"source"`
	Limit  int    `json:"limit"`
}

type refreshResponse struct {
	Source    domain.Source `json:"source"`
	Refreshed int           `json:"refreshed"`
}

// HandleRefresh handles POST /v1/cache/refresh.
func (h *AdminHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[refreshRequest](w, r)
	if !ok {
		return
	}

	source, err := domain.ParseSource(req.Source)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Limit <= 0 || req.Limit > 1000 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 1000"))
		return
	}

	refreshed, err := h.admin.BulkRefreshStale(ctx, source, req.Limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "bulk refresh failed",
			"request_id", requestcontext.RequestID(ctx),
			"source", source,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "bulk refresh requested",
		"request_id", requestcontext.RequestID(ctx),
		"source", source,
		"limit", req.Limit,
		"refreshed", refreshed,
	)
	httputil.WriteJSON(w, http.StatusOK, refreshResponse{Source: source, Refreshed: refreshed})
}
