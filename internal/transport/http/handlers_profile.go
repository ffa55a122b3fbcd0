// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services and keep transport concerns isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustcheck/internal/fusion/models"
	"trustcheck/internal/fusion/service"
	"trustcheck/internal/risk"
	"trustcheck/pkg/domain"
	dErrors "trustcheck/pkg/domain-errors"
	"trustcheck/pkg/platform/httputil"
	"trustcheck/pkg/requestcontext"
)

// Resolver defines the fusion operations the profile endpoints need.
type Resolver interface {
	Resolve(ctx context.Context, id domain.BusinessID, opts service.Options) (*models.BusinessProfile, error)
}

// Scorer is the pure risk engine surface.
type Scorer interface {
	Score(s risk.Signals) risk.Assessment
}

// ProfileHandler serves the profile and profile-risk endpoints.
type ProfileHandler struct {
	resolver Resolver
	scorer   Scorer
	logger   *slog.Logger
	now      func() time.Time
}

func NewProfileHandler(resolver Resolver, scorer Scorer, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{resolver: resolver, scorer: scorer, logger: logger, now: time.Now}
}

// Register mounts the profile endpoints on the router.
func (h *ProfileHandler) Register(r chi.Router) {
	r.Get("/v1/profiles/{businessID}", h.HandleGetProfile)
	r.Get("/v1/profiles/{businessID}/risk", h.HandleGetProfileRisk)
}

// HandleGetProfile handles GET /v1/profiles/{businessID}.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseBusinessID(chi.URLParam(r, "businessID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	opts := service.Options{
		ForceRefresh:    r.URL.Query().Get("refresh") == "true",
		IncludeExtended: r.URL.Query().Get("extended") == "true",
	}
	start := h.now()
	profile, err := h.resolver.Resolve(ctx, id, opts)
	if err != nil {
		h.logger.ErrorContext(ctx, "profile resolution failed",
			"request_id", requestcontext.RequestID(ctx),
			"business_id", id,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "profile resolution failed"))
		return
	}

	h.logger.InfoContext(ctx, "profile resolved",
		"request_id", requestcontext.RequestID(ctx),
		"business_id", id,
		"cache_hit", profile.Provenance.CacheHit,
		"data_source", profile.Provenance.DataSource,
		"duration_ms", h.now().Sub(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, profile)
}

type profileRiskResponse struct {
	Profile    *models.BusinessProfile `json:"profile"`
	Assessment risk.Assessment         `json:"assessment"`
}

// HandleGetProfileRisk handles GET /v1/profiles/{businessID}/risk. The full
// profile is resolved, slow fact types included, since the scorer wants every
// available signal.
func (h *ProfileHandler) HandleGetProfileRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseBusinessID(chi.URLParam(r, "businessID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	opts := service.Options{
		ForceRefresh:    r.URL.Query().Get("refresh") == "true",
		IncludeExtended: true,
	}
	profile, err := h.resolver.Resolve(ctx, id, opts)
	if err != nil {
		h.logger.ErrorContext(ctx, "profile resolution failed",
			"request_id", requestcontext.RequestID(ctx),
			"business_id", id,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "profile resolution failed"))
		return
	}

	assessment := h.scorer.Score(risk.SignalsFromProfile(profile, h.now()))
	h.logger.InfoContext(ctx, "risk assessed",
		"request_id", requestcontext.RequestID(ctx),
		"business_id", id,
		"score", assessment.Score,
		"level", assessment.Level,
		"confidence", assessment.ConfidencePercent,
	)
	httputil.WriteJSON(w, http.StatusOK, profileRiskResponse{Profile: profile, Assessment: assessment})
}
