package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trustcheck/internal/risk"
	"trustcheck/pkg/platform/httputil"
	"trustcheck/pkg/requestcontext"
)

// RiskHandler exposes the pure scorer so callers can evaluate raw signal
// bags without a resolution round-trip.
type RiskHandler struct {
	scorer Scorer
	logger *slog.Logger
}

func NewRiskHandler(scorer Scorer, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{scorer: scorer, logger: logger}
}

func (h *RiskHandler) Register(r chi.Router) {
	r.Post("/v1/risk/score", h.HandleScore)
}

// HandleScore handles POST /v1/risk/score.
func (h *RiskHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	signals, ok := httputil.DecodeJSON[risk.Signals](w, r)
	if !ok {
		return
	}

	assessment := h.scorer.Score(signals)
	h.logger.InfoContext(ctx, "raw signals scored",
		"request_id", requestcontext.RequestID(ctx),
		"score", assessment.Score,
		"level", assessment.Level,
	)
	httputil.WriteJSON(w, http.StatusOK, assessment)
}
