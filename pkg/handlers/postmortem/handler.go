package postmortem

import (
	"context"
	"net/http"
	"strings"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/handlers/response"
	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Service interface {
	AnalyzePostMortem(ctx context.Context, scenarioID string, actuals *domain.Actuals, period domain.DateRange) (domain.PostMortemReport, error)
	LatestPostMortem(ctx context.Context, scenarioID string) (domain.PostMortemReport, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.PostMortemRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	id := strings.TrimSpace(req.ScenarioID)
	if id == "" {
		response.Error(w, r, domain.NewError(domain.KindInvalidInput, "scenario_id is required"))
		return
	}
	period, err := adapters.MapDateRangeApiToDomain(req.Period)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	report, err := h.svc.AnalyzePostMortem(ctx, id, adapters.MapActualsApiToDomain(req.ActualData), period)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	zerolog.Ctx(ctx).Info().
		Str("scenario_id", id).
		Str("actual_source", report.ActualSource).
		Msg("post-mortem analyzed")
	response.JSON(w, r, http.StatusOK, adapters.MapPostMortemDomainToApi(report))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scenario_id")

	report, err := h.svc.LatestPostMortem(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, adapters.MapPostMortemDomainToApi(report))
}
