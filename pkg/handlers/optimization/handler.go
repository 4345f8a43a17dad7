package optimization

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/handlers/response"
	scenariohandler "github.com/de-tools/promo-lab/pkg/handlers/scenario"
	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/services/scenario"
	"github.com/rs/zerolog"
)

type Service interface {
	Optimize(ctx context.Context, brief domain.Brief, objectives domain.Objectives) (domain.OptimizationResult, error)
	Frontier(ctx context.Context, set scenario.Set) ([]domain.Scenario, domain.Frontier, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.OptimizeRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	brief, err := parseBrief(req.Brief)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	brief.Constraints = adapters.MergeConstraintsApiIntoDomain(brief.Constraints, req.Constraints)
	objectives := brief.Objectives
	if req.Objectives != nil && req.Objectives.Weights != nil {
		objectives.Weights = adapters.MapObjectiveWeightsApiToDomain(req.Objectives.Weights)
	}

	res, err := h.svc.Optimize(ctx, brief, objectives)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	zerolog.Ctx(ctx).Info().
		Str("month", brief.Month).
		Int("candidates", len(res.Scenarios)).
		Msg("optimization finished")
	response.JSON(w, r, http.StatusOK, adapters.MapOptimizationResultDomainToApi(res))
}

func (h *Handler) Frontier(w http.ResponseWriter, r *http.Request) {
	set, err := scenariohandler.DecodeSet(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	scenarios, frontier, err := h.svc.Frontier(r.Context(), set)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, adapters.MapFrontierResponseDomainToApi(scenarios, frontier))
}

// parseBrief accepts either a structured brief object or free text.
func parseBrief(raw json.RawMessage) (domain.Brief, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.Brief{}, domain.NewError(domain.KindInvalidInput, "brief is required")
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return domain.Brief{}, domain.WrapError(domain.KindInvalidInput, err, "malformed brief text")
		}
		return adapters.ParseBriefText(text)
	}

	var brief api.Brief
	if err := json.Unmarshal(raw, &brief); err != nil {
		return domain.Brief{}, domain.WrapError(domain.KindInvalidInput, err, "malformed brief")
	}
	return adapters.MapBriefApiToDomain(brief)
}
