package scenario

import (
	"net/http"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/handlers/response"
	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/services/scenario"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	svc scenario.Service
}

func NewHandler(svc scenario.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateScenarioRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	brief, err := adapters.MapBriefApiToDomain(req.Brief)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	bundle, err := h.svc.Create(ctx, brief, domain.ScenarioType(req.ScenarioType),
		adapters.MapBuildParametersApiToDomain(req.Parameters))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	zerolog.Ctx(ctx).Info().
		Str("scenario_id", bundle.Scenario.ID).
		Str("scenario_type", req.ScenarioType).
		Msg("scenario created")
	response.JSON(w, r, http.StatusOK, adapters.MapScenarioBundleDomainToApi(bundle))
}

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req api.Scenario
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	s, err := adapters.MapScenarioApiToDomain(req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	kpi, err := h.svc.Evaluate(r.Context(), s)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, adapters.MapKPIDomainToApi(kpi))
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req api.ValidateRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	s, err := adapters.MapScenarioApiToDomain(req.Scenario)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	var kpi *domain.KPI
	if req.KPI != nil {
		k := adapters.MapKPIInputApiToDomain(*req.KPI)
		kpi = &k
	}

	report, err := h.svc.Validate(r.Context(), s, kpi)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, adapters.MapValidationReportDomainToApi(report))
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	set, err := DecodeSet(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	comparison, err := h.svc.Compare(r.Context(), set)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, adapters.MapComparisonDomainToApi(comparison))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	bundle, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, adapters.MapScenarioBundleDomainToApi(bundle))
}

func (h *Handler) Reevaluate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	kpi, report, err := h.svc.Reevaluate(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, api.ReevaluateResponse{
		KPI:        adapters.MapKPIDomainToApi(kpi),
		Validation: adapters.MapValidationReportDomainToApi(report),
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	deleted, err := h.svc.Delete(ctx, id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if !deleted {
		response.Error(w, r, domain.NewError(domain.KindScenarioNotFound, "scenario %q not found", id))
		return
	}

	zerolog.Ctx(ctx).Info().Str("scenario_id", id).Msg("scenario deleted")
	response.JSON(w, r, http.StatusOK, api.DeleteResponse{Deleted: true, ScenarioID: id})
}

// DecodeSet reads a {scenarios?, scenario_ids?} body.
func DecodeSet(r *http.Request) (scenario.Set, error) {
	var req api.ScenarioSetRequest
	if err := response.Decode(r, &req); err != nil {
		return scenario.Set{}, err
	}
	set := scenario.Set{IDs: req.ScenarioIDs}
	for _, raw := range req.Scenarios {
		s, err := adapters.MapScenarioApiToDomain(raw)
		if err != nil {
			return scenario.Set{}, err
		}
		set.Scenarios = append(set.Scenarios, s)
	}
	return set, nil
}
