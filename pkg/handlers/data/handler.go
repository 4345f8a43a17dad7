package data

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/handlers/response"
	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
	"github.com/de-tools/promo-lab/pkg/services/data"
)

const (
	HeaderPage       = "X-Pagination-Page"
	HeaderPageSize   = "X-Pagination-Page-Size"
	HeaderTotal      = "X-Pagination-Total"
	HeaderTotalPages = "X-Pagination-Total-Pages"
)

type Service interface {
	Totals(ctx context.Context, filter store.SalesFilter) (store.SalesTotals, error)
	UpliftModel(ctx context.Context, department, channel string) ([]data.Curve, error)
	Segments(ctx context.Context, page, pageSize int) (data.SegmentPage, error)
	Gaps(ctx context.Context, month string, override data.TargetOverride) (domain.GapAnalysis, error)
	Months(ctx context.Context) ([]string, error)
	Quality(ctx context.Context) (domain.QualityReport, error)
}

// Learner recalibrates the stored uplift model from post-mortems.
type Learner interface {
	Learn(ctx context.Context) (domain.LearnResult, error)
}

type Handler struct {
	svc     Service
	learner Learner
}

func NewHandler(svc Service, learner Learner) *Handler {
	return &Handler{svc: svc, learner: learner}
}

func (h *Handler) Baseline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := queryDate(q.Get("start_date"), "start_date")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	end, err := queryDate(q.Get("end_date"), "end_date")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	filter := store.SalesFilter{Start: start, End: end}
	if d := strings.TrimSpace(q.Get("department")); d != "" {
		filter.Departments = []string{d}
	}
	if c := strings.TrimSpace(q.Get("channel")); c != "" {
		filter.Channels = []string{c}
	}

	totals, err := h.svc.Totals(r.Context(), filter)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, adapters.MapSalesTotalsStoreToApi(totals, filter))
}

func (h *Handler) UpliftModel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	curves, err := h.svc.UpliftModel(r.Context(), strings.TrimSpace(q.Get("department")), strings.TrimSpace(q.Get("channel")))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	res := api.UpliftModel{Curves: make([]api.UpliftCurve, 0, len(curves))}
	for _, c := range curves {
		res.Curves = append(res.Curves, adapters.MapCurveDomainToApi(c.Department, c.Channel, c.Bands))
	}
	response.JSON(w, r, http.StatusOK, res)
}

func (h *Handler) Segments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := queryInt(q.Get("page"), "page")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	pageSize, err := queryInt(q.Get("page_size"), "page_size")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	res, err := h.svc.Segments(r.Context(), page, pageSize)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	segments := make([]api.Segment, 0, len(res.Segments))
	for _, s := range res.Segments {
		segments = append(segments, adapters.MapSegmentDomainToApi(s))
	}

	totalPages := (res.Total + int64(res.PageSize) - 1) / int64(res.PageSize)
	w.Header().Set(HeaderPage, strconv.Itoa(res.Page))
	w.Header().Set(HeaderPageSize, strconv.Itoa(res.PageSize))
	w.Header().Set(HeaderTotal, strconv.FormatInt(res.Total, 10))
	w.Header().Set(HeaderTotalPages, strconv.FormatInt(totalPages, 10))

	response.JSON(w, r, http.StatusOK, api.SegmentPage{
		Segments: segments,
		Page:     res.Page,
		PageSize: res.PageSize,
		Total:    res.Total,
	})
}

// Gaps reports the month's gap to target. sales_target, margin_pct_target and
// units_target override the stored target.
func (h *Handler) Gaps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	month := strings.TrimSpace(q.Get("month"))
	if month == "" {
		response.Error(w, r, domain.NewError(domain.KindInvalidInput, "month is required"))
		return
	}

	var (
		override data.TargetOverride
		err      error
	)
	for name, dst := range map[string]**float64{
		"sales_target":      &override.SalesTarget,
		"margin_pct_target": &override.MarginPctTarget,
		"units_target":      &override.UnitsTarget,
	} {
		if *dst, err = queryFloat(q.Get(name), name); err != nil {
			response.Error(w, r, err)
			return
		}
	}

	gap, err := h.svc.Gaps(r.Context(), month, override)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, adapters.MapGapDomainToApi(gap))
}

func (h *Handler) Months(w http.ResponseWriter, r *http.Request) {
	months, err := h.svc.Months(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if months == nil {
		months = []string{}
	}
	response.JSON(w, r, http.StatusOK, api.Months{Months: months})
}

func (h *Handler) Quality(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Quality(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, adapters.MapQualityDomainToApi(report))
}

func (h *Handler) Learn(w http.ResponseWriter, r *http.Request) {
	result, err := h.learner.Learn(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, adapters.MapLearnResultDomainToApi(result))
}

func queryDate(value, name string) (time.Time, error) {
	if value == "" {
		return time.Time{}, domain.NewError(domain.KindInvalidDateRange, "%s is required", name)
	}
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, domain.WrapError(domain.KindInvalidDateRange, err, "invalid %s %q, expected YYYY-MM-DD", name, value)
	}
	return t, nil
}

// queryInt treats a missing parameter as 0 so the service applies its default.
func queryInt(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, domain.WrapError(domain.KindInvalidInput, err, "%s must be an integer", name)
	}
	return n, nil
}

// queryFloat returns nil for a missing parameter.
func queryFloat(value, name string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidInput, err, "%s must be a number", name)
	}
	return &f, nil
}
