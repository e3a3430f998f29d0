package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"strompris/internal/dataprocessing"
	apierrors "strompris/internal/errors"
	"strompris/internal/exporter"
	reqmw "strompris/internal/middleware"
	"strompris/internal/services"
	"strompris/pkg/contracts/domain"
)

// EmptyMessage is shown when a selection matches no records
const EmptyMessage = "No data available for the selected filters."

type selectionCtxKey struct{}

// SelectionQuery is the filter accepted by every price endpoint. Years are
// not range checked here; the service clamps them to the dataset bounds.
type SelectionQuery struct {
	Regions []string `json:"region" validate:"omitempty,dive,region"`
	From    *int     `json:"from"`
	To      *int     `json:"to"`
}

// exportFile is the {file} path parameter of the export route
type exportFile struct {
	Name string `json:"file" validate:"required,csvview"`
}

// PriceResponse wraps every non-empty query result
type PriceResponse struct {
	Status    string           `json:"status"`
	Unit      string           `json:"unit"`
	Selection domain.Selection `json:"selection"`
	Data      interface{}      `json:"data"`
}

// EmptyResponse is returned when the selection matched nothing
type EmptyResponse struct {
	Status    string           `json:"status"`
	Message   string           `json:"message"`
	Selection domain.Selection `json:"selection"`
}

// SeasonalData pairs the seasonal means with their distribution summary
type SeasonalData struct {
	Averages     []domain.SeasonalAverage `json:"averages"`
	Distribution []domain.SeasonalBox     `json:"distribution"`
}

// LatestData is the per-region mean of the latest selected year
type LatestData struct {
	Year    int                 `json:"year"`
	Regions []domain.RegionMean `json:"regions"`
}

// RecordsData is the filtered canonical table
type RecordsData struct {
	Count   int                  `json:"count"`
	Records []domain.PriceRecord `json:"records"`
}

// PriceHandler serves the price API
type PriceHandler struct {
	service      PriceServiceInterface
	validator    StructValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPriceHandler creates a new price handler
func NewPriceHandler(service PriceServiceInterface, validator StructValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PriceHandler {
	return &PriceHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "price_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the price routes
func (h *PriceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/meta", h.GetMeta)
	r.Post("/reload", h.Reload)

	r.Group(func(r chi.Router) {
		r.Use(h.SelectionCtx)

		r.Get("/records", h.view(exporter.ViewRecords, recordsData))
		r.Get("/annual", h.view(exporter.ViewAnnual, annualData))
		r.Get("/overview", h.view("overview", overviewData))
		r.Get("/trend", h.view(exporter.ViewTrend, trendData))
		r.Get("/seasonal", h.view(exporter.ViewSeasonal, seasonalData))
		r.Get("/stats", h.view(exporter.ViewStats, statsData))
		r.Get("/latest", h.view(exporter.ViewLatest, latestData))
		r.Get("/export/{file}", h.Export)
	})

	return r
}

// SelectionCtx parses and validates the region/from/to query parameters
func (h *PriceHandler) SelectionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query, err := ParseSelectionQuery(r)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		if err := h.validator.ValidateStruct(query); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), selectionCtxKey{}, query)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseSelectionQuery reads region, from and to from the URL query.
// region may repeat and may hold comma separated values.
func ParseSelectionQuery(r *http.Request) (SelectionQuery, error) {
	q := r.URL.Query()
	var query SelectionQuery

	for _, raw := range q["region"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				query.Regions = append(query.Regions, part)
			}
		}
	}

	var fieldErrs []apierrors.ValidationError
	parseYear := func(name string) *int {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrs = append(fieldErrs, apierrors.ValidationError{Field: name, Message: fmt.Sprintf("%s must be a whole year", name)})
			return nil
		}
		return &v
	}
	query.From = parseYear("from")
	query.To = parseYear("to")

	if len(fieldErrs) > 0 {
		return SelectionQuery{}, apierrors.NewValidationErrors(fieldErrs)
	}
	return query, nil
}

func selectionFrom(ctx context.Context) SelectionQuery {
	query, _ := ctx.Value(selectionCtxKey{}).(SelectionQuery)
	return query
}

func (q SelectionQuery) request() services.SelectionRequest {
	return services.SelectionRequest{Regions: q.Regions, FromYear: q.From, ToYear: q.To}
}

// viewData builds the response body for a non-empty selection
type viewData func(agg *dataprocessing.Aggregator) interface{}

func (h *PriceHandler) view(name exporter.View, data viewData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.service.Query(r.Context(), string(name), selectionFrom(r.Context()).request())
		if err != nil {
			h.fail(w, r, err)
			return
		}

		if res.Aggregator.Empty() {
			renderEmpty(w, r, res.Selection)
			return
		}

		render.JSON(w, r, PriceResponse{
			Status:    "ok",
			Unit:      domain.PriceUnit,
			Selection: res.Selection,
			Data:      data(res.Aggregator),
		})
	}
}

func renderEmpty(w http.ResponseWriter, r *http.Request, sel domain.Selection) {
	render.JSON(w, r, EmptyResponse{
		Status:    "empty",
		Message:   EmptyMessage,
		Selection: sel,
	})
}

func recordsData(agg *dataprocessing.Aggregator) interface{} {
	records := agg.Records()
	return RecordsData{Count: len(records), Records: records}
}

func annualData(agg *dataprocessing.Aggregator) interface{} {
	return agg.RegionalAnnualAverages()
}

func overviewData(agg *dataprocessing.Aggregator) interface{} {
	m, _ := agg.Overview()
	return m
}

func trendData(agg *dataprocessing.Aggregator) interface{} {
	return agg.AnnualTrend()
}

func seasonalData(agg *dataprocessing.Aggregator) interface{} {
	return SeasonalData{
		Averages:     agg.SeasonalAverages(),
		Distribution: agg.SeasonalDistribution(),
	}
}

func statsData(agg *dataprocessing.Aggregator) interface{} {
	return agg.RegionalStats()
}

func latestData(agg *dataprocessing.Aggregator) interface{} {
	year, regions := agg.LatestYearByRegion()
	return LatestData{Year: year, Regions: regions}
}

// GetMeta handles GET /api/prices/meta
func (h *PriceHandler) GetMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Meta()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, meta)
}

// Reload handles POST /api/prices/reload and answers with the new metadata
func (h *PriceHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "reload requested",
		slog.String("request_id", reqmw.GetRequestID(r.Context())),
		slog.String("remote_addr", r.RemoteAddr))

	if _, err := h.service.Reload(r.Context(), services.TriggerHTTP); err != nil {
		h.fail(w, r, err)
		return
	}

	meta, err := h.service.Meta()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, meta)
}

// Export handles GET /api/prices/export/{view}.csv
func (h *PriceHandler) Export(w http.ResponseWriter, r *http.Request) {
	file := exportFile{Name: chi.URLParam(r, "file")}
	if err := h.validator.ValidateStruct(file); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := exporter.ParseView(strings.TrimSuffix(file.Name, ".csv"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("export view").WithDetails(map[string]interface{}{
			"view":      file.Name,
			"available": exporter.Views(),
		}))
		return
	}

	res, err := h.service.Query(r.Context(), "export_"+string(view), selectionFrom(r.Context()).request())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if res.Aggregator.Empty() {
		renderEmpty(w, r, res.Selection)
		return
	}

	table, err := exporter.ViewTable(view, res.Aggregator)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="strompris-%s.csv"`, view))
	w.WriteHeader(http.StatusOK)
	if err := exporter.Encode(w, table, true); err != nil {
		// Headers are gone; all that is left is to log.
		h.logger.ErrorContext(r.Context(), "csv export write failed",
			slog.String("request_id", reqmw.GetRequestID(r.Context())),
			slog.String("view", string(view)),
			slog.String("error", err.Error()))
	}
}

func (h *PriceHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.errorHandler.HandleError(w, r, MapServiceError(err))
}

// MapServiceError converts service and pipeline errors to API errors.
// Unknown errors pass through and become 500 (or 504 for deadlines).
func MapServiceError(err error) error {
	var selErr *services.SelectionError
	switch {
	case errors.Is(err, services.ErrDatasetNotLoaded):
		return apierrors.ErrDatasetNotLoaded
	case errors.As(err, &selErr):
		return apierrors.ErrValidation(selErr.Field, selErr.Message)
	case errors.Is(err, services.ErrInvalidSelection):
		return apierrors.ErrValidationFailed.WithDetails(err.Error())
	case errors.Is(err, dataprocessing.ErrSchemaMismatch):
		return apierrors.ErrSchemaMismatch.WithDetails(err.Error())
	case errors.Is(err, dataprocessing.ErrDuplicateRecord):
		return apierrors.ErrDuplicateRecord.WithDetails(err.Error())
	case errors.Is(err, dataprocessing.ErrSourceFileMissing), errors.Is(err, dataprocessing.ErrSourceFileUnreadable):
		return apierrors.ErrSourceUnavailable.WithDetails(err.Error())
	default:
		return err
	}
}
