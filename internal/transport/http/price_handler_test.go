package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"strompris/internal/dataprocessing"
	apierrors "strompris/internal/errors"
	"strompris/internal/middleware"
	"strompris/internal/services"
	"strompris/internal/shared/testutil"
	"strompris/pkg/contracts/domain"
)

// MockPriceService is a mock implementation of PriceServiceInterface
type MockPriceService struct {
	mock.Mock
}

func (m *MockPriceService) Meta() (*services.DatasetMeta, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DatasetMeta), args.Error(1)
}

func (m *MockPriceService) Query(ctx context.Context, view string, req services.SelectionRequest) (*services.QueryResult, error) {
	args := m.Called(view, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.QueryResult), args.Error(1)
}

func (m *MockPriceService) Reload(ctx context.Context, trigger string) (*dataprocessing.Dataset, error) {
	args := m.Called(trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataprocessing.Dataset), args.Error(1)
}

func newPriceRouter(t *testing.T, svc PriceServiceInterface) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewPriceHandler(svc, middleware.NewValidator(logger), logger, apierrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api/prices", h.Routes())
	return r
}

func record(code domain.RegionCode, name string, year, month int, price float64) domain.PriceRecord {
	return domain.PriceRecord{RegionCode: code, RegionName: name, Year: year, Month: month, Date: domain.MonthDate(year, month), Price: price}
}

// sampleResult is Øst-Norge and Nord-Norge over 2022-2023
func sampleResult(sel domain.Selection) *services.QueryResult {
	ds := dataprocessing.NewDataset([]domain.PriceRecord{
		record(domain.RegionNO1, "Øst-Norge", 2022, 1, 100),
		record(domain.RegionNO1, "Øst-Norge", 2023, 1, 50),
		record(domain.RegionNO1, "Øst-Norge", 2023, 2, 80),
		record(domain.RegionNO4, "Nord-Norge", 2023, 1, 20.25),
	}, "prices.xlsx", time.Now())
	return &services.QueryResult{Selection: sel, Aggregator: ds.Query(sel)}
}

var fullSelection = domain.Selection{Regions: []string{"Nord-Norge", "Øst-Norge"}, FromYear: 2022, ToYear: 2023}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestPriceHandler_SelectionParsing(t *testing.T) {
	svc := new(MockPriceService)
	svc.On("Query", "overview", mock.MatchedBy(func(req services.SelectionRequest) bool {
		return assert.ObjectsAreEqual([]string{"NO1", "Nord-Norge", "no5"}, req.Regions) &&
			req.FromYear != nil && *req.FromYear == 2022 &&
			req.ToYear == nil
	})).Return(sampleResult(fullSelection), nil)

	w := serve(newPriceRouter(t, svc), http.MethodGet, "/api/prices/overview?region=NO1&region=Nord-Norge,%20no5&from=2022")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestPriceHandler_Views(t *testing.T) {
	tests := []struct {
		path  string
		view  string
		check func(t *testing.T, data interface{})
	}{
		{"/records", "records", func(t *testing.T, data interface{}) {
			assert.Equal(t, float64(4), data.(map[string]interface{})["count"])
		}},
		{"/annual", "annual", func(t *testing.T, data interface{}) {
			assert.Len(t, data, 3)
		}},
		{"/overview", "overview", func(t *testing.T, data interface{}) {
			m := data.(map[string]interface{})
			assert.Equal(t, float64(2023), m["year"])
			assert.Equal(t, "Øst-Norge", m["highest_region"])
			assert.Equal(t, "Nord-Norge", m["lowest_region"])
			assert.Len(t, m["region_means"], 2)
		}},
		{"/trend", "trend", func(t *testing.T, data interface{}) {
			points := data.([]interface{})
			require.Len(t, points, 2)
			assert.Nil(t, points[0].(map[string]interface{})["change_percent"])
			assert.NotNil(t, points[1].(map[string]interface{})["change_percent"])
		}},
		{"/seasonal", "seasonal", func(t *testing.T, data interface{}) {
			m := data.(map[string]interface{})
			assert.NotEmpty(t, m["averages"])
			assert.NotEmpty(t, m["distribution"])
		}},
		{"/stats", "stats", func(t *testing.T, data interface{}) {
			stats := data.([]interface{})
			require.Len(t, stats, 2)
			// Nord-Norge has a single observation
			assert.Nil(t, stats[0].(map[string]interface{})["std_dev"])
		}},
		{"/latest", "latest", func(t *testing.T, data interface{}) {
			m := data.(map[string]interface{})
			assert.Equal(t, float64(2023), m["year"])
			assert.Len(t, m["regions"], 2)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			svc := new(MockPriceService)
			svc.On("Query", tt.view, services.SelectionRequest{}).Return(sampleResult(fullSelection), nil)

			w := serve(newPriceRouter(t, svc), http.MethodGet, "/api/prices"+tt.path)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			body := decode(t, w)
			assert.Equal(t, "ok", body["status"])
			assert.Equal(t, domain.PriceUnit, body["unit"])
			tt.check(t, body["data"])
			svc.AssertExpectations(t)
		})
	}
}

func TestPriceHandler_EmptySelection(t *testing.T) {
	empty := domain.Selection{Regions: []string{"Vest-Norge"}, FromYear: 2022, ToYear: 2023}
	svc := new(MockPriceService)
	svc.On("Query", "trend", mock.Anything).Return(sampleResult(empty), nil)

	w := serve(newPriceRouter(t, svc), http.MethodGet, "/api/prices/trend?region=NO5")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "empty", body["status"])
	assert.Equal(t, EmptyMessage, body["message"])
	assert.NotContains(t, body, "data")
}

func TestPriceHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantField string
	}{
		{"non-numeric year", "/api/prices/overview?from=abc", "from"},
		{"fractional year", "/api/prices/overview?to=2020.5", "to"},
		{"unknown region", "/api/prices/overview?region=Finnmark", "region[0]"},
		{"year overflows int", "/api/prices/overview?from=99999999999999999999", "from"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPriceService)
			w := serve(newPriceRouter(t, svc), http.MethodGet, tt.target)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			assert.Equal(t, apierrors.CodeValidationFailed, body["error_code"])
			assert.Contains(t, w.Body.String(), fmt.Sprintf("%q", tt.wantField))
			svc.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
		})
	}
}

func TestPriceHandler_FarYearsReachService(t *testing.T) {
	svc := new(MockPriceService)
	svc.On("Query", "overview", mock.MatchedBy(func(req services.SelectionRequest) bool {
		return req.FromYear != nil && *req.FromYear == 1500 &&
			req.ToYear != nil && *req.ToYear == 3000
	})).Return(sampleResult(fullSelection), nil)

	w := serve(newPriceRouter(t, svc), http.MethodGet, "/api/prices/overview?from=1500&to=3000")

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestPriceHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not loaded", services.ErrDatasetNotLoaded, http.StatusServiceUnavailable, apierrors.CodeDatasetNotLoaded},
		{"from after to", &services.SelectionError{Field: "from", Message: "from year 2023 is after to year 2022"}, http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"unexpected", assert.AnError, http.StatusInternalServerError, apierrors.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPriceService)
			svc.On("Query", "stats", mock.Anything).Return(nil, tt.err)

			w := serve(newPriceRouter(t, svc), http.MethodGet, "/api/prices/stats")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w)["error_code"])
		})
	}
}

func TestPriceHandler_Meta(t *testing.T) {
	svc := new(MockPriceService)
	svc.On("Meta").Return(&services.DatasetMeta{MinYear: 2014, MaxYear: 2024, Unit: domain.PriceUnit, Records: 600}, nil)

	w := serve(newPriceRouter(t, svc), http.MethodGet, "/api/prices/meta")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2014), body["min_year"])
	assert.Equal(t, float64(2024), body["max_year"])
	assert.Equal(t, domain.PriceUnit, body["unit"])
}

func TestPriceHandler_Reload(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"success", nil, http.StatusOK, ""},
		{"schema mismatch", fmt.Errorf("load x: %w", dataprocessing.ErrSchemaMismatch), http.StatusUnprocessableEntity, apierrors.CodeSchemaMismatch},
		{"duplicate", dataprocessing.ErrDuplicateRecord, http.StatusUnprocessableEntity, apierrors.CodeDuplicateRecord},
		{"missing", dataprocessing.ErrSourceFileMissing, http.StatusFailedDependency, apierrors.CodeSourceUnavailable},
		{"unreadable", dataprocessing.ErrSourceFileUnreadable, http.StatusFailedDependency, apierrors.CodeSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPriceService)
			if tt.err != nil {
				svc.On("Reload", services.TriggerHTTP).Return(nil, tt.err)
			} else {
				svc.On("Reload", services.TriggerHTTP).Return(dataprocessing.NewDataset(nil, "x.xlsx", time.Now()), nil)
				svc.On("Meta").Return(&services.DatasetMeta{Source: "x.xlsx"}, nil)
			}

			w := serve(newPriceRouter(t, svc), http.MethodPost, "/api/prices/reload")

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			} else {
				assert.Equal(t, "x.xlsx", body["source"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestPriceHandler_Export(t *testing.T) {
	svc := new(MockPriceService)
	svc.On("Query", "export_trend", services.SelectionRequest{Regions: []string{"NO1"}}).
		Return(sampleResult(domain.Selection{Regions: []string{"Øst-Norge"}, FromYear: 2022, ToYear: 2023}), nil)

	w := serve(newPriceRouter(t, svc), http.MethodGet, "/api/prices/export/trend.csv?region=NO1")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="strompris-trend.csv"`)

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "\uFEFF"), "missing BOM")
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(body, "\uFEFF")), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "year,"))
	assert.True(t, strings.HasPrefix(lines[1], "2022,100.00,"))
}

func TestPriceHandler_ExportEmptySelection(t *testing.T) {
	empty := domain.Selection{Regions: []string{"Vest-Norge"}, FromYear: 2022, ToYear: 2023}
	svc := new(MockPriceService)
	svc.On("Query", "export_annual", mock.Anything).Return(sampleResult(empty), nil)

	w := serve(newPriceRouter(t, svc), http.MethodGet, "/api/prices/export/annual.csv?region=NO5")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	body := decode(t, w)
	assert.Equal(t, "empty", body["status"])
	assert.Equal(t, EmptyMessage, body["message"])
}

func TestPriceHandler_ExportRejects(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"unknown view", "/api/prices/export/forecast.csv", http.StatusNotFound},
		{"wrong suffix", "/api/prices/export/trend.json", http.StatusBadRequest},
		{"dotted view", "/api/prices/export/..trend.csv", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPriceService)
			w := serve(newPriceRouter(t, svc), http.MethodGet, tt.target)

			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
		})
	}
}

func TestMapServiceError(t *testing.T) {
	err := MapServiceError(fmt.Errorf("wrap: %w", services.ErrInvalidSelection))
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	assert.Same(t, assert.AnError, MapServiceError(assert.AnError))
	assert.ErrorIs(t, MapServiceError(context.DeadlineExceeded), context.DeadlineExceeded)
}
