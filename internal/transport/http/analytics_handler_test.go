package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"cclens/internal/analytics"
	"cclens/internal/complaints"
	apierrors "cclens/internal/errors"
	"cclens/internal/services"
)

// MockAnalyticsService is a mock implementation of AnalyticsServiceInterface
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Overview(ctx context.Context, sel complaints.FilterSelection) (analytics.Overview, error) {
	args := m.Called(sel)
	return args.Get(0).(analytics.Overview), args.Error(1)
}

func (m *MockAnalyticsService) Ranking(ctx context.Context, sel complaints.FilterSelection, dimension, measure string, limit int) (analytics.RankedTable, error) {
	args := m.Called(sel, dimension, measure, limit)
	return args.Get(0).(analytics.RankedTable), args.Error(1)
}

func (m *MockAnalyticsService) CrossTab(ctx context.Context, sel complaints.FilterSelection, rows, cols, measure string, topRows, topCols int) (analytics.CrossTab, error) {
	args := m.Called(sel, rows, cols, measure, topRows, topCols)
	return args.Get(0).(analytics.CrossTab), args.Error(1)
}

func (m *MockAnalyticsService) TimeSeries(ctx context.Context, sel complaints.FilterSelection, granularity, measure string) ([]analytics.SeriesPoint, error) {
	args := m.Called(sel, granularity, measure)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.SeriesPoint), args.Error(1)
}

func (m *MockAnalyticsService) YearOverYear(ctx context.Context, sel complaints.FilterSelection, measure string) (analytics.YoYSummary, error) {
	args := m.Called(sel, measure)
	return args.Get(0).(analytics.YoYSummary), args.Error(1)
}

func (m *MockAnalyticsService) ProductTrends(ctx context.Context, sel complaints.FilterSelection, topN int) ([]analytics.ProductTrend, error) {
	args := m.Called(sel, topN)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.ProductTrend), args.Error(1)
}

func (m *MockAnalyticsService) ResponseMix(ctx context.Context, sel complaints.FilterSelection) ([]analytics.ResponseShare, error) {
	args := m.Called(sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.ResponseShare), args.Error(1)
}

func (m *MockAnalyticsService) CompanyPerformance(ctx context.Context, sel complaints.FilterSelection, topN int) ([]analytics.CompanyPerformance, error) {
	args := m.Called(sel, topN)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.CompanyPerformance), args.Error(1)
}

func (m *MockAnalyticsService) LatencyStats(ctx context.Context, sel complaints.FilterSelection, dimension string, topN int) ([]analytics.LatencyStats, error) {
	args := m.Called(sel, dimension, topN)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.LatencyStats), args.Error(1)
}

func (m *MockAnalyticsService) FilterOptions(ctx context.Context) (services.FilterOptions, error) {
	args := m.Called()
	return args.Get(0).(services.FilterOptions), args.Error(1)
}

func newTestAnalyticsHandler(service AnalyticsServiceInterface) *AnalyticsHandler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	errorHandler := apierrors.NewErrorHandler(logger, false)
	return NewAnalyticsHandler(service, logger, errorHandler)
}

func TestAnalyticsHandler_GetOverview(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockAnalyticsService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful overview",
			setupMock: func(m *MockAnalyticsService) {
				m.On("Overview", complaints.FilterSelection{}).Return(analytics.Overview{
					TotalComplaints: 120,
					Companies:       14,
					Products:        5,
					DisputeRisk:     "watch",
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"total_complaints":120`,
		},
		{
			name: "dataset not loaded",
			setupMock: func(m *MockAnalyticsService) {
				m.On("Overview", complaints.FilterSelection{}).Return(analytics.Overview{}, services.ErrDatasetNotLoaded)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"DATASET_NOT_LOADED"`,
		},
		{
			name: "internal error",
			setupMock: func(m *MockAnalyticsService) {
				m.On("Overview", complaints.FilterSelection{}).Return(analytics.Overview{}, errors.New("cache corrupted"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"status":500`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAnalyticsService)
			tt.setupMock(mockService)
			handler := newTestAnalyticsHandler(mockService)

			req := httptest.NewRequest("GET", "/api/analytics/overview", nil)
			rec := httptest.NewRecorder()

			handler.GetOverview(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAnalyticsHandler_GetOverview_Selection(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected complaints.FilterSelection
	}{
		{
			name:     "repeated params",
			query:    "?years=2023&years=2024&products=Mortgage",
			expected: complaints.FilterSelection{Years: []int{2023, 2024}, Products: []string{"Mortgage"}},
		},
		{
			name:     "comma separated",
			query:    "?years=2023,2024&products=Mortgage,Debt%20collection",
			expected: complaints.FilterSelection{Years: []int{2023, 2024}, Products: []string{"Mortgage", "Debt collection"}},
		},
		{
			name:     "no filters",
			query:    "",
			expected: complaints.FilterSelection{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAnalyticsService)
			mockService.On("Overview", tt.expected).Return(analytics.Overview{TotalComplaints: 1}, nil)
			handler := newTestAnalyticsHandler(mockService)

			req := httptest.NewRequest("GET", "/api/analytics/overview"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.GetOverview(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAnalyticsHandler_GetOverview_InvalidYear(t *testing.T) {
	mockService := new(MockAnalyticsService)
	handler := newTestAnalyticsHandler(mockService)

	req := httptest.NewRequest("GET", "/api/analytics/overview?years=banana", nil)
	rec := httptest.NewRecorder()

	handler.GetOverview(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
	mockService.AssertNotCalled(t, "Overview", mock.Anything)
}

func TestAnalyticsHandler_GetRankings(t *testing.T) {
	table := analytics.RankedTable{
		Dimension: analytics.DimensionCompany,
		Measure:   analytics.MeasureDisputeRate,
		Rows: []analytics.GroupStat{
			{Key: "Acme Bank", Count: 40, Affected: 12, Pct: 30, Risk: "critical"},
			{Key: "Beta Credit", Count: 25, Affected: 3, Pct: 12, Risk: "watch"},
		},
		TotalRecords: 65,
	}

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockAnalyticsService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "defaults applied",
			query: "",
			setupMock: func(m *MockAnalyticsService) {
				m.On("Ranking", complaints.FilterSelection{}, "product", "count", 0).Return(table, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":2`,
		},
		{
			name:  "explicit dimension and measure",
			query: "?dimension=company&measure=dispute_rate&limit=5",
			setupMock: func(m *MockAnalyticsService) {
				m.On("Ranking", complaints.FilterSelection{}, "company", "dispute_rate", 5).Return(table, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"Acme Bank"`,
		},
		{
			name:  "invalid dimension",
			query: "?dimension=flavor",
			setupMock: func(m *MockAnalyticsService) {
				m.On("Ranking", complaints.FilterSelection{}, "flavor", "count", 0).
					Return(analytics.RankedTable{}, services.ErrInvalidDimension)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"INVALID_DIMENSION"`,
		},
		{
			name:  "invalid measure",
			query: "?measure=velocity",
			setupMock: func(m *MockAnalyticsService) {
				m.On("Ranking", complaints.FilterSelection{}, "product", "velocity", 0).
					Return(analytics.RankedTable{}, services.ErrInvalidMeasure)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"INVALID_MEASURE"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAnalyticsService)
			tt.setupMock(mockService)
			handler := newTestAnalyticsHandler(mockService)

			req := httptest.NewRequest("GET", "/api/analytics/rankings"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.GetRankings(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAnalyticsHandler_GetRankings_LimitOutOfRange(t *testing.T) {
	mockService := new(MockAnalyticsService)
	handler := newTestAnalyticsHandler(mockService)

	req := httptest.NewRequest("GET", "/api/analytics/rankings?limit=9999", nil)
	rec := httptest.NewRecorder()

	handler.GetRankings(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
	mockService.AssertNotCalled(t, "Ranking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyticsHandler_GetCrossTab(t *testing.T) {
	matrix := analytics.CrossTab{
		RowDim:  analytics.DimensionProduct,
		ColDim:  analytics.DimensionYear,
		Measure: analytics.MeasureCount,
		RowKeys: []string{"Mortgage", "Credit card"},
		ColKeys: []string{"2023", "2024"},
		Cells: [][]analytics.Cell{
			{{Count: 3, HasData: true}, {Count: 5, HasData: true}},
			{{Count: 2, HasData: true}, {Count: 1, HasData: true}},
		},
		RowMargins: []analytics.Cell{{Count: 8, HasData: true}, {Count: 3, HasData: true}},
		ColMargins: []analytics.Cell{{Count: 5, HasData: true}, {Count: 6, HasData: true}},
		Grand:      analytics.Cell{Count: 11, HasData: true},
	}

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockAnalyticsService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "defaults to product by year counts",
			query: "",
			setupMock: func(m *MockAnalyticsService) {
				m.On("CrossTab", complaints.FilterSelection{}, "product", "year", "count", 0, 0).Return(matrix, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"row_keys":["Mortgage","Credit card"]`,
		},
		{
			name:  "explicit dimensions and caps",
			query: "?rows=company&cols=quarter&measure=dispute_rate&top_rows=10&top_cols=4",
			setupMock: func(m *MockAnalyticsService) {
				m.On("CrossTab", complaints.FilterSelection{}, "company", "quarter", "dispute_rate", 10, 4).Return(matrix, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"success"`,
		},
		{
			name:  "latency rejected",
			query: "?measure=latency",
			setupMock: func(m *MockAnalyticsService) {
				m.On("CrossTab", complaints.FilterSelection{}, "product", "year", "latency", 0, 0).
					Return(analytics.CrossTab{}, services.ErrUnsupportedMeasure)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"UNSUPPORTED_MEASURE"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAnalyticsService)
			tt.setupMock(mockService)
			handler := newTestAnalyticsHandler(mockService)

			req := httptest.NewRequest("GET", "/api/analytics/crosstab"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.GetCrossTab(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAnalyticsHandler_GetTimeSeries(t *testing.T) {
	points := []analytics.SeriesPoint{
		{Period: "2023-11", Count: 4},
		{Period: "2023-12", Count: 9},
	}

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockAnalyticsService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "defaults to monthly counts",
			query: "",
			setupMock: func(m *MockAnalyticsService) {
				m.On("TimeSeries", complaints.FilterSelection{}, "month", "count").Return(points, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"period":"2023-11"`,
		},
		{
			name:  "quarterly dispute rate",
			query: "?granularity=quarter&measure=dispute_rate",
			setupMock: func(m *MockAnalyticsService) {
				m.On("TimeSeries", complaints.FilterSelection{}, "quarter", "dispute_rate").Return(points, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":2`,
		},
		{
			name:  "invalid granularity",
			query: "?granularity=fortnight",
			setupMock: func(m *MockAnalyticsService) {
				m.On("TimeSeries", complaints.FilterSelection{}, "fortnight", "count").
					Return(nil, services.ErrInvalidGranularity)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"INVALID_GRANULARITY"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAnalyticsService)
			tt.setupMock(mockService)
			handler := newTestAnalyticsHandler(mockService)

			req := httptest.NewRequest("GET", "/api/analytics/timeseries"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.GetTimeSeries(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAnalyticsHandler_GetYearOverYear(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockAnalyticsService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful comparison",
			setupMock: func(m *MockAnalyticsService) {
				m.On("YearOverYear", complaints.FilterSelection{}, "count").Return(analytics.YoYSummary{
					Measure:   analytics.MeasureCount,
					FirstYear: 2023,
					LastYear:  2024,
					GrowthPct: 50,
					Trend:     "rising",
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"growth_pct":50`,
		},
		{
			name: "single year answers 200",
			setupMock: func(m *MockAnalyticsService) {
				m.On("YearOverYear", complaints.FilterSelection{}, "count").
					Return(analytics.YoYSummary{}, services.ErrInsufficientYears)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"insufficient_years"`,
		},
		{
			name: "dataset not loaded",
			setupMock: func(m *MockAnalyticsService) {
				m.On("YearOverYear", complaints.FilterSelection{}, "count").
					Return(analytics.YoYSummary{}, services.ErrDatasetNotLoaded)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"DATASET_NOT_LOADED"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAnalyticsService)
			tt.setupMock(mockService)
			handler := newTestAnalyticsHandler(mockService)

			req := httptest.NewRequest("GET", "/api/analytics/yoy", nil)
			rec := httptest.NewRecorder()

			handler.GetYearOverYear(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAnalyticsHandler_GetProductTrends(t *testing.T) {
	trends := []analytics.ProductTrend{
		{Product: "Mortgage", FirstYear: 2023, LastYear: 2024, FirstCount: 10, LastCount: 18, GrowthPct: 80, Trend: "rising"},
	}

	mockService := new(MockAnalyticsService)
	mockService.On("ProductTrends", complaints.FilterSelection{}, 3).Return(trends, nil)
	handler := newTestAnalyticsHandler(mockService)

	req := httptest.NewRequest("GET", "/api/analytics/trends/products?limit=3", nil)
	rec := httptest.NewRecorder()

	handler.GetProductTrends(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"trend":"rising"`)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	mockService.AssertExpectations(t)
}

func TestAnalyticsHandler_GetResponseMix(t *testing.T) {
	shares := []analytics.ResponseShare{
		{Response: "Closed with explanation", Order: 3, Count: 70, Pct: 70},
		{Response: "Closed with monetary relief", Order: 1, Count: 30, Pct: 30},
	}

	mockService := new(MockAnalyticsService)
	mockService.On("ResponseMix", complaints.FilterSelection{Years: []int{2024}}).Return(shares, nil)
	handler := newTestAnalyticsHandler(mockService)

	req := httptest.NewRequest("GET", "/api/analytics/responses/mix?years=2024", nil)
	rec := httptest.NewRecorder()

	handler.GetResponseMix(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Closed with explanation"`)
	mockService.AssertExpectations(t)
}

func TestAnalyticsHandler_GetCompanyPerformance(t *testing.T) {
	companies := []analytics.CompanyPerformance{
		{Company: "Acme Bank", Count: 40, TimelyPct: 95, DisputedPct: 30, MeanLatencyDays: 2.5, Risk: "critical"},
	}

	mockService := new(MockAnalyticsService)
	mockService.On("CompanyPerformance", complaints.FilterSelection{}, 25).Return(companies, nil)
	handler := newTestAnalyticsHandler(mockService)

	req := httptest.NewRequest("GET", "/api/analytics/companies/performance?limit=25", nil)
	rec := httptest.NewRecorder()

	handler.GetCompanyPerformance(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mean_latency_days":2.5`)
	mockService.AssertExpectations(t)
}

func TestAnalyticsHandler_GetLatency(t *testing.T) {
	stats := []analytics.LatencyStats{
		{Key: "Web", Count: 12, Mean: 1.5, Median: 1, Min: 0, Max: 6, Std: 1.2},
	}

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockAnalyticsService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "by submission channel",
			query: "?dimension=submitted_via&limit=10",
			setupMock: func(m *MockAnalyticsService) {
				m.On("LatencyStats", complaints.FilterSelection{}, "submitted_via", 10).Return(stats, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"median":1`,
		},
		{
			name:  "invalid dimension",
			query: "?dimension=flavor",
			setupMock: func(m *MockAnalyticsService) {
				m.On("LatencyStats", complaints.FilterSelection{}, "flavor", 0).
					Return(nil, services.ErrInvalidDimension)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"INVALID_DIMENSION"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAnalyticsService)
			tt.setupMock(mockService)
			handler := newTestAnalyticsHandler(mockService)

			req := httptest.NewRequest("GET", "/api/analytics/latency"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.GetLatency(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

// TestAnalyticsHandler_Routes verifies every documented path is wired. Each
// route answers 503 from the shared not-loaded mapping, which also proves
// the sentinel handling is uniform across endpoints.
func TestAnalyticsHandler_Routes(t *testing.T) {
	mockService := new(MockAnalyticsService)
	zeroSel := complaints.FilterSelection{}
	mockService.On("Overview", zeroSel).Return(analytics.Overview{}, services.ErrDatasetNotLoaded)
	mockService.On("Ranking", zeroSel, "product", "count", 0).Return(analytics.RankedTable{}, services.ErrDatasetNotLoaded)
	mockService.On("CrossTab", zeroSel, "product", "year", "count", 0, 0).Return(analytics.CrossTab{}, services.ErrDatasetNotLoaded)
	mockService.On("TimeSeries", zeroSel, "month", "count").Return(nil, services.ErrDatasetNotLoaded)
	mockService.On("YearOverYear", zeroSel, "count").Return(analytics.YoYSummary{}, services.ErrDatasetNotLoaded)
	mockService.On("ProductTrends", zeroSel, 0).Return(nil, services.ErrDatasetNotLoaded)
	mockService.On("ResponseMix", zeroSel).Return(nil, services.ErrDatasetNotLoaded)
	mockService.On("CompanyPerformance", zeroSel, 0).Return(nil, services.ErrDatasetNotLoaded)
	mockService.On("LatencyStats", zeroSel, "product", 0).Return(nil, services.ErrDatasetNotLoaded)

	handler := newTestAnalyticsHandler(mockService)
	router := chi.NewRouter()
	router.Mount("/api/analytics", handler.Routes())

	paths := []string{
		"/api/analytics/overview",
		"/api/analytics/rankings",
		"/api/analytics/crosstab",
		"/api/analytics/timeseries",
		"/api/analytics/yoy",
		"/api/analytics/trends/products",
		"/api/analytics/responses/mix",
		"/api/analytics/companies/performance",
		"/api/analytics/latency",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Contains(t, rec.Body.String(), "DATASET_NOT_LOADED")
		})
	}
}
