package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"cclens/internal/analytics"
	apierrors "cclens/internal/errors"
	customMiddleware "cclens/internal/middleware"
	"cclens/internal/services"
)

// AnalyticsHandler handles analytics query requests with RFC 7807 compliance
type AnalyticsHandler struct {
	service      AnalyticsServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	params       *customMiddleware.QueryParamValidator
}

// NewAnalyticsHandler creates a new analytics handler with RFC 7807 error handling
func NewAnalyticsHandler(service AnalyticsServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "analytics_handler")),
		errorHandler: errorHandler,
		params:       customMiddleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the analytics routes with proper Chi patterns
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/overview", h.GetOverview)
	r.Get("/rankings", h.GetRankings)
	r.Get("/crosstab", h.GetCrossTab)
	r.Get("/timeseries", h.GetTimeSeries)
	r.Get("/yoy", h.GetYearOverYear)
	r.Get("/trends/products", h.GetProductTrends)
	r.Get("/responses/mix", h.GetResponseMix)
	r.Get("/companies/performance", h.GetCompanyPerformance)
	r.Get("/latency", h.GetLatency)

	return r
}

// GetOverview handles GET /api/analytics/overview
func (h *AnalyticsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	sel, apiErr := parseSelection(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	h.logger.InfoContext(r.Context(), "computing overview",
		slog.String("request_id", reqID),
		slog.String("selection", sel.Canonical()),
	)

	overview, err := h.service.Overview(r.Context(), sel)
	if err != nil {
		h.handleQueryError(w, r, "overview", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   overview,
	})
}

// GetRankings handles GET /api/analytics/rankings
func (h *AnalyticsHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	sel, apiErr := parseSelection(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	dimension := queryDefault(r, "dimension", string(analytics.DimensionProduct))
	measure := queryDefault(r, "measure", string(analytics.MeasureCount))
	limit, ok := h.params.ValidateInt(w, r, "limit", 1, maxLimit, 0)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "computing rankings",
		slog.String("request_id", reqID),
		slog.String("dimension", dimension),
		slog.String("measure", measure),
		slog.Int("limit", limit),
	)

	table, err := h.service.Ranking(r.Context(), sel, dimension, measure, limit)
	if err != nil {
		h.handleQueryError(w, r, "rankings", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   table,
		"count":  len(table.Rows),
	})
}

// GetCrossTab handles GET /api/analytics/crosstab
func (h *AnalyticsHandler) GetCrossTab(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	sel, apiErr := parseSelection(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	rows := queryDefault(r, "rows", string(analytics.DimensionProduct))
	cols := queryDefault(r, "cols", string(analytics.DimensionYear))
	measure := queryDefault(r, "measure", string(analytics.MeasureCount))
	topRows, ok := h.params.ValidateInt(w, r, "top_rows", 1, maxLimit, 0)
	if !ok {
		return
	}
	topCols, ok := h.params.ValidateInt(w, r, "top_cols", 1, maxLimit, 0)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "computing crosstab",
		slog.String("request_id", reqID),
		slog.String("rows", rows),
		slog.String("cols", cols),
		slog.String("measure", measure),
	)

	table, err := h.service.CrossTab(r.Context(), sel, rows, cols, measure, topRows, topCols)
	if err != nil {
		h.handleQueryError(w, r, "crosstab", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   table,
		"count":  len(table.RowKeys),
	})
}

// GetTimeSeries handles GET /api/analytics/timeseries
func (h *AnalyticsHandler) GetTimeSeries(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	sel, apiErr := parseSelection(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	granularity := queryDefault(r, "granularity", string(analytics.GranularityMonth))
	measure := queryDefault(r, "measure", string(analytics.MeasureCount))

	h.logger.InfoContext(r.Context(), "computing timeseries",
		slog.String("request_id", reqID),
		slog.String("granularity", granularity),
		slog.String("measure", measure),
	)

	points, err := h.service.TimeSeries(r.Context(), sel, granularity, measure)
	if err != nil {
		h.handleQueryError(w, r, "timeseries", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   points,
		"count":  len(points),
	})
}

// GetYearOverYear handles GET /api/analytics/yoy. A selection narrowed to a
// single year cannot produce a growth figure; that case answers 200 with
// status "insufficient_years" so dashboards can branch without treating it
// as a failure.
func (h *AnalyticsHandler) GetYearOverYear(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	sel, apiErr := parseSelection(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	measure := queryDefault(r, "measure", string(analytics.MeasureCount))

	h.logger.InfoContext(r.Context(), "computing year-over-year",
		slog.String("request_id", reqID),
		slog.String("measure", measure),
		slog.String("selection", sel.Canonical()),
	)

	summary, err := h.service.YearOverYear(r.Context(), sel, measure)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientYears) {
			render.JSON(w, r, map[string]interface{}{
				"status":  "insufficient_years",
				"message": "year-over-year comparison needs at least two distinct years",
			})
			return
		}
		h.handleQueryError(w, r, "yoy", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// GetProductTrends handles GET /api/analytics/trends/products
func (h *AnalyticsHandler) GetProductTrends(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	sel, apiErr := parseSelection(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	limit, ok := h.params.ValidateInt(w, r, "limit", 1, maxLimit, 0)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "computing product trends",
		slog.String("request_id", reqID),
		slog.Int("limit", limit),
	)

	trends, err := h.service.ProductTrends(r.Context(), sel, limit)
	if err != nil {
		h.handleQueryError(w, r, "product_trends", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   trends,
		"count":  len(trends),
	})
}

// GetResponseMix handles GET /api/analytics/responses/mix
func (h *AnalyticsHandler) GetResponseMix(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	sel, apiErr := parseSelection(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	h.logger.InfoContext(r.Context(), "computing response mix",
		slog.String("request_id", reqID),
		slog.String("selection", sel.Canonical()),
	)

	shares, err := h.service.ResponseMix(r.Context(), sel)
	if err != nil {
		h.handleQueryError(w, r, "response_mix", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   shares,
		"count":  len(shares),
	})
}

// GetCompanyPerformance handles GET /api/analytics/companies/performance
func (h *AnalyticsHandler) GetCompanyPerformance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	sel, apiErr := parseSelection(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	limit, ok := h.params.ValidateInt(w, r, "limit", 1, maxLimit, 0)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "computing company performance",
		slog.String("request_id", reqID),
		slog.Int("limit", limit),
	)

	companies, err := h.service.CompanyPerformance(r.Context(), sel, limit)
	if err != nil {
		h.handleQueryError(w, r, "company_performance", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   companies,
		"count":  len(companies),
	})
}

// GetLatency handles GET /api/analytics/latency
func (h *AnalyticsHandler) GetLatency(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	sel, apiErr := parseSelection(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	dimension := queryDefault(r, "dimension", string(analytics.DimensionProduct))
	limit, ok := h.params.ValidateInt(w, r, "limit", 1, maxLimit, 0)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "computing latency stats",
		slog.String("request_id", reqID),
		slog.String("dimension", dimension),
		slog.Int("limit", limit),
	)

	stats, err := h.service.LatencyStats(r.Context(), sel, dimension, limit)
	if err != nil {
		h.handleQueryError(w, r, "latency", err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
		"count":  len(stats),
	})
}

// handleQueryError maps service errors to API errors. Validation sentinels
// become 422s with a code the frontend can branch on; an absent dataset is
// 503 so load balancers treat the instance as temporarily unhealthy.
func (h *AnalyticsHandler) handleQueryError(w http.ResponseWriter, r *http.Request, op string, err error) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "analytics query failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
	)

	if errors.Is(err, services.ErrDatasetNotLoaded) {
		h.errorHandler.HandleError(w, r, apierrors.DatasetNotLoadedError(err))
		return
	}

	var code string
	switch {
	case errors.Is(err, services.ErrInvalidDimension):
		code = "INVALID_DIMENSION"
	case errors.Is(err, services.ErrInvalidMeasure):
		code = "INVALID_MEASURE"
	case errors.Is(err, services.ErrInvalidGranularity):
		code = "INVALID_GRANULARITY"
	case errors.Is(err, services.ErrUnsupportedMeasure):
		code = "UNSUPPORTED_MEASURE"
	default:
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.errorHandler.HandleError(w, r, apierrors.New(http.StatusUnprocessableEntity, code, err.Error()))
}
