package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cclens/internal/analytics"
	"cclens/internal/complaints"
	apierrors "cclens/internal/errors"
	"cclens/internal/exporter"
	"cclens/internal/infrastructure"
	customMiddleware "cclens/internal/middleware"
	"cclens/internal/services"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler handles report download requests. Workbooks are assembled
// in memory from the analytics service and streamed straight to the client;
// nothing is written to disk on this path.
type ExportHandler struct {
	analytics    AnalyticsServiceInterface
	dataset      DatasetServiceInterface
	workbooks    *exporter.WorkbookWriter
	metrics      *infrastructure.BusinessMetrics
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	params       *customMiddleware.QueryParamValidator
}

// NewExportHandler creates a new export handler with RFC 7807 error handling.
// metrics may be nil; export counters are simply skipped then.
func NewExportHandler(analyticsSvc AnalyticsServiceInterface, dataset DatasetServiceInterface, workbooks *exporter.WorkbookWriter, metrics *infrastructure.BusinessMetrics, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		analytics:    analyticsSvc,
		dataset:      dataset,
		workbooks:    workbooks,
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
		params:       customMiddleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the export routes with proper Chi patterns
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/workbook", h.DownloadWorkbook)
	r.Get("/rankings.csv", h.DownloadRankingsCSV)

	return r
}

// DownloadWorkbook handles GET /api/exports/workbook. It runs every summary
// table for the requested selection and streams one XLSX file.
func (h *ExportHandler) DownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	start := time.Now()

	sel, apiErr := parseSelection(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	h.logger.InfoContext(r.Context(), "building workbook export",
		slog.String("request_id", reqID),
		slog.String("selection", sel.Canonical()),
	)

	data, err := h.collectWorkbookData(r.Context(), sel)
	if err != nil {
		infrastructure.RecordExportMetrics(r.Context(), h.metrics, "xlsx", time.Since(start), err)
		h.handleExportError(w, r, err)
		return
	}

	wb, err := h.workbooks.Build(data)
	if err != nil {
		infrastructure.RecordExportMetrics(r.Context(), h.metrics, "xlsx", time.Since(start), err)
		h.handleExportError(w, r, err)
		return
	}
	defer wb.Close()

	filename := fmt.Sprintf("complaints_summary_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", contentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := wb.Write(w); err != nil {
		// The response is already underway; all we can do is record it.
		h.logger.ErrorContext(r.Context(), "workbook stream interrupted",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		infrastructure.RecordExportMetrics(r.Context(), h.metrics, "xlsx", time.Since(start), err)
		return
	}

	infrastructure.RecordExportMetrics(r.Context(), h.metrics, "xlsx", time.Since(start), nil)
	h.logger.InfoContext(r.Context(), "workbook export complete",
		slog.String("request_id", reqID),
		slog.String("filename", filename),
		slog.Duration("duration", time.Since(start)),
	)
}

// DownloadRankingsCSV handles GET /api/exports/rankings.csv. It accepts the
// same parameters as the rankings endpoint and returns the table as a
// BOM-prefixed CSV attachment.
func (h *ExportHandler) DownloadRankingsCSV(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	start := time.Now()

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

	h.logger.InfoContext(r.Context(), "building rankings export",
		slog.String("request_id", reqID),
		slog.String("dimension", dimension),
		slog.String("measure", measure),
	)

	table, err := h.analytics.Ranking(r.Context(), sel, dimension, measure, limit)
	if err != nil {
		infrastructure.RecordExportMetrics(r.Context(), h.metrics, "csv", time.Since(start), err)
		h.handleExportError(w, r, err)
		return
	}

	headers, records := exporter.RankingTable(table)

	filename := fmt.Sprintf("rankings_%s_%s.csv", dimension, measure)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := exporter.WriteRows(w, headers, records); err != nil {
		h.logger.ErrorContext(r.Context(), "rankings stream interrupted",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		infrastructure.RecordExportMetrics(r.Context(), h.metrics, "csv", time.Since(start), err)
		return
	}

	infrastructure.RecordExportMetrics(r.Context(), h.metrics, "csv", time.Since(start), nil)
}

// collectWorkbookData gathers every sheet's table for one selection. The
// calls hit the analytics cache, so a workbook after dashboard use is
// mostly lookups.
func (h *ExportHandler) collectWorkbookData(ctx context.Context, sel complaints.FilterSelection) (exporter.WorkbookData, error) {
	var data exporter.WorkbookData

	overview, err := h.analytics.Overview(ctx, sel)
	if err != nil {
		return data, err
	}
	disputes, err := h.analytics.Ranking(ctx, sel, string(analytics.DimensionProduct), string(analytics.MeasureDisputeRate), 0)
	if err != nil {
		return data, err
	}
	companies, err := h.analytics.CompanyPerformance(ctx, sel, 0)
	if err != nil {
		return data, err
	}
	responses, err := h.analytics.ResponseMix(ctx, sel)
	if err != nil {
		return data, err
	}
	monthly, err := h.analytics.TimeSeries(ctx, sel, string(analytics.GranularityMonth), string(analytics.MeasureCount))
	if err != nil {
		return data, err
	}
	matrix, err := h.analytics.CrossTab(ctx, sel, string(analytics.DimensionProduct), string(analytics.DimensionYear), string(analytics.MeasureCount), 0, 0)
	if err != nil {
		return data, err
	}

	data = exporter.WorkbookData{
		Overview:    overview,
		Disputes:    disputes,
		Companies:   companies,
		Responses:   responses,
		Monthly:     monthly,
		Matrix:      matrix,
		Source:      h.dataset.Status(ctx).Source,
		GeneratedAt: time.Now(),
	}

	yoy, err := h.analytics.YearOverYear(ctx, sel, string(analytics.MeasureCount))
	switch {
	case err == nil:
		data.YoY = yoy
	case errors.Is(err, services.ErrInsufficientYears):
		// A single-year selection simply gets no YoY rows.
	default:
		return data, err
	}

	return data, nil
}

// handleExportError maps failures on the download paths. Bad query enums
// stay 422s like the JSON API; anything unexpected is reported as a failed
// export rather than a generic 500.
func (h *ExportHandler) handleExportError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "export failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
	)

	switch {
	case errors.Is(err, services.ErrDatasetNotLoaded):
		h.errorHandler.HandleError(w, r, apierrors.DatasetNotLoadedError(err))
	case errors.Is(err, services.ErrInvalidDimension),
		errors.Is(err, services.ErrInvalidMeasure),
		errors.Is(err, services.ErrInvalidGranularity),
		errors.Is(err, services.ErrUnsupportedMeasure):
		h.errorHandler.HandleError(w, r, apierrors.New(http.StatusUnprocessableEntity, "INVALID_QUERY", err.Error()))
	default:
		h.errorHandler.HandleError(w, r, apierrors.ExportError(err))
	}
}
