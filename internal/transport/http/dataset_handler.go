package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "cclens/internal/errors"
	"cclens/internal/services"
)

// FilterOptionsProvider is the slice of the analytics service the dataset
// routes need for populating filter controls.
type FilterOptionsProvider interface {
	FilterOptions(ctx context.Context) (services.FilterOptions, error)
}

// DatasetHandler handles dataset lifecycle requests with RFC 7807 compliance
type DatasetHandler struct {
	service      DatasetServiceInterface
	filters      FilterOptionsProvider
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler with RFC 7807 error handling
func NewDatasetHandler(service DatasetServiceInterface, filters FilterOptionsProvider, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		filters:      filters,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes with proper Chi patterns
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/status", h.GetStatus)
	r.Get("/filters", h.GetFilters)
	r.Post("/reload", h.TriggerReload)

	return r
}

// GetStatus handles GET /api/dataset/status. It answers even before the
// first load: an empty status is valid, not an error.
func (h *DatasetHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Status(r.Context()),
	})
}

// GetFilters handles GET /api/dataset/filters
func (h *DatasetHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	opts, err := h.filters.FilterOptions(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get filter options",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		if errors.Is(err, services.ErrDatasetNotLoaded) {
			h.errorHandler.HandleError(w, r, apierrors.DatasetNotLoadedError(err))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   opts,
	})
}

// TriggerReload handles POST /api/dataset/reload. The reload runs inline on
// the request; the response carries the fresh dataset status. Concurrent
// requests are rejected with 409 rather than queued.
func (h *DatasetHandler) TriggerReload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "manual dataset reload requested",
		slog.String("request_id", reqID),
		slog.String("remote_addr", r.RemoteAddr),
	)

	if _, err := h.service.Reload(r.Context(), services.TriggerManual); err != nil {
		h.logger.ErrorContext(r.Context(), "dataset reload failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		if errors.Is(err, services.ErrReloadInProgress) {
			h.errorHandler.HandleError(w, r, apierrors.ErrReloadInProgress)
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Status(r.Context()),
	})
}
