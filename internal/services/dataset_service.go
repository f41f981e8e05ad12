package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cclens/internal/complaints"
	"cclens/internal/config"
	"cclens/internal/infrastructure"
)

// Reload triggers, recorded on metrics and in the reload events.
const (
	TriggerStartup = "startup"
	TriggerManual  = "manual"
)

const dateLayout = "2006-01-02"

// ReloadNotifier receives dataset lifecycle events. The websocket
// RefreshNotifier implements it; tests substitute a recorder.
type ReloadNotifier interface {
	ReloadStarted(loadID, trigger string)
	ReloadCompleted(loadID string, records int, fingerprint string, duration time.Duration)
	ReloadFailed(loadID string, err error)
}

// DatasetService owns the current complaints dataset. The dataset itself is
// immutable; a reload builds a whole new one and swaps the pointer, so
// queries running against the old dataset finish undisturbed.
type DatasetService struct {
	cfg     config.DataConfig
	loader  *complaints.Loader
	fetcher *complaints.Fetcher
	logger  *slog.Logger

	current   atomic.Pointer[complaints.Dataset]
	reloading atomic.Bool

	mu       sync.Mutex
	notifier ReloadNotifier
	metrics  *infrastructure.BusinessMetrics
	onSwap   []func(*complaints.Dataset)
}

// NewDatasetService creates the dataset service. Nothing is loaded yet;
// call Load once the wiring is complete.
func NewDatasetService(cfg config.DataConfig, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "dataset_service"))

	return &DatasetService{
		cfg:     cfg,
		loader:  complaints.NewLoader(logger),
		fetcher: complaints.NewFetcher(logger),
		logger:  logger,
	}
}

// SetNotifier attaches the reload event sink. Call during wiring, before
// requests are served.
func (s *DatasetService) SetNotifier(n ReloadNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// SetMetrics attaches the business metrics recorder.
func (s *DatasetService) SetMetrics(m *infrastructure.BusinessMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// OnSwap registers a hook invoked after a new dataset is published. The
// analytics cache registers its eviction here.
func (s *DatasetService) OnSwap(fn func(*complaints.Dataset)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSwap = append(s.onSwap, fn)
}

// Load performs the startup load: the local file when present, otherwise a
// download from the configured source URL when fetch-if-missing is on.
func (s *DatasetService) Load(ctx context.Context) error {
	_, err := s.reload(ctx, TriggerStartup, false)
	return err
}

// Reload re-acquires the dataset and swaps it in. When a source URL is
// configured the file is downloaded fresh; otherwise the local file is
// re-read. Only one reload runs at a time; a second caller gets
// ErrReloadInProgress instead of queueing.
func (s *DatasetService) Reload(ctx context.Context, trigger string) (*complaints.Dataset, error) {
	if trigger == "" {
		trigger = TriggerManual
	}
	return s.reload(ctx, trigger, true)
}

func (s *DatasetService) reload(ctx context.Context, trigger string, refetch bool) (*complaints.Dataset, error) {
	if !s.reloading.CompareAndSwap(false, true) {
		return nil, ErrReloadInProgress
	}
	defer s.reloading.Store(false)

	start := time.Now()
	loadID := uuid.New().String()

	s.logger.InfoContext(ctx, "dataset reload started",
		slog.String("load_id", loadID),
		slog.String("trigger", trigger))

	if n := s.notifierRef(); n != nil {
		n.ReloadStarted(loadID, trigger)
	}

	ds, err := s.acquire(ctx, refetch)
	if err != nil {
		infrastructure.RecordReloadMetrics(ctx, s.metricsRef(), trigger, 0, time.Since(start), err)
		s.logger.ErrorContext(ctx, "dataset reload failed",
			slog.String("load_id", loadID),
			slog.String("trigger", trigger),
			slog.String("error", err.Error()))
		if n := s.notifierRef(); n != nil {
			n.ReloadFailed(loadID, err)
		}
		return nil, err
	}

	// The announced load id is the reload's identity; stamping it on the
	// dataset lets clients correlate status responses with reload events.
	ds.LoadID = loadID

	prev := s.current.Swap(ds)
	for _, fn := range s.swapHooks() {
		fn(ds)
	}

	duration := time.Since(start)
	infrastructure.RecordReloadMetrics(ctx, s.metricsRef(), trigger, ds.Len(), duration, nil)
	if n := s.notifierRef(); n != nil {
		n.ReloadCompleted(loadID, ds.Len(), ds.Fingerprint, duration)
	}

	s.logger.InfoContext(ctx, "dataset reload complete",
		slog.String("load_id", loadID),
		slog.String("trigger", trigger),
		slog.Int("records", ds.Len()),
		slog.String("fingerprint", ds.Fingerprint),
		slog.Bool("changed", prev == nil || prev.Fingerprint != ds.Fingerprint),
		slog.Duration("duration", duration))

	return ds, nil
}

// acquire fetches (when required) and parses the dataset file.
func (s *DatasetService) acquire(ctx context.Context, refetch bool) (*complaints.Dataset, error) {
	path := s.cfg.CSVPath

	_, statErr := os.Stat(path)
	missing := os.IsNotExist(statErr)

	needFetch := refetch && s.cfg.SourceURL != ""
	if missing && !needFetch {
		if s.cfg.SourceURL == "" {
			return nil, fmt.Errorf("dataset file %s does not exist and no source url is configured", path)
		}
		if !s.cfg.FetchIfMissing {
			return nil, fmt.Errorf("dataset file %s does not exist (set data.fetch_if_missing to download it)", path)
		}
		needFetch = true
	}

	if needFetch {
		if err := s.fetcher.Fetch(ctx, s.cfg.SourceURL, path); err != nil {
			return nil, fmt.Errorf("fetch dataset: %w", err)
		}
	}

	return s.loader.LoadCSV(ctx, path)
}

// Current returns the resident dataset, or nil before the first successful
// load.
func (s *DatasetService) Current() *complaints.Dataset {
	return s.current.Load()
}

// Ready reports whether a dataset is resident. Implements the dataset guard
// middleware's state provider.
func (s *DatasetService) Ready() bool {
	return s.current.Load() != nil
}

// Reloading reports whether a reload is currently running.
func (s *DatasetService) Reloading() bool {
	return s.reloading.Load()
}

// DatasetStatus is the dataset status surface returned by the API.
type DatasetStatus struct {
	Loaded        bool   `json:"loaded"`
	Reloading     bool   `json:"reloading"`
	Source        string `json:"source,omitempty"`
	LoadID        string `json:"load_id,omitempty"`
	Fingerprint   string `json:"fingerprint,omitempty"`
	LoadedAt      string `json:"loaded_at,omitempty"`
	Records       int    `json:"records"`
	RowsSkipped   int    `json:"rows_skipped"`
	DatesUnparsed int    `json:"dates_unparsed"`
	Years         []int  `json:"years,omitempty"`
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
}

// Status describes the resident dataset. It never fails: before the first
// load it reports loaded=false rather than an error, because "nothing loaded
// yet" is a valid answer for the status endpoint.
func (s *DatasetService) Status(ctx context.Context) DatasetStatus {
	status := DatasetStatus{Reloading: s.Reloading()}

	ds := s.Current()
	if ds == nil {
		return status
	}

	status.Loaded = true
	status.Source = ds.Source
	status.LoadID = ds.LoadID
	status.Fingerprint = ds.Fingerprint
	status.LoadedAt = ds.LoadedAt.Format(time.RFC3339)
	status.Records = ds.Len()
	status.RowsSkipped = ds.RowsSkipped
	status.DatesUnparsed = ds.DatesUnparsed
	status.Years = ds.Years()

	if from, to, ok := ds.DateRange(); ok {
		status.From = from.Format(dateLayout)
		status.To = to.Format(dateLayout)
	}

	return status
}

func (s *DatasetService) notifierRef() ReloadNotifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifier
}

func (s *DatasetService) metricsRef() *infrastructure.BusinessMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

func (s *DatasetService) swapHooks() []func(*complaints.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hooks := make([]func(*complaints.Dataset), len(s.onSwap))
	copy(hooks, s.onSwap)
	return hooks
}
