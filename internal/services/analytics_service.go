package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"cclens/internal/analytics"
	"cclens/internal/complaints"
	"cclens/internal/config"
	"cclens/internal/infrastructure"
)

// DatasetProvider yields the dataset analytics queries run against.
// *DatasetService implements it.
type DatasetProvider interface {
	Current() *complaints.Dataset
}

// AnalyticsService is the request surface over the pure analytics
// functions. Every query resolves the current dataset, applies the filter
// selection and delegates to the pipeline; results are cached because
// identical inputs always produce identical outputs.
//
// Cached values are shared between callers and must be treated as
// read-only.
type AnalyticsService struct {
	data        DatasetProvider
	thresholds  analytics.Thresholds
	defaultTopN int
	maxTopN     int
	logger      *slog.Logger

	mu      sync.Mutex
	metrics *infrastructure.BusinessMetrics

	cache *resultCache
	group singleflight.Group
}

// NewAnalyticsService creates the analytics service with the configured
// thresholds and cache policy.
func NewAnalyticsService(data DatasetProvider, cfg config.AnalyticsConfig, cacheCfg config.CacheConfig, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{
		data:        data,
		thresholds:  cfg.Thresholds(),
		defaultTopN: cfg.DefaultTopN,
		maxTopN:     cfg.MaxTopN,
		logger:      logger.With(slog.String("component", "analytics_service")),
		cache:       newResultCache(cacheCfg),
	}
}

// SetMetrics attaches the business metrics recorder.
func (s *AnalyticsService) SetMetrics(m *infrastructure.BusinessMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// InvalidateCache drops every cached result. Wired to the dataset swap
// hook; stale entries would otherwise survive until their keys rotate out.
func (s *AnalyticsService) InvalidateCache() {
	s.cache.purge()
	s.logger.Debug("analytics cache invalidated")
}

// CacheStats reports cache occupancy for the health endpoint.
func (s *AnalyticsService) CacheStats() map[string]interface{} {
	return map[string]interface{}{
		"enabled": s.cache.enabled,
		"entries": s.cache.size(),
		"max":     s.cache.max,
	}
}

// Overview returns the KPI card block for the filtered record set.
func (s *AnalyticsService) Overview(ctx context.Context, sel complaints.FilterSelection) (analytics.Overview, error) {
	return runCached(ctx, s, "overview", "", sel,
		func(records []complaints.ComplaintRecord, th analytics.Thresholds) (analytics.Overview, error) {
			return analytics.BuildOverview(records, th), nil
		})
}

// Ranking groups the filtered records by dimension and ranks them by
// measure, truncated to limit rows.
func (s *AnalyticsService) Ranking(ctx context.Context, sel complaints.FilterSelection, dimension, measure string, limit int) (analytics.RankedTable, error) {
	dim, err := analytics.ParseDimension(dimension)
	if err != nil {
		return analytics.RankedTable{}, err
	}
	m, err := analytics.ParseMeasure(measure)
	if err != nil {
		return analytics.RankedTable{}, err
	}
	limit = s.clampTopN(limit)

	params := fmt.Sprintf("dim=%s;measure=%s;limit=%d", dim, m, limit)
	return runCached(ctx, s, "ranking", params, sel,
		func(records []complaints.ComplaintRecord, th analytics.Thresholds) (analytics.RankedTable, error) {
			table, err := analytics.AggregateByKey(records, dim, m, th)
			if err != nil {
				return analytics.RankedTable{}, err
			}
			return analytics.TopN(table, limit), nil
		})
}

// CrossTab builds a bounded two-dimensional tabulation with margins.
func (s *AnalyticsService) CrossTab(ctx context.Context, sel complaints.FilterSelection, rows, cols, measure string, topRows, topCols int) (analytics.CrossTab, error) {
	rowDim, err := analytics.ParseDimension(rows)
	if err != nil {
		return analytics.CrossTab{}, err
	}
	colDim, err := analytics.ParseDimension(cols)
	if err != nil {
		return analytics.CrossTab{}, err
	}
	m, err := analytics.ParseMeasure(measure)
	if err != nil {
		return analytics.CrossTab{}, err
	}
	topRows = s.clampTopN(topRows)
	topCols = s.clampTopN(topCols)

	params := fmt.Sprintf("rows=%s;cols=%s;measure=%s;top_rows=%d;top_cols=%d", rowDim, colDim, m, topRows, topCols)
	return runCached(ctx, s, "crosstab", params, sel,
		func(records []complaints.ComplaintRecord, th analytics.Thresholds) (analytics.CrossTab, error) {
			return analytics.CrossTabulate(records, rowDim, colDim, m, topRows, topCols, th)
		})
}

// TimeSeries buckets the filtered records chronologically.
func (s *AnalyticsService) TimeSeries(ctx context.Context, sel complaints.FilterSelection, granularity, measure string) ([]analytics.SeriesPoint, error) {
	g, err := analytics.ParseGranularity(granularity)
	if err != nil {
		return nil, err
	}
	m, err := analytics.ParseMeasure(measure)
	if err != nil {
		return nil, err
	}

	params := fmt.Sprintf("granularity=%s;measure=%s", g, m)
	return runCached(ctx, s, "timeseries", params, sel,
		func(records []complaints.ComplaintRecord, _ analytics.Thresholds) ([]analytics.SeriesPoint, error) {
			return analytics.BuildTimeSeries(records, g, m)
		})
}

// YearOverYear compares the earliest and latest years in the filtered set.
// ErrInsufficientYears is returned when fewer than two distinct years
// remain; callers branch on it rather than treating it as a failure.
func (s *AnalyticsService) YearOverYear(ctx context.Context, sel complaints.FilterSelection, measure string) (analytics.YoYSummary, error) {
	m, err := analytics.ParseMeasure(measure)
	if err != nil {
		return analytics.YoYSummary{}, err
	}

	params := fmt.Sprintf("measure=%s", m)
	return runCached(ctx, s, "yoy", params, sel,
		func(records []complaints.ComplaintRecord, th analytics.Thresholds) (analytics.YoYSummary, error) {
			return analytics.YearOverYear(records, m, th)
		})
}

// ProductTrends computes the year-over-year growth signal for the top
// products by volume.
func (s *AnalyticsService) ProductTrends(ctx context.Context, sel complaints.FilterSelection, topN int) ([]analytics.ProductTrend, error) {
	topN = s.clampTopN(topN)

	params := fmt.Sprintf("top=%d", topN)
	return runCached(ctx, s, "product_trends", params, sel,
		func(records []complaints.ComplaintRecord, th analytics.Thresholds) ([]analytics.ProductTrend, error) {
			return analytics.ProductTrends(records, topN, th)
		})
}

// ResponseMix returns the company-response composition of the filtered set.
func (s *AnalyticsService) ResponseMix(ctx context.Context, sel complaints.FilterSelection) ([]analytics.ResponseShare, error) {
	return runCached(ctx, s, "response_mix", "", sel,
		func(records []complaints.ComplaintRecord, _ analytics.Thresholds) ([]analytics.ResponseShare, error) {
			return analytics.ResponseMix(records), nil
		})
}

// CompanyPerformance returns the per-company service quality table.
func (s *AnalyticsService) CompanyPerformance(ctx context.Context, sel complaints.FilterSelection, topN int) ([]analytics.CompanyPerformance, error) {
	topN = s.clampTopN(topN)

	params := fmt.Sprintf("top=%d", topN)
	return runCached(ctx, s, "company_performance", params, sel,
		func(records []complaints.ComplaintRecord, th analytics.Thresholds) ([]analytics.CompanyPerformance, error) {
			return analytics.BuildCompanyPerformance(records, topN, th)
		})
}

// LatencyStats summarizes response latency per category of the dimension.
func (s *AnalyticsService) LatencyStats(ctx context.Context, sel complaints.FilterSelection, dimension string, topN int) ([]analytics.LatencyStats, error) {
	if dimension == "" {
		dimension = analytics.DimensionCompany.String()
	}
	dim, err := analytics.ParseDimension(dimension)
	if err != nil {
		return nil, err
	}
	topN = s.clampTopN(topN)

	params := fmt.Sprintf("dim=%s;top=%d", dim, topN)
	return runCached(ctx, s, "latency", params, sel,
		func(records []complaints.ComplaintRecord, th analytics.Thresholds) ([]analytics.LatencyStats, error) {
			return analytics.LatencyByCategory(records, dim, topN, th)
		})
}

// FilterOptions describes the filterable values of the resident dataset.
type FilterOptions struct {
	Years    []int    `json:"years"`
	Products []string `json:"products"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Records  int      `json:"records"`
}

// FilterOptions returns the distinct years and products of the whole
// dataset, for populating filter controls.
func (s *AnalyticsService) FilterOptions(ctx context.Context) (FilterOptions, error) {
	start := time.Now()

	ds := s.data.Current()
	if ds == nil {
		return FilterOptions{}, ErrDatasetNotLoaded
	}

	key := cacheKey("filter_options", ds, complaints.FilterSelection{}, "")
	if v, ok := s.cache.get(key); ok {
		infrastructure.RecordQueryMetrics(ctx, s.metricsRef(), "filter_options", time.Since(start), true, nil)
		return v.(FilterOptions), nil
	}

	opts := FilterOptions{
		Years:    ds.Years(),
		Products: ds.Products(),
		Records:  ds.Len(),
	}
	if from, to, ok := ds.DateRange(); ok {
		opts.From = from.Format(dateLayout)
		opts.To = to.Format(dateLayout)
	}

	s.cache.put(key, opts)
	infrastructure.RecordQueryMetrics(ctx, s.metricsRef(), "filter_options", time.Since(start), false, nil)
	return opts, nil
}

// clampTopN applies the configured default and ceiling to a row limit.
func (s *AnalyticsService) clampTopN(n int) int {
	if n <= 0 {
		return s.defaultTopN
	}
	if n > s.maxTopN {
		return s.maxTopN
	}
	return n
}

func (s *AnalyticsService) metricsRef() *infrastructure.BusinessMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// runCached resolves one analytics call through the cache. Concurrent
// identical requests share a single computation via singleflight; only
// successful results are stored.
func runCached[T any](ctx context.Context, s *AnalyticsService, op, params string, sel complaints.FilterSelection, compute func([]complaints.ComplaintRecord, analytics.Thresholds) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	ds := s.data.Current()
	if ds == nil {
		return zero, ErrDatasetNotLoaded
	}

	key := cacheKey(op, ds, sel, params)
	if v, ok := s.cache.get(key); ok {
		infrastructure.RecordQueryMetrics(ctx, s.metricsRef(), op, time.Since(start), true, nil)
		return v.(T), nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		records := analytics.ApplyFilters(ds.Records, sel)
		out, err := compute(records, s.thresholds)
		if err != nil {
			return nil, err
		}
		s.cache.put(key, out)
		return out, nil
	})

	infrastructure.RecordQueryMetrics(ctx, s.metricsRef(), op, time.Since(start), false, err)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// cacheKey derives the cache key from everything the result depends on:
// the dataset fingerprint, the canonical filter selection, the operation
// and its parameters. Logically equal requests against identical data hash
// to the same key.
func cacheKey(op string, ds *complaints.Dataset, sel complaints.FilterSelection, params string) string {
	h, _ := blake2b.New256(nil)
	io.WriteString(h, ds.Fingerprint)
	io.WriteString(h, "\x00")
	io.WriteString(h, sel.Canonical())
	io.WriteString(h, "\x00")
	io.WriteString(h, op)
	io.WriteString(h, "\x00")
	io.WriteString(h, params)
	return hex.EncodeToString(h.Sum(nil))
}

// resultCache is a bounded map cache. When full it resets wholesale instead
// of tracking recency: every entry is reproducible from the dataset, so
// dropping all of them only costs recomputation.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]interface{}
	max     int
	enabled bool
}

func newResultCache(cfg config.CacheConfig) *resultCache {
	return &resultCache{
		entries: make(map[string]interface{}),
		max:     cfg.MaxEntries,
		enabled: cfg.Enabled,
	}
}

func (c *resultCache) get(key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *resultCache) put(key string, v interface{}) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.max {
		c.entries = make(map[string]interface{})
	}
	c.entries[key] = v
}

func (c *resultCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]interface{})
}

func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
