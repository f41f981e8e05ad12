package http

import (
	"context"

	"cclens/internal/analytics"
	"cclens/internal/complaints"
	"cclens/internal/services"
)

// AnalyticsServiceInterface defines the interface for analytics query operations.
// Handlers depend on this rather than the concrete service so tests can
// substitute mocks.
type AnalyticsServiceInterface interface {
	// Overview returns the KPI snapshot for the filtered dataset
	Overview(ctx context.Context, sel complaints.FilterSelection) (analytics.Overview, error)

	// Ranking returns the top categories of a dimension under a measure
	Ranking(ctx context.Context, sel complaints.FilterSelection, dimension, measure string, limit int) (analytics.RankedTable, error)

	// CrossTab returns a two-dimensional table with TOTAL margins
	CrossTab(ctx context.Context, sel complaints.FilterSelection, rows, cols, measure string, topRows, topCols int) (analytics.CrossTab, error)

	// TimeSeries returns complaint volume or a rate over time
	TimeSeries(ctx context.Context, sel complaints.FilterSelection, granularity, measure string) ([]analytics.SeriesPoint, error)

	// YearOverYear returns yearly totals plus last-over-previous growth
	YearOverYear(ctx context.Context, sel complaints.FilterSelection, measure string) (analytics.YoYSummary, error)

	// ProductTrends returns growth signals for the top products
	ProductTrends(ctx context.Context, sel complaints.FilterSelection, topN int) ([]analytics.ProductTrend, error)

	// ResponseMix returns the distribution of company responses
	ResponseMix(ctx context.Context, sel complaints.FilterSelection) ([]analytics.ResponseShare, error)

	// CompanyPerformance returns per-company timeliness, disputes and latency
	CompanyPerformance(ctx context.Context, sel complaints.FilterSelection, topN int) ([]analytics.CompanyPerformance, error)

	// LatencyStats returns routing latency statistics per category
	LatencyStats(ctx context.Context, sel complaints.FilterSelection, dimension string, topN int) ([]analytics.LatencyStats, error)

	// FilterOptions returns the distinct years and products for filter controls
	FilterOptions(ctx context.Context) (services.FilterOptions, error)
}
