package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cclens/internal/analytics"
	"cclens/internal/complaints"
	"cclens/internal/config"
	"cclens/internal/shared/testutil"
)

// staticDataset serves a fixed dataset (or none) to the analytics service.
type staticDataset struct {
	ds *complaints.Dataset
}

func (s staticDataset) Current() *complaints.Dataset { return s.ds }

func newAnalyticsService(t *testing.T, ds *complaints.Dataset) *AnalyticsService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	cfg := config.Default()
	return NewAnalyticsService(staticDataset{ds: ds}, cfg.Analytics, cfg.Cache, logger)
}

func TestAnalyticsServiceDatasetNotLoaded(t *testing.T) {
	svc := newAnalyticsService(t, nil)
	ctx := context.Background()
	sel := complaints.FilterSelection{}

	_, err := svc.Overview(ctx, sel)
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)

	_, err = svc.Ranking(ctx, sel, "product", "count", 10)
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)

	_, err = svc.FilterOptions(ctx)
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
}

func TestAnalyticsServiceInvalidParams(t *testing.T) {
	svc := newAnalyticsService(t, testutil.LoadSampleDataset(t))
	ctx := context.Background()
	sel := complaints.FilterSelection{}

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "unknown dimension",
			call: func() error { _, err := svc.Ranking(ctx, sel, "flavor", "count", 5); return err },
			want: ErrInvalidDimension,
		},
		{
			name: "unknown measure",
			call: func() error { _, err := svc.Ranking(ctx, sel, "product", "sentiment", 5); return err },
			want: ErrInvalidMeasure,
		},
		{
			name: "unknown granularity",
			call: func() error { _, err := svc.TimeSeries(ctx, sel, "week", "count"); return err },
			want: ErrInvalidGranularity,
		},
		{
			name: "unknown crosstab row dimension",
			call: func() error { _, err := svc.CrossTab(ctx, sel, "flavor", "product", "count", 5, 5); return err },
			want: ErrInvalidDimension,
		},
		{
			name: "unknown latency dimension",
			call: func() error { _, err := svc.LatencyStats(ctx, sel, "flavor", 5); return err },
			want: ErrInvalidDimension,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.want)
		})
	}
}

func TestAnalyticsServiceOverview(t *testing.T) {
	svc := newAnalyticsService(t, testutil.LoadSampleDataset(t))

	ov, err := svc.Overview(context.Background(), complaints.FilterSelection{})
	require.NoError(t, err)

	assert.Equal(t, 8, ov.TotalComplaints)
	assert.Equal(t, 4, ov.Companies)
	assert.Equal(t, 3, ov.Products)
	assert.InDelta(t, 62.5, ov.TimelyPct, 0.001)
	assert.InDelta(t, 50.0, ov.DisputedPct, 0.001)
	assert.Equal(t, analytics.RiskCritical, ov.DisputeRisk)
}

func TestAnalyticsServiceFilteredRanking(t *testing.T) {
	svc := newAnalyticsService(t, testutil.LoadSampleDataset(t))

	table, err := svc.Ranking(context.Background(),
		complaints.FilterSelection{Products: []string{"Mortgage"}},
		"company", "count", 10)
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Acme Bank", table.Rows[0].Key)
	assert.Equal(t, 2, table.Rows[0].Count)
	assert.Equal(t, "Beta Credit", table.Rows[1].Key)
	assert.Equal(t, 1, table.Rows[1].Count)
	assert.Equal(t, 3, table.TotalRecords)
}

func TestAnalyticsServiceCaching(t *testing.T) {
	svc := newAnalyticsService(t, testutil.LoadSampleDataset(t))
	ctx := context.Background()
	sel := complaints.FilterSelection{Years: []int{2016}}

	first, err := svc.Ranking(ctx, sel, "product", "count", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.CacheStats()["entries"])

	second, err := svc.Ranking(ctx, sel, "product", "count", 10)
	require.NoError(t, err)
	assert.Equal(t, first, second, "cache hit must return the identical result")
	assert.Equal(t, 1, svc.CacheStats()["entries"], "a hit adds no entry")

	// Logically equal selections share an entry regardless of ordering.
	_, err = svc.Ranking(ctx, complaints.FilterSelection{Years: []int{2016, 2016}}, "product", "count", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.CacheStats()["entries"])

	svc.InvalidateCache()
	assert.Equal(t, 0, svc.CacheStats()["entries"])
}

func TestAnalyticsServiceCacheDisabled(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := config.Default()
	cfg.Cache.Enabled = false
	svc := NewAnalyticsService(staticDataset{ds: testutil.LoadSampleDataset(t)}, cfg.Analytics, cfg.Cache, logger)

	_, err := svc.Overview(context.Background(), complaints.FilterSelection{})
	require.NoError(t, err)
	assert.Equal(t, 0, svc.CacheStats()["entries"])
}

func TestAnalyticsServiceYearOverYear(t *testing.T) {
	svc := newAnalyticsService(t, testutil.LoadSampleDataset(t))
	ctx := context.Background()

	summary, err := svc.YearOverYear(ctx, complaints.FilterSelection{}, "count")
	require.NoError(t, err)
	assert.Equal(t, 2014, summary.FirstYear)
	assert.Equal(t, 2016, summary.LastYear)

	// A single-year selection cannot produce a trend; the sentinel lets the
	// handler answer with an explicit status instead of a fake number.
	_, err = svc.YearOverYear(ctx, complaints.FilterSelection{Years: []int{2015}}, "count")
	assert.ErrorIs(t, err, ErrInsufficientYears)
}

func TestAnalyticsServiceFilterOptions(t *testing.T) {
	svc := newAnalyticsService(t, testutil.LoadSampleDataset(t))

	opts, err := svc.FilterOptions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{2014, 2015, 2016}, opts.Years)
	assert.Equal(t, []string{"Credit card", "Debt collection", "Mortgage"}, opts.Products)
	assert.Equal(t, 8, opts.Records)
	assert.Equal(t, "2014-07-03", opts.From)
	assert.Equal(t, "2016-09-30", opts.To)

	// Second call is served from cache and must match exactly.
	again, err := svc.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, opts, again)
}

func TestAnalyticsServiceConcurrentQueries(t *testing.T) {
	svc := newAnalyticsService(t, testutil.LoadSampleDataset(t))
	ctx := context.Background()
	sel := complaints.FilterSelection{}

	var wg sync.WaitGroup
	results := make([]analytics.RankedTable, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Ranking(ctx, sel, "company", "dispute_rate", 10)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i], "concurrent identical queries must agree")
	}
	assert.Equal(t, 1, svc.CacheStats()["entries"])
}

func TestClampTopN(t *testing.T) {
	svc := newAnalyticsService(t, nil)

	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: config.DefaultTopN},
		{in: -3, want: config.DefaultTopN},
		{in: 5, want: 5},
		{in: config.MaxTopN, want: config.MaxTopN},
		{in: 500, want: config.MaxTopN},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, svc.clampTopN(tt.in))
	}
}
