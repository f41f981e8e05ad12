package analytics

import (
	"fmt"
	"sort"

	"cclens/internal/complaints"
)

// periodBucket accumulates one time bucket keyed by numeric components so
// ordering never depends on string comparison.
type periodBucket struct {
	year     int
	sub      int // month or quarter; 0 for year granularity
	count    int
	affected int
}

// BuildTimeSeries rolls records up into chronologically ordered buckets.
// Records without a valid received date are excluded. Month periods are
// zero-padded ("2016-09"), a required invariant so consumers that sort the
// period strings still get chronological order.
func BuildTimeSeries(records []complaints.ComplaintRecord, granularity Granularity, measure Measure) ([]SeriesPoint, error) {
	if !granularity.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGranularity, granularity)
	}
	if measure == MeasureLatency {
		return nil, fmt.Errorf("%w: latency has no time-series form", ErrUnsupportedMeasure)
	}
	if !measure.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMeasure, measure)
	}

	type bucketKey struct{ year, sub int }
	buckets := make(map[bucketKey]*periodBucket)

	for _, rec := range records {
		if !rec.HasDate() {
			continue
		}
		key := bucketKey{year: rec.Year}
		switch granularity {
		case GranularityMonth:
			key.sub = int(rec.Month)
		case GranularityQuarter:
			key.sub = rec.Quarter
		}
		b := buckets[key]
		if b == nil {
			b = &periodBucket{year: key.year, sub: key.sub}
			buckets[key] = b
		}
		b.count++
		if measure.IsRate() && measure.flagHit(rec) {
			b.affected++
		}
	}

	ordered := make([]*periodBucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].year != ordered[j].year {
			return ordered[i].year < ordered[j].year
		}
		return ordered[i].sub < ordered[j].sub
	})

	series := make([]SeriesPoint, 0, len(ordered))
	for _, b := range ordered {
		point := SeriesPoint{
			Period: formatPeriod(granularity, b.year, b.sub),
			Count:  b.count,
		}
		if measure.IsRate() {
			point.Affected = b.affected
			point.Pct = percentage(b.affected, b.count)
		}
		series = append(series, point)
	}
	return series, nil
}

// YearOverYear compares the earliest and latest years present in records.
// Fewer than two distinct years returns ErrInsufficientYears: a trend
// cannot be read off a single point and the caller must branch. A zero
// first-year value reports growth 0 rather than an undefined rate.
func YearOverYear(records []complaints.ComplaintRecord, measure Measure, th Thresholds) (YoYSummary, error) {
	years, err := BuildTimeSeries(records, GranularityYear, measure)
	if err != nil {
		return YoYSummary{}, err
	}
	if len(years) < 2 {
		return YoYSummary{}, ErrInsufficientYears
	}

	first, last := years[0], years[len(years)-1]
	summary := YoYSummary{
		Measure:   measure,
		Years:     years,
		FirstYear: periodYear(first.Period),
		LastYear:  periodYear(last.Period),
		GrowthPct: GrowthPct(measureValue(first, measure), measureValue(last, measure)),
	}
	summary.Trend = th.TrendSignal(summary.GrowthPct)
	return summary, nil
}

// GrowthPct is (last-first)/first*100 with the zero-base rule: growth from
// a zero base is reported as 0, a documented simplification.
func GrowthPct(first, last float64) float64 {
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}

// measureValue is the scalar a series point contributes to growth math.
func measureValue(p SeriesPoint, measure Measure) float64 {
	if measure.IsRate() {
		return p.Pct
	}
	return float64(p.Count)
}

// formatPeriod renders the canonical period key for a bucket.
func formatPeriod(granularity Granularity, year, sub int) string {
	switch granularity {
	case GranularityMonth:
		return fmt.Sprintf("%04d-%02d", year, sub)
	case GranularityQuarter:
		return fmt.Sprintf("%04d-Q%d", year, sub)
	default:
		return fmt.Sprintf("%04d", year)
	}
}

// periodYear parses the year prefix of a period key.
func periodYear(period string) int {
	var year int
	fmt.Sscanf(period, "%d", &year)
	return year
}
