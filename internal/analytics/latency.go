package analytics

import (
	"fmt"
	"math"
	"sort"

	"cclens/internal/complaints"
)

// LatencyByCategory returns response-latency stats for the topN most
// frequent keys of dim, keeping only observations inside the configured
// day window. The dashboard's latency chart uses a 0..30 day window so a
// handful of year-long outliers do not flatten everything else.
func LatencyByCategory(records []complaints.ComplaintRecord, dim Dimension, topN int, th Thresholds) ([]LatencyStats, error) {
	if !dim.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDimension, dim)
	}

	keys, err := TopCategories(records, dim, topN)
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(keys))
	for i, k := range keys {
		rank[k] = i
	}

	values := make(map[string][]float64, len(keys))
	for _, rec := range records {
		if !rec.LatencyKnown {
			continue
		}
		if rec.LatencyDays < th.WindowMinDays || rec.LatencyDays > th.WindowMaxDays {
			continue
		}
		key, ok := dim.value(rec)
		if !ok {
			continue
		}
		if _, selected := rank[key]; !selected {
			continue
		}
		values[key] = append(values[key], float64(rec.LatencyDays))
	}

	out := make([]LatencyStats, 0, len(values))
	for key, vals := range values {
		stats := summarizeLatency(vals)
		stats.Key = key
		out = append(out, stats)
	}

	// Keep the frequency ranking of the selected categories.
	sort.Slice(out, func(i, j int) bool {
		return rank[out[i].Key] < rank[out[j].Key]
	})
	return out, nil
}

// summarizeLatency computes count/mean/median/min/max/std for one group.
// An empty group yields an all-zero summary.
func summarizeLatency(values []float64) LatencyStats {
	if len(values) == 0 {
		return LatencyStats{}
	}
	return LatencyStats{
		Count:  len(values),
		Mean:   mean(values),
		Median: median(values),
		Min:    minOf(values),
		Max:    maxOf(values),
		Std:    stddev(values),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median sorts a copy; the input stays untouched.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// stddev is the sample standard deviation; groups with fewer than two
// observations report 0.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
