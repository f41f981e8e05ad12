package analytics

import (
	"fmt"
	"sort"

	"cclens/internal/complaints"
)

// groupAccumulator collects per-group tallies during a single pass.
type groupAccumulator struct {
	count     int
	affected  int
	latencies []float64
}

// AggregateByKey groups records by dim and computes measure per group,
// returning rows ranked by the measure. Ranking ties break by descending
// raw count, then by lexicographic key order, so output is deterministic.
// Rows with a missing group key are excluded from the grouping and from
// TotalRecords. Zero valid groups yield an empty table, never an error.
func AggregateByKey(records []complaints.ComplaintRecord, dim Dimension, measure Measure, th Thresholds) (RankedTable, error) {
	if !dim.IsValid() {
		return RankedTable{}, fmt.Errorf("%w: %q", ErrInvalidDimension, dim)
	}
	if !measure.IsValid() {
		return RankedTable{}, fmt.Errorf("%w: %q", ErrInvalidMeasure, measure)
	}

	groups := groupRecords(records, dim, measure)

	table := RankedTable{
		Dimension: dim,
		Measure:   measure,
		Rows:      make([]GroupStat, 0, len(groups)),
	}

	for key, acc := range groups {
		table.TotalRecords += acc.count
		row := GroupStat{Key: key, Count: acc.count}

		switch {
		case measure == MeasureCount:
			// Pct becomes the share of the graded total below.
		case measure.IsRate():
			row.Affected = acc.affected
			row.Pct = percentage(acc.affected, acc.count)
			if measure == MeasureDisputeRate {
				row.Risk = th.RiskLabel(row.Pct)
			}
		case measure == MeasureLatency:
			stats := summarizeLatency(acc.latencies)
			stats.Key = key
			row.Latency = &stats
		}

		table.Rows = append(table.Rows, row)
	}

	if measure == MeasureCount && table.TotalRecords > 0 {
		for i := range table.Rows {
			table.Rows[i].Pct = percentage(table.Rows[i].Count, table.TotalRecords)
		}
	}

	sortRows(table.Rows, measure)
	return table, nil
}

// TopCategories returns the n most frequent keys of dim, ranked by raw
// record count with the standard tie-break. Every cross-tab against dim
// must use this ranking on the same filtered set so the selection and any
// joined table stay consistent.
func TopCategories(records []complaints.ComplaintRecord, dim Dimension, n int) ([]string, error) {
	table, err := AggregateByKey(records, dim, MeasureCount, Thresholds{})
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	if n > len(table.Rows) {
		n = len(table.Rows)
	}
	keys := make([]string, 0, n)
	for _, row := range table.Rows[:n] {
		keys = append(keys, row.Key)
	}
	return keys, nil
}

// TopN truncates a ranked table to its first n rows.
func TopN(table RankedTable, n int) RankedTable {
	if n < 0 {
		n = 0
	}
	if n > len(table.Rows) {
		n = len(table.Rows)
	}
	out := table
	out.Rows = table.Rows[:n]
	return out
}

// groupRecords performs the single grouping pass shared by the rollups.
func groupRecords(records []complaints.ComplaintRecord, dim Dimension, measure Measure) map[string]*groupAccumulator {
	groups := make(map[string]*groupAccumulator)
	for _, rec := range records {
		key, ok := dim.value(rec)
		if !ok {
			continue
		}
		acc := groups[key]
		if acc == nil {
			acc = &groupAccumulator{}
			groups[key] = acc
		}
		acc.count++
		if measure.IsRate() && measure.flagHit(rec) {
			acc.affected++
		}
		if measure == MeasureLatency && rec.LatencyKnown {
			acc.latencies = append(acc.latencies, float64(rec.LatencyDays))
		}
	}
	return groups
}

// rankValue is the primary sort key for a row under the given measure.
func rankValue(row GroupStat, measure Measure) float64 {
	switch {
	case measure.IsRate():
		return row.Pct
	case measure == MeasureLatency:
		if row.Latency != nil {
			return row.Latency.Mean
		}
		return 0
	default:
		return float64(row.Count)
	}
}

// sortRows orders rows by measure descending, then raw count descending,
// then key ascending.
func sortRows(rows []GroupStat, measure Measure) {
	sort.Slice(rows, func(i, j int) bool {
		vi, vj := rankValue(rows[i], measure), rankValue(rows[j], measure)
		if vi != vj {
			return vi > vj
		}
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Key < rows[j].Key
	})
}

// percentage returns num/den*100, with a zero denominator reported as 0
// rather than a division fault.
func percentage(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}
