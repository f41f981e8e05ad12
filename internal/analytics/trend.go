package analytics

import (
	"sort"

	"cclens/internal/complaints"
)

// ProductTrends derives a year-over-year volume signal for each of the
// topN most complained-about products. Products observed in fewer than two
// distinct years are skipped; one data point carries no trend.
func ProductTrends(records []complaints.ComplaintRecord, topN int, th Thresholds) ([]ProductTrend, error) {
	products, err := TopCategories(records, DimensionProduct, topN)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string][]complaints.ComplaintRecord, len(products))
	selected := make(map[string]bool, len(products))
	for _, p := range products {
		selected[p] = true
	}
	for _, rec := range records {
		if selected[rec.Product] {
			byProduct[rec.Product] = append(byProduct[rec.Product], rec)
		}
	}

	trends := make([]ProductTrend, 0, len(products))
	for _, product := range products {
		years, err := BuildTimeSeries(byProduct[product], GranularityYear, MeasureCount)
		if err != nil {
			return nil, err
		}
		if len(years) < 2 {
			continue
		}
		first, last := years[0], years[len(years)-1]
		trend := ProductTrend{
			Product:    product,
			FirstYear:  periodYear(first.Period),
			LastYear:   periodYear(last.Period),
			FirstCount: first.Count,
			LastCount:  last.Count,
			GrowthPct:  GrowthPct(float64(first.Count), float64(last.Count)),
		}
		trend.Trend = th.TrendSignal(trend.GrowthPct)
		trends = append(trends, trend)
	}
	return trends, nil
}

// responseOrder is the canonical display order for company responses,
// best consumer outcome first. Unknown responses sort after the known set.
var responseOrder = map[string]int{
	"Closed with monetary relief":     1,
	"Closed with non-monetary relief": 2,
	"Closed with explanation":         3,
	"Closed without relief":           4,
	"In progress":                     5,
	"Untimely response":               6,
}

const responseOrderUnknown = 7

// ResponseMix returns the distribution of company responses with the
// canonical ordering attached, so every consumer renders the slices in the
// same sequence. Records with a missing response are excluded.
func ResponseMix(records []complaints.ComplaintRecord) []ResponseShare {
	table, _ := AggregateByKey(records, DimensionCompanyResponse, MeasureCount, Thresholds{})

	mix := make([]ResponseShare, 0, len(table.Rows))
	for _, row := range table.Rows {
		order, known := responseOrder[row.Key]
		if !known {
			order = responseOrderUnknown
		}
		mix = append(mix, ResponseShare{
			Response: row.Key,
			Order:    order,
			Count:    row.Count,
			Pct:      row.Pct,
		})
	}

	// Canonical order first, then the count ranking within a tie.
	sort.Slice(mix, func(i, j int) bool {
		if mix[i].Order != mix[j].Order {
			return mix[i].Order < mix[j].Order
		}
		if mix[i].Count != mix[j].Count {
			return mix[i].Count > mix[j].Count
		}
		return mix[i].Response < mix[j].Response
	})
	return mix
}
