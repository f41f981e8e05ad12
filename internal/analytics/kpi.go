package analytics

import (
	"sort"

	"cclens/internal/complaints"
)

// BuildOverview computes the KPI card block for the filtered set. Every
// metric degrades to zero on an empty set; the dashboard renders those as
// "N/A" rather than this function failing.
func BuildOverview(records []complaints.ComplaintRecord, th Thresholds) Overview {
	ov := Overview{
		TotalComplaints: len(records),
		IndustryAvgPct:  th.IndustryAvgPct,
	}
	if len(records) == 0 {
		ov.DisputeRisk = th.RiskLabel(0)
		return ov
	}

	companies := make(map[string]bool)
	products := make(map[string]bool)
	states := make(map[string]bool)
	monthCounts := make(map[string]int)

	var timely, disputed, fast int
	var latencies []float64
	var from, to complaints.ComplaintRecord

	for _, rec := range records {
		if rec.Company != "" {
			companies[rec.Company] = true
		}
		if rec.Product != "" {
			products[rec.Product] = true
		}
		if rec.State != "" {
			states[rec.State] = true
		}
		if rec.Timely() {
			timely++
		}
		if rec.Disputed() {
			disputed++
		}
		if rec.LatencyKnown {
			latencies = append(latencies, float64(rec.LatencyDays))
			if rec.LatencyDays >= 0 && rec.LatencyDays <= th.FastDays {
				fast++
			}
		}
		if rec.HasDate() {
			monthCounts[rec.PeriodMonth()]++
			if !from.HasDate() || rec.DateReceived.Before(from.DateReceived) {
				from = rec
			}
			if !to.HasDate() || rec.DateReceived.After(to.DateReceived) {
				to = rec
			}
		}
	}

	ov.Companies = len(companies)
	ov.Products = len(products)
	ov.States = len(states)
	ov.TimelyPct = percentage(timely, len(records))
	ov.DisputedPct = percentage(disputed, len(records))
	ov.DisputeRisk = th.RiskLabel(ov.DisputedPct)
	ov.AvgLatencyDays = mean(latencies)
	ov.MedianLatencyDays = median(latencies)
	ov.FastResponsePct = percentage(fast, len(latencies))
	ov.PeakMonth = peakKey(monthCounts)

	if from.HasDate() {
		ov.From = from.DateReceived.Format("2006-01-02")
		ov.To = to.DateReceived.Format("2006-01-02")
	}
	return ov
}

// BuildCompanyPerformance returns the performance table for the topN
// companies by complaint volume, ordered worst dispute rate first with the
// standard tie-break.
func BuildCompanyPerformance(records []complaints.ComplaintRecord, topN int, th Thresholds) ([]CompanyPerformance, error) {
	keys, err := TopCategories(records, DimensionCompany, topN)
	if err != nil {
		return nil, err
	}
	selected := make(map[string]bool, len(keys))
	for _, k := range keys {
		selected[k] = true
	}

	type companyAcc struct {
		count     int
		timely    int
		disputed  int
		latencies []float64
	}
	groups := make(map[string]*companyAcc, len(keys))
	for _, rec := range records {
		if !selected[rec.Company] {
			continue
		}
		acc := groups[rec.Company]
		if acc == nil {
			acc = &companyAcc{}
			groups[rec.Company] = acc
		}
		acc.count++
		if rec.Timely() {
			acc.timely++
		}
		if rec.Disputed() {
			acc.disputed++
		}
		if rec.LatencyKnown {
			acc.latencies = append(acc.latencies, float64(rec.LatencyDays))
		}
	}

	rows := make([]CompanyPerformance, 0, len(groups))
	for company, acc := range groups {
		row := CompanyPerformance{
			Company:         company,
			Count:           acc.count,
			TimelyPct:       percentage(acc.timely, acc.count),
			DisputedPct:     percentage(acc.disputed, acc.count),
			MeanLatencyDays: mean(acc.latencies),
		}
		row.Risk = th.RiskLabel(row.DisputedPct)
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DisputedPct != rows[j].DisputedPct {
			return rows[i].DisputedPct > rows[j].DisputedPct
		}
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Company < rows[j].Company
	})
	return rows, nil
}

// peakKey returns the key with the highest count, breaking ties on the
// lexicographically smaller key; "" for an empty map.
func peakKey(counts map[string]int) string {
	var best string
	bestCount := -1
	for key, count := range counts {
		if count > bestCount || (count == bestCount && key < best) {
			best, bestCount = key, count
		}
	}
	return best
}
