package exporter

import (
	"sort"
	"strings"

	"cclens/internal/analytics"
	"cclens/internal/complaints"
	"cclens/internal/config"
)

// AggregateExporter generates the grouped summary feed consumed by BI tools
type AggregateExporter struct {
	csvWriter *CSVWriter
}

// NewAggregateExporter creates a new aggregate feed exporter
func NewAggregateExporter(paths *config.Paths) *AggregateExporter {
	return &AggregateExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// AggregateRow is one (year, product, company) group of the aggregate feed
type AggregateRow struct {
	Year           int
	Product        string
	Company        string
	Complaints     int
	TimelyPct      float64
	DisputedPct    float64
	AvgLatencyDays float64
	LatencyKnown   bool
}

// BuildAggregateRows groups records by year, product and company and computes
// the per-group volume, timeliness, dispute and latency figures. Records
// missing any of the three group keys are excluded. Rows come back sorted by
// year, then product, then company.
func (a *AggregateExporter) BuildAggregateRows(records []complaints.ComplaintRecord) []AggregateRow {
	type groupKey struct {
		year    int
		product string
		company string
	}
	type groupAcc struct {
		count      int
		timely     int
		disputed   int
		latencySum float64
		latencyN   int
	}

	groups := make(map[groupKey]*groupAcc)
	for _, rec := range records {
		if !rec.HasDate() || rec.Product == "" || rec.Company == "" {
			continue
		}
		key := groupKey{year: rec.Year, product: rec.Product, company: rec.Company}
		acc := groups[key]
		if acc == nil {
			acc = &groupAcc{}
			groups[key] = acc
		}
		acc.count++
		if rec.Timely() {
			acc.timely++
		}
		if rec.Disputed() {
			acc.disputed++
		}
		if rec.LatencyKnown {
			acc.latencySum += float64(rec.LatencyDays)
			acc.latencyN++
		}
	}

	rows := make([]AggregateRow, 0, len(groups))
	for key, acc := range groups {
		row := AggregateRow{
			Year:        key.year,
			Product:     key.product,
			Company:     key.company,
			Complaints:  acc.count,
			TimelyPct:   percentOf(acc.timely, acc.count),
			DisputedPct: percentOf(acc.disputed, acc.count),
		}
		if acc.latencyN > 0 {
			row.AvgLatencyDays = acc.latencySum / float64(acc.latencyN)
			row.LatencyKnown = true
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		if rows[i].Product != rows[j].Product {
			return rows[i].Product < rows[j].Product
		}
		return rows[i].Company < rows[j].Company
	})
	return rows
}

// ExportAggregate writes the grouped feed as a BOM-prefixed CSV file
func (a *AggregateExporter) ExportAggregate(records []complaints.ComplaintRecord, outputPath string) error {
	rows := a.BuildAggregateRows(records)

	csvRecords := make([][]string, 0, len(rows))
	for _, row := range rows {
		csvRecords = append(csvRecords, a.rowToCSVRow(row))
	}

	return a.csvWriter.WriteSimpleCSV(outputPath, a.getHeaders(), csvRecords)
}

// getHeaders returns the CSV headers for the aggregate feed
func (a *AggregateExporter) getHeaders() []string {
	return []string{
		"Year", "Product", "Company", "Complaints",
		"TimelyPct", "DisputedPct", "AvgLatencyDays",
	}
}

// rowToCSVRow converts an aggregate row to a CSV row
func (a *AggregateExporter) rowToCSVRow(row AggregateRow) []string {
	return []string{
		formatInt(row.Year),
		row.Product,
		row.Company,
		formatInt(row.Complaints),
		formatFloat(row.TimelyPct),
		formatFloat(row.DisputedPct),
		formatOptionalFloat(row.AvgLatencyDays, row.LatencyKnown),
	}
}

// RankingTable flattens a ranked aggregation into CSV headers and records.
// The column set depends on the measure: counts carry a share column, rates
// carry the numerator and percentage, latency carries the full summary
// statistics.
func RankingTable(table analytics.RankedTable) ([]string, [][]string) {
	dim := dimensionHeader(table.Dimension)

	switch {
	case table.Measure == analytics.MeasureDisputeRate:
		headers := []string{dim, "Complaints", "Disputed", "DisputedPct", "Risk"}
		records := make([][]string, 0, len(table.Rows))
		for _, row := range table.Rows {
			records = append(records, []string{
				row.Key,
				formatInt(row.Count),
				formatInt(row.Affected),
				formatFloat(row.Pct),
				row.Risk,
			})
		}
		return headers, records

	case table.Measure == analytics.MeasureTimelyRate:
		headers := []string{dim, "Complaints", "Timely", "TimelyPct"}
		records := make([][]string, 0, len(table.Rows))
		for _, row := range table.Rows {
			records = append(records, []string{
				row.Key,
				formatInt(row.Count),
				formatInt(row.Affected),
				formatFloat(row.Pct),
			})
		}
		return headers, records

	case table.Measure == analytics.MeasureLatency:
		headers := []string{dim, "Complaints", "MeanDays", "MedianDays", "MinDays", "MaxDays", "StdDays"}
		records := make([][]string, 0, len(table.Rows))
		for _, row := range table.Rows {
			rec := []string{row.Key, formatInt(row.Count), "", "", "", "", ""}
			if row.Latency != nil && row.Latency.Count > 0 {
				rec[2] = formatFloat(row.Latency.Mean)
				rec[3] = formatFloat(row.Latency.Median)
				rec[4] = formatFloat(row.Latency.Min)
				rec[5] = formatFloat(row.Latency.Max)
				rec[6] = formatFloat(row.Latency.Std)
			}
			records = append(records, rec)
		}
		return headers, records

	default:
		headers := []string{dim, "Complaints", "SharePct"}
		records := make([][]string, 0, len(table.Rows))
		for _, row := range table.Rows {
			records = append(records, []string{
				row.Key,
				formatInt(row.Count),
				formatFloat(row.Pct),
			})
		}
		return headers, records
	}
}

// dimensionHeader converts a wire dimension name into a CSV column header,
// e.g. "submitted_via" becomes "SubmittedVia".
func dimensionHeader(dim analytics.Dimension) string {
	parts := strings.Split(dim.String(), "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, "")
}

// percentOf returns num/den*100, reporting a zero denominator as 0.
func percentOf(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}
