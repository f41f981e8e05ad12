package analytics

import (
	"cclens/internal/complaints"
)

// ApplyFilters narrows records to the rows matching the selection. Each
// dimension with a non-empty selection keeps only rows whose value is in
// the selected set; dimensions compose with logical AND. Row order and all
// fields are preserved, and the result is always a row-subset of the input.
// An empty selection returns the input slice unchanged.
func ApplyFilters(records []complaints.ComplaintRecord, sel complaints.FilterSelection) []complaints.ComplaintRecord {
	if sel.IsEmpty() {
		return records
	}

	years := make(map[int]bool, len(sel.Years))
	for _, y := range sel.Years {
		years[y] = true
	}
	products := make(map[string]bool, len(sel.Products))
	for _, p := range sel.Products {
		products[p] = true
	}

	filtered := make([]complaints.ComplaintRecord, 0, len(records))
	for _, rec := range records {
		if len(years) > 0 && !years[rec.Year] {
			continue
		}
		if len(products) > 0 && !products[rec.Product] {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}
