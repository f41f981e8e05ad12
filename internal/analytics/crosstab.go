package analytics

import (
	"fmt"

	"cclens/internal/complaints"
)

// CrossTabulate builds a bounded two-dimensional tabulation: the topRows
// most frequent rowDim values against the topCols most frequent colDim
// values, both ranked on the same filtered set that fills the cells.
// Combinations outside the top selections are dropped, not bucketed into
// an "other" row. Margins are recomputed from the underlying counts;
// averaging the displayed cell percentages would weight unequal groups
// equally and is wrong.
func CrossTabulate(records []complaints.ComplaintRecord, rowDim, colDim Dimension, measure Measure, topRows, topCols int, th Thresholds) (CrossTab, error) {
	if !rowDim.IsValid() {
		return CrossTab{}, fmt.Errorf("%w: %q", ErrInvalidDimension, rowDim)
	}
	if !colDim.IsValid() {
		return CrossTab{}, fmt.Errorf("%w: %q", ErrInvalidDimension, colDim)
	}
	if rowDim == colDim {
		return CrossTab{}, fmt.Errorf("%w: row and column dimensions must differ", ErrInvalidDimension)
	}
	if measure == MeasureLatency {
		return CrossTab{}, fmt.Errorf("%w: latency cannot be cross-tabulated", ErrUnsupportedMeasure)
	}
	if !measure.IsValid() {
		return CrossTab{}, fmt.Errorf("%w: %q", ErrInvalidMeasure, measure)
	}

	rowKeys, err := TopCategories(records, rowDim, topRows)
	if err != nil {
		return CrossTab{}, err
	}
	colKeys, err := TopCategories(records, colDim, topCols)
	if err != nil {
		return CrossTab{}, err
	}

	rowIdx := make(map[string]int, len(rowKeys))
	for i, k := range rowKeys {
		rowIdx[k] = i
	}
	colIdx := make(map[string]int, len(colKeys))
	for i, k := range colKeys {
		colIdx[k] = i
	}

	ct := CrossTab{
		RowDim:     rowDim,
		ColDim:     colDim,
		Measure:    measure,
		RowKeys:    rowKeys,
		ColKeys:    colKeys,
		Cells:      make([][]Cell, len(rowKeys)),
		RowMargins: make([]Cell, len(rowKeys)),
		ColMargins: make([]Cell, len(colKeys)),
	}
	for i := range ct.Cells {
		ct.Cells[i] = make([]Cell, len(colKeys))
	}

	for _, rec := range records {
		rKey, ok := rowDim.value(rec)
		if !ok {
			continue
		}
		cKey, ok := colDim.value(rec)
		if !ok {
			continue
		}
		r, inRows := rowIdx[rKey]
		c, inCols := colIdx[cKey]
		if !inRows || !inCols {
			continue
		}

		ct.Cells[r][c].Count++
		ct.RowMargins[r].Count++
		ct.ColMargins[c].Count++
		ct.Grand.Count++
		if measure.IsRate() && measure.flagHit(rec) {
			ct.Cells[r][c].Affected++
			ct.RowMargins[r].Affected++
			ct.ColMargins[c].Affected++
			ct.Grand.Affected++
		}
	}

	finishCell := func(cell *Cell) {
		if measure.IsRate() {
			cell.HasData = cell.Count > 0
			cell.Pct = percentage(cell.Affected, cell.Count)
		} else {
			// A zero count is real data for count measures.
			cell.HasData = true
		}
	}

	for r := range ct.Cells {
		for c := range ct.Cells[r] {
			finishCell(&ct.Cells[r][c])
		}
		finishCell(&ct.RowMargins[r])
	}
	for c := range ct.ColMargins {
		finishCell(&ct.ColMargins[c])
	}
	finishCell(&ct.Grand)

	return ct, nil
}
