package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"cclens/internal/analytics"
	"cclens/internal/config"
)

// Workbook sheet names, in display order.
const (
	SheetOverview  = "Overview"
	SheetDisputes  = "Dispute by Product"
	SheetCompanies = "Company Performance"
	SheetResponses = "Response Mix"
	SheetMonthly   = "Monthly Series"
	SheetMatrix    = "Product x Year"
	SheetYoY       = "Year over Year"
)

// WorkbookData carries the precomputed tables that make up the workbook.
// The writer lays the tables out verbatim; it never aggregates on its own,
// so the workbook always agrees with the API responses it was built from.
type WorkbookData struct {
	Overview  analytics.Overview
	Disputes  analytics.RankedTable // dispute rate by product
	Companies []analytics.CompanyPerformance
	Responses []analytics.ResponseShare
	Monthly   []analytics.SeriesPoint // monthly complaint counts
	Matrix    analytics.CrossTab      // product x year complaint counts
	YoY       analytics.YoYSummary

	Source      string
	GeneratedAt time.Time
}

// WorkbookWriter generates the XLSX summary workbook
type WorkbookWriter struct {
	paths *config.Paths
}

// NewWorkbookWriter creates a new workbook writer instance
func NewWorkbookWriter(paths *config.Paths) *WorkbookWriter {
	return &WorkbookWriter{paths: paths}
}

// Build assembles the workbook in memory. Callers either save it via Save or
// stream it to an HTTP response with File.Write.
func (w *WorkbookWriter) Build(data WorkbookData) (*excelize.File, error) {
	f := excelize.NewFile()

	sheets := []struct {
		name  string
		write func(*excelize.File, WorkbookData) error
	}{
		{SheetOverview, writeOverviewSheet},
		{SheetDisputes, writeDisputeSheet},
		{SheetCompanies, writeCompanySheet},
		{SheetResponses, writeResponseSheet},
		{SheetMonthly, writeMonthlySheet},
		{SheetMatrix, writeMatrixSheet},
		{SheetYoY, writeYoYSheet},
	}

	overviewIndex := 0
	for i, sheet := range sheets {
		index, err := f.NewSheet(sheet.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet.name, err)
		}
		if i == 0 {
			overviewIndex = index
		}
		if err := sheet.write(f, data); err != nil {
			return nil, fmt.Errorf("failed to write sheet %s: %w", sheet.name, err)
		}
	}

	// Drop the default sheet created by excelize
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(overviewIndex)

	return f, nil
}

// Save builds the workbook and writes it to the given path. Relative paths
// land in the exports directory; the resolved path is returned.
func (w *WorkbookWriter) Save(data WorkbookData, filePath string) (string, error) {
	f, err := w.Build(data)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fullPath := filePath
	if w.paths != nil && !filepath.IsAbs(filePath) {
		fullPath = w.paths.GetExportPath(filePath)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return fullPath, nil
}

// setRow writes one row of values starting at column A
func setRow(f *excelize.File, sheet string, rowIdx int, values []interface{}) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowIdx)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

// setRows writes a header row followed by record rows starting at row 1
func setRows(f *excelize.File, sheet string, headers []interface{}, rows [][]interface{}) error {
	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeOverviewSheet(f *excelize.File, data WorkbookData) error {
	ov := data.Overview

	rows := [][]interface{}{
		{"Source", data.Source},
		{"Generated At", data.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"From", ov.From},
		{"To", ov.To},
		{"Total Complaints", ov.TotalComplaints},
		{"Companies", ov.Companies},
		{"Products", ov.Products},
		{"States", ov.States},
		{"Timely Response %", ov.TimelyPct},
		{"Disputed %", ov.DisputedPct},
		{"Dispute Risk", ov.DisputeRisk},
		{"Industry Average %", ov.IndustryAvgPct},
		{"Avg Latency (days)", ov.AvgLatencyDays},
		{"Median Latency (days)", ov.MedianLatencyDays},
		{"Fast Response %", ov.FastResponsePct},
		{"Peak Month", ov.PeakMonth},
	}
	return setRows(f, SheetOverview, []interface{}{"Metric", "Value"}, rows)
}

func writeDisputeSheet(f *excelize.File, data WorkbookData) error {
	headers := []interface{}{"Product", "Complaints", "Disputed", "Disputed %", "Risk"}
	rows := make([][]interface{}, 0, len(data.Disputes.Rows))
	for _, row := range data.Disputes.Rows {
		rows = append(rows, []interface{}{row.Key, row.Count, row.Affected, row.Pct, row.Risk})
	}
	return setRows(f, SheetDisputes, headers, rows)
}

func writeCompanySheet(f *excelize.File, data WorkbookData) error {
	headers := []interface{}{"Company", "Complaints", "Timely %", "Disputed %", "Mean Latency (days)", "Risk"}
	rows := make([][]interface{}, 0, len(data.Companies))
	for _, row := range data.Companies {
		rows = append(rows, []interface{}{
			row.Company, row.Count, row.TimelyPct, row.DisputedPct, row.MeanLatencyDays, row.Risk,
		})
	}
	return setRows(f, SheetCompanies, headers, rows)
}

func writeResponseSheet(f *excelize.File, data WorkbookData) error {
	headers := []interface{}{"Company Response", "Complaints", "Share %"}
	rows := make([][]interface{}, 0, len(data.Responses))
	for _, row := range data.Responses {
		rows = append(rows, []interface{}{row.Response, row.Count, row.Pct})
	}
	return setRows(f, SheetResponses, headers, rows)
}

func writeMonthlySheet(f *excelize.File, data WorkbookData) error {
	headers := []interface{}{"Month", "Complaints"}
	rows := make([][]interface{}, 0, len(data.Monthly))
	for _, point := range data.Monthly {
		rows = append(rows, []interface{}{point.Period, point.Count})
	}
	return setRows(f, SheetMonthly, headers, rows)
}

// writeMatrixSheet lays out the product x year count matrix with a TOTAL
// column and a TOTAL row taken from the cross-tab margins, so the totals are
// sums of the underlying counts rather than sums of displayed cells.
func writeMatrixSheet(f *excelize.File, data WorkbookData) error {
	matrix := data.Matrix

	headers := make([]interface{}, 0, len(matrix.ColKeys)+2)
	headers = append(headers, "Product")
	for _, col := range matrix.ColKeys {
		headers = append(headers, col)
	}
	headers = append(headers, "TOTAL")

	rows := make([][]interface{}, 0, len(matrix.RowKeys)+1)
	for r, rowKey := range matrix.RowKeys {
		row := make([]interface{}, 0, len(headers))
		row = append(row, rowKey)
		for c := range matrix.ColKeys {
			row = append(row, matrix.Cells[r][c].Count)
		}
		row = append(row, matrix.RowMargins[r].Count)
		rows = append(rows, row)
	}

	total := make([]interface{}, 0, len(headers))
	total = append(total, "TOTAL")
	for c := range matrix.ColKeys {
		total = append(total, matrix.ColMargins[c].Count)
	}
	total = append(total, matrix.Grand.Count)
	rows = append(rows, total)

	return setRows(f, SheetMatrix, headers, rows)
}

func writeYoYSheet(f *excelize.File, data WorkbookData) error {
	headers := []interface{}{"Year", "Complaints"}
	rows := make([][]interface{}, 0, len(data.YoY.Years)+3)
	for _, point := range data.YoY.Years {
		rows = append(rows, []interface{}{point.Period, point.Count})
	}
	if len(data.YoY.Years) > 0 {
		rows = append(rows,
			[]interface{}{},
			[]interface{}{"Growth %", data.YoY.GrowthPct},
			[]interface{}{"Trend", data.YoY.Trend},
		)
	}
	return setRows(f, SheetYoY, headers, rows)
}
