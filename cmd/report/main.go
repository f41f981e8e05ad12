package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cclens/internal/analytics"
	"cclens/internal/complaints"
	"cclens/internal/config"
	"cclens/internal/exporter"
)

func main() {
	inputPath := flag.String("input", "", "path to the complaints CSV (defaults to data/complaints.csv next to the executable)")
	outputDir := flag.String("out", "", "output directory for report files (defaults to data/exports)")
	yearsArg := flag.String("years", "", "comma-separated year filter, e.g. 2015,2016")
	productsArg := flag.String("products", "", "comma-separated product filter")
	topN := flag.Int("top", config.DefaultTopN, "number of categories per ranking")
	flag.Parse()

	// Initialize paths
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *inputPath == "" {
		*inputPath = paths.DatasetCSV
	}
	if *outputDir == "" {
		*outputDir = paths.ExportsDir
	}
	if *topN < 1 {
		*topN = 1
	} else if *topN > config.MaxTopN {
		*topN = config.MaxTopN
	}

	selection, err := parseSelection(*yearsArg, *productsArg)
	if err != nil {
		slog.Error("Invalid filter selection", "error", err)
		os.Exit(1)
	}

	// Check that the dataset exists before doing any work
	if _, err := os.Stat(*inputPath); os.IsNotExist(err) {
		slog.Error("Complaints CSV not found",
			"path", *inputPath,
			"hint", "pass -input or place the dataset at data/complaints.csv")
		os.Exit(1)
	}

	slog.Info("Loading complaints dataset", "path", *inputPath)
	ctx := context.Background()
	loader := complaints.NewLoader(slog.Default())
	dataset, err := loader.LoadCSV(ctx, *inputPath)
	if err != nil {
		slog.Error("Failed to load dataset", "error", err)
		os.Exit(1)
	}
	if dataset.Len() == 0 {
		slog.Error("No complaint records found in CSV", "path", *inputPath)
		os.Exit(1)
	}
	slog.Info("Loaded dataset", "records", dataset.Len(), "fingerprint", dataset.Fingerprint)

	records := analytics.ApplyFilters(dataset.Records, selection)
	if !selection.IsEmpty() {
		slog.Info("Applied filters",
			"selection", selection.Canonical(),
			"records", len(records))
	}
	if len(records) == 0 {
		slog.Error("Filter selection matches no records", "selection", selection.Canonical())
		os.Exit(1)
	}

	thresholds := config.Default().Analytics.Thresholds()

	slog.Info("Computing summary tables...")
	tables, err := buildReportTables(records, *topN, thresholds, dataset.Source)
	if err != nil {
		slog.Error("Failed to compute summary tables", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("Failed to create output directory", "error", err)
		os.Exit(1)
	}

	// Save results with timestamp
	timestamp := time.Now().Format("20060102")

	workbookPath := filepath.Join(*outputDir, fmt.Sprintf("complaints_summary_%s.xlsx", timestamp))
	slog.Info("Saving summary workbook", "path", workbookPath)
	if _, err := exporter.NewWorkbookWriter(paths).Save(tables, workbookPath); err != nil {
		slog.Error("Failed to save summary workbook", "error", err)
		os.Exit(1)
	}

	aggregatePath := filepath.Join(*outputDir, fmt.Sprintf("complaints_aggregate_%s.csv", timestamp))
	if err := exporter.NewAggregateExporter(paths).ExportAggregate(records, aggregatePath); err != nil {
		slog.Error("Failed to save aggregate feed", "error", err)
		os.Exit(1)
	}

	rankingsPath := filepath.Join(*outputDir, fmt.Sprintf("dispute_by_product_%s.csv", timestamp))
	headers, rows := exporter.RankingTable(tables.Disputes)
	csvWriter := exporter.NewCSVWriter(paths)
	if err := csvWriter.WriteCSV(rankingsPath, exporter.WriteOptions{
		Headers:   headers,
		Records:   rows,
		BOMPrefix: true,
	}); err != nil {
		slog.Error("Failed to save product ranking", "error", err)
		os.Exit(1)
	}

	slog.Info("Report generated successfully",
		"workbook", workbookPath,
		"aggregate", aggregatePath,
		"rankings", rankingsPath,
		"records", len(records))

	printDigest(tables)
}

// parseSelection turns the -years and -products flag values into a filter
// selection. Values are comma-separated; blanks are ignored.
func parseSelection(yearsArg, productsArg string) (complaints.FilterSelection, error) {
	var sel complaints.FilterSelection
	for _, part := range strings.Split(yearsArg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		year, err := strconv.Atoi(part)
		if err != nil {
			return complaints.FilterSelection{}, fmt.Errorf("invalid year %q: %w", part, err)
		}
		sel.Years = append(sel.Years, year)
	}
	for _, part := range strings.Split(productsArg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sel.Products = append(sel.Products, part)
	}
	return sel, nil
}

// buildReportTables runs the aggregation suite over the filtered records and
// packs the results for the workbook writer. The same tables feed the CSV
// exports and the console digest so every output agrees.
func buildReportTables(records []complaints.ComplaintRecord, topN int, th analytics.Thresholds, source string) (exporter.WorkbookData, error) {
	data := exporter.WorkbookData{
		Overview:    analytics.BuildOverview(records, th),
		Responses:   analytics.ResponseMix(records),
		Source:      source,
		GeneratedAt: time.Now(),
	}

	disputes, err := analytics.AggregateByKey(records, analytics.DimensionProduct, analytics.MeasureDisputeRate, th)
	if err != nil {
		return exporter.WorkbookData{}, fmt.Errorf("dispute ranking: %w", err)
	}
	data.Disputes = analytics.TopN(disputes, topN)

	data.Companies, err = analytics.BuildCompanyPerformance(records, topN, th)
	if err != nil {
		return exporter.WorkbookData{}, fmt.Errorf("company performance: %w", err)
	}

	data.Monthly, err = analytics.BuildTimeSeries(records, analytics.GranularityMonth, analytics.MeasureCount)
	if err != nil {
		return exporter.WorkbookData{}, fmt.Errorf("monthly series: %w", err)
	}

	data.Matrix, err = analytics.CrossTabulate(records, analytics.DimensionProduct, analytics.DimensionYear, analytics.MeasureCount, topN, config.MaxTopN, th)
	if err != nil {
		return exporter.WorkbookData{}, fmt.Errorf("product x year matrix: %w", err)
	}

	data.YoY, err = analytics.YearOverYear(records, analytics.MeasureCount, th)
	if err != nil {
		if !errors.Is(err, analytics.ErrInsufficientYears) {
			return exporter.WorkbookData{}, fmt.Errorf("year over year: %w", err)
		}
		// A single-year selection has no trend; the YoY sheet stays empty.
		slog.Warn("Skipping year-over-year sheet", "reason", err)
		data.YoY = analytics.YoYSummary{Measure: analytics.MeasureCount}
	}

	return data, nil
}

// printDigest prints the console summary of the generated report.
func printDigest(data exporter.WorkbookData) {
	ov := data.Overview

	fmt.Println("\n=== COMPLAINTS REPORT DIGEST ===")
	fmt.Printf("Complaints: %d | Companies: %d | Products: %d | States: %d\n",
		ov.TotalComplaints, ov.Companies, ov.Products, ov.States)
	fmt.Printf("Timely responses: %.1f%% | Disputed: %.1f%% (%s, industry avg %.1f%%)\n",
		ov.TimelyPct, ov.DisputedPct, ov.DisputeRisk, ov.IndustryAvgPct)
	fmt.Printf("Response latency: mean %.1f days, median %.1f | Fast responses: %.1f%%\n",
		ov.AvgLatencyDays, ov.MedianLatencyDays, ov.FastResponsePct)
	if ov.From != "" {
		fmt.Printf("Period: %s to %s | Peak month: %s\n", ov.From, ov.To, ov.PeakMonth)
	}

	if len(data.Disputes.Rows) > 0 {
		fmt.Println("\n=== PRODUCTS BY DISPUTE RATE ===")
		fmt.Println("Product                        | Complaints | Disputed | Rate    | Risk")
		fmt.Println("-------------------------------|------------|----------|---------|---------")
		for _, row := range data.Disputes.Rows {
			fmt.Printf("%-30s | %10d | %8d | %6.1f%% | %s\n",
				truncate(row.Key, 30), row.Count, row.Affected, row.Pct, row.Risk)
		}
	}

	if len(data.YoY.Years) >= 2 {
		fmt.Printf("\nYear over year: %d -> %d, growth %.1f%% (%s)\n",
			data.YoY.FirstYear, data.YoY.LastYear, data.YoY.GrowthPct, data.YoY.Trend)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
