// Package exporter provides CSV and XLSX export functionality for ComplaintLens.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing functionality with support for headers, streaming,
// and UTF-8 BOM for Excel compatibility. WriteRows serves the same tables to an
// arbitrary writer for HTTP downloads.
//
// AggregateExporter: Generates the (year, product, company) aggregate feed with
// per-group volume, timeliness, dispute and latency figures for BI tools.
//
// WorkbookWriter: Builds the XLSX summary workbook from precomputed analytics
// tables: overview KPIs, dispute rates by product, company performance, the
// response mix, the monthly series, the product/year matrix and the
// year-over-year comparison.
//
// Example usage:
//
//	// Export the aggregate feed
//	aggExporter := exporter.NewAggregateExporter(paths)
//	err := aggExporter.ExportAggregate(dataset.Records, "aggregate_20160930.csv")
//
//	// Build and save the summary workbook
//	workbook := exporter.NewWorkbookWriter(paths)
//	path, err := workbook.Save(data, "complaints_summary.xlsx")
package exporter
