// Package exporter writes computed dashboards to files and HTTP responses.
//
// Three writers share one table model (Table, built by DashboardTables and
// RecordsTable):
//
// CSVWriter: encoding/csv output with a UTF-8 BOM for Excel, including a
// streaming writer for large record sets.
//
// WorkbookWriter: an XLSX workbook with one sheet per table, numbers kept
// numeric, built with excelize.
//
// HTMLReport: a standalone HTML page assembled as Markdown and rendered
// with goldmark and its GFM table extension.
//
// Exporter ties them together and writes several formats concurrently:
//
//	exp := exporter.NewExporter(paths, logger)
//	files, err := exp.Export(ctx, "", exporter.FileName(dash), dash, filtered,
//		[]exporter.Format{exporter.FormatCSV, exporter.FormatXLSX})
package exporter
