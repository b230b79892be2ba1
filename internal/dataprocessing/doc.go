// Package dataprocessing turns procurement, consumption, equipment and stock
// workbooks into normalized domain.Datasets and narrows them with filters.
//
// # Ingestion
//
// Each dataset kind has a declared Schema listing its source headers and the
// Record attribute each one populates. The Parser locates the sheet and
// header row holding the table, binds columns by name (exact match first,
// then case-insensitive), and converts every data row:
//
//   - text cells are trimmed; empty ones become the schema's unknown label
//   - numeric cells accept comma or dot decimals and thousands separators
//   - date cells accept Excel serials, YYYYMMDD, ISO and French layouts
//
// A cell that cannot be parsed gets its default value and a ParseWarning.
// Rows that are entirely empty are dropped. A missing required column aborts
// ingestion with a *domain.SchemaError and no partial Dataset.
//
//	parser := dataprocessing.NewParser(dataprocessing.DefaultParserOptions(), logger)
//	ds, err := parser.ParseFile(ctx, "consommation.xlsx", domain.KindConsumption)
//
// # Caching
//
// DatasetCache keeps one Dataset per source and reloads it only when the
// file's size or modification time changes. Datasets are immutable and safe
// to share between sessions.
//
// # Filtering
//
// Apply returns the records matching a domain.Filter in their original
// order. The source Dataset is never modified.
//
//	filtered := dataprocessing.Apply(ds, domain.Filter{Organization: "ORG1"})
package dataprocessing
