package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"supplypulse/internal/config"
	"supplypulse/pkg/contracts/domain"
)

// ErrUnknownTable is returned when a CSV export names a table the dashboard lacks
var ErrUnknownTable = errors.New("unknown table")

// Exporter writes dashboards in every supported format
type Exporter struct {
	paths    *config.Paths
	csv      *CSVWriter
	workbook *WorkbookWriter
	report   *HTMLReport
	logger   *slog.Logger
}

// NewExporter creates an exporter writing relative paths under the reports directory
func NewExporter(paths *config.Paths, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		paths:    paths,
		csv:      NewCSVWriter(paths, logger),
		workbook: NewWorkbookWriter(logger),
		report:   NewHTMLReport(),
		logger:   logger.With(slog.String("component", "exporter")),
	}
}

// Encode streams one format to out. For CSV, table selects a dashboard
// table by name; empty means the filtered records.
func (e *Exporter) Encode(out io.Writer, format Format, d *domain.Dashboard, records *domain.Dataset, table string) error {
	switch format {
	case FormatCSV:
		t := RecordsTable(records)
		if table != "" && table != t.Name {
			var ok bool
			if t, ok = FindTable(DashboardTables(d), table); !ok {
				return fmt.Errorf("%w: %s", ErrUnknownTable, table)
			}
		}
		return EncodeTable(out, t)
	case FormatXLSX:
		return e.workbook.Write(out, e.workbookTables(d, records))
	case FormatHTML:
		return e.report.Render(out, d)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// Export writes the requested formats into dir concurrently and returns the
// created files. base prefixes every file name.
func (e *Exporter) Export(ctx context.Context, dir, base string, d *domain.Dashboard, records *domain.Dataset, formats []Format) ([]string, error) {
	if dir == "" && e.paths != nil {
		dir = e.paths.ReportsDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	start := time.Now()
	var (
		mu      sync.Mutex
		written []string
	)
	record := func(paths ...string) {
		mu.Lock()
		written = append(written, paths...)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, format := range formats {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch format {
			case FormatCSV:
				paths, err := e.writeCSVFiles(ctx, dir, base, d, records)
				record(paths...)
				return err
			default:
				path := filepath.Join(dir, base+"."+string(format))
				if err := e.writeFile(path, format, d, records); err != nil {
					return err
				}
				record(path)
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return written, err
	}

	e.logger.InfoContext(ctx, "Report exported",
		slog.String("dir", dir),
		slog.Int("files", len(written)),
		slog.Duration("duration", time.Since(start)))
	return written, nil
}

func (e *Exporter) writeFile(path string, format Format, d *domain.Dashboard, records *domain.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := e.Encode(f, format, d, records, ""); err != nil {
		f.Close()
		return fmt.Errorf("failed to export %s: %w", format, err)
	}
	return f.Close()
}

// writeCSVFiles streams the records and writes one file per dashboard table
func (e *Exporter) writeCSVFiles(ctx context.Context, dir, base string, d *domain.Dashboard, records *domain.Dataset) ([]string, error) {
	var written []string

	rt := RecordsTable(records)
	path := filepath.Join(dir, base+"_records.csv")
	sw, err := e.csv.CreateStreamWriter(path, rt.Headers)
	if err != nil {
		return written, err
	}
	for _, row := range rt.TextRows() {
		if err := sw.WriteRecord(row); err != nil {
			sw.Close()
			return written, fmt.Errorf("failed to write records: %w", err)
		}
	}
	if err := sw.Close(); err != nil {
		return written, err
	}
	written = append(written, path)

	for _, t := range DashboardTables(d) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path := filepath.Join(dir, base+"_"+t.Name+".csv")
		if err := e.csv.WriteTable(path, t); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (e *Exporter) workbookTables(d *domain.Dashboard, records *domain.Dataset) []Table {
	tables := DashboardTables(d)
	if records != nil {
		tables = append(tables, RecordsTable(records))
	}
	return tables
}

// FileName builds the default export base name for a dashboard
func FileName(d *domain.Dashboard) string {
	return fmt.Sprintf("%s_dashboard_%s", d.Kind, d.GeneratedAt.UTC().Format("20060102_150405"))
}
