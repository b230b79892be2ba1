package dataprocessing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"supplypulse/pkg/contracts/domain"
)

// ParserOptions configures workbook ingestion
type ParserOptions struct {
	// Sheet forces a sheet name; empty means auto-detect
	Sheet string
	// UnknownLabel overrides the schema's default for empty text cells
	UnknownLabel string
	// HeaderScanRows is how many leading rows are searched for the header
	HeaderScanRows int
	// MaxWarnings caps the parse warnings kept on the Dataset
	MaxWarnings int
}

// DefaultParserOptions returns the standard ingestion settings
func DefaultParserOptions() ParserOptions {
	return ParserOptions{
		HeaderScanRows: 10,
		MaxWarnings:    500,
	}
}

// Parser turns workbooks into normalized Datasets
type Parser struct {
	opts   ParserOptions
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger falls back to slog.Default().
func NewParser(opts ParserOptions, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HeaderScanRows <= 0 {
		opts.HeaderScanRows = 10
	}
	if opts.MaxWarnings <= 0 {
		opts.MaxWarnings = 500
	}
	return &Parser{
		opts:   opts,
		logger: logger.With(slog.String("component", "parser")),
	}
}

// ParseFile reads a workbook from disk
func (p *Parser) ParseFile(ctx context.Context, path string, kind domain.DatasetKind) (*domain.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.SourceError{Source: path, Err: err}
	}
	return p.ParseBytes(ctx, path, kind, data)
}

// ParseBytes parses workbook content. source labels the Dataset and log lines.
func (p *Parser) ParseBytes(ctx context.Context, source string, kind domain.DatasetKind, data []byte) (*domain.Dataset, error) {
	schema, err := p.schema(kind)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.SourceError{Source: source, Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	defer f.Close()

	sheet, rows, headerIdx, err := p.locateTable(f, schema)
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "Found table",
		slog.String("source", source),
		slog.String("sheet", sheet),
		slog.Int("header_row", headerIdx+1),
		slog.Int("total_rows", len(rows)))

	return p.normalize(ctx, source, Fingerprint(kind, data), schema, rows, headerIdx)
}

// ParseRows parses an in-memory table whose header lies within the first
// HeaderScanRows rows. It is used for sources other than workbooks.
func (p *Parser) ParseRows(ctx context.Context, source string, kind domain.DatasetKind, rows [][]string) (*domain.Dataset, error) {
	schema, err := p.schema(kind)
	if err != nil {
		return nil, err
	}

	headerIdx, _, missing := p.findHeader(schema, rows)
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Kind: kind, Missing: missing}
	}
	return p.normalize(ctx, source, FingerprintRows(kind, rows), schema, rows, headerIdx)
}

func (p *Parser) schema(kind domain.DatasetKind) (Schema, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return Schema{}, err
	}
	return schema.WithUnknownLabel(p.opts.UnknownLabel), nil
}

// locateTable picks the sheet holding the dataset. The forced sheet is tried
// first, then the schema's preferred sheets, then every sheet in order.
func (p *Parser) locateTable(f *excelize.File, schema Schema) (string, [][]string, int, error) {
	sheets := f.GetSheetList()
	candidates := make([]string, 0, len(sheets))
	seen := make(map[string]bool)
	add := func(name string) {
		for _, s := range sheets {
			if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(name)) && !seen[s] {
				candidates = append(candidates, s)
				seen[s] = true
			}
		}
	}
	if p.opts.Sheet != "" {
		add(p.opts.Sheet)
	}
	for _, name := range schema.PreferredSheets {
		add(name)
	}
	for _, s := range sheets {
		add(s)
	}

	var (
		bestSheet   string
		bestMissing []string
	)
	for _, sheet := range candidates {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			p.logger.Debug("Skipping unreadable sheet",
				slog.String("sheet", sheet),
				slog.String("error", err.Error()))
			continue
		}

		headerIdx, _, missing := p.findHeader(schema, rows)
		if len(missing) == 0 {
			return sheet, rows, headerIdx, nil
		}
		if bestMissing == nil || len(missing) < len(bestMissing) {
			bestSheet, bestMissing = sheet, missing
		}
	}

	if bestMissing == nil {
		bestMissing = schema.Required()
	}
	return "", nil, 0, &domain.SchemaError{Kind: schema.Kind, Sheet: bestSheet, Missing: bestMissing}
}

// findHeader returns the row among the first HeaderScanRows that binds the
// most required columns.
func (p *Parser) findHeader(schema Schema, rows [][]string) (int, []columnBinding, []string) {
	bestIdx := -1
	var bestBindings []columnBinding
	bestMissing := schema.Required()

	limit := min(p.opts.HeaderScanRows, len(rows))
	for i := 0; i < limit; i++ {
		bindings, missing := bindColumns(schema, rows[i])
		if bestIdx < 0 || len(missing) < len(bestMissing) {
			bestIdx, bestBindings, bestMissing = i, bindings, missing
		}
		if len(missing) == 0 {
			break
		}
	}
	if bestIdx < 0 {
		bestIdx = 0
	}
	return bestIdx, bestBindings, bestMissing
}

func (p *Parser) normalize(ctx context.Context, source, fingerprint string, schema Schema, rows [][]string, headerIdx int) (*domain.Dataset, error) {
	bindings, missing := bindColumns(schema, rows[headerIdx])
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Kind: schema.Kind, Missing: missing}
	}

	n := &normalizer{
		schema:      schema,
		bindings:    bindings,
		maxWarnings: p.opts.MaxWarnings,
	}

	data := rows[headerIdx+1:]
	records := make([]domain.Record, 0, len(data))
	for i, row := range data {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		// 1-based spreadsheet row number
		if rec, ok := n.record(headerIdx+i+2, row); ok {
			records = append(records, rec)
		}
	}

	for _, w := range n.warnings[:min(5, len(n.warnings))] {
		p.logger.DebugContext(ctx, "Cell replaced with default", slog.String("warning", w.String()))
	}
	p.logger.InfoContext(ctx, "Dataset normalized",
		slog.String("kind", string(schema.Kind)),
		slog.String("source", source),
		slog.Int("records", len(records)),
		slog.Int("dropped_rows", n.dropped),
		slog.Int("parse_warnings", n.totalWarnings))

	return domain.NewDataset(schema.Kind, source, fingerprint, records, n.warnings), nil
}
