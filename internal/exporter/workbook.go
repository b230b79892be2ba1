package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"
)

// WorkbookWriter renders tables into an XLSX workbook, one sheet per table
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger.With(slog.String("component", "workbook_writer"))}
}

// Write builds the workbook and streams it to out
func (w *WorkbookWriter) Write(out io.Writer, tables []Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("workbook needs at least one table")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	used := make(map[string]int)
	for i, t := range tables {
		name := sheetName(t)
		if n := used[name]; n > 0 {
			suffix := fmt.Sprintf(" (%d)", n+1)
			if r := []rune(name); len(r)+len(suffix) > 31 {
				name = string(r[:31-len(suffix)])
			}
			name += suffix
		}
		used[sheetName(t)]++

		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}

		if err := w.writeSheet(f, name, t, header); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Debug("Workbook written", slog.Int("sheets", len(tables)))
	return nil
}

func (w *WorkbookWriter) writeSheet(f *excelize.File, sheet string, t Table, headerStyle int) error {
	headers := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	if len(t.Headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
		lastCol, _, _ := excelize.SplitCellName(last)
		if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
			return err
		}
	}

	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = workbookCell(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// workbookCell keeps numbers numeric and renders dates as ISO text
func workbookCell(v any) any {
	switch x := v.(type) {
	case civil.Date:
		if x.IsZero() {
			return nil
		}
		return x.String()
	case Percent:
		return float64(x)
	}
	return v
}
