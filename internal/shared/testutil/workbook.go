package testutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a fixture workbook; the first row is the header
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// WriteWorkbook saves a workbook with the given sheets into t.TempDir()
// and returns its path.
func WriteWorkbook(t *testing.T, filename string, sheets ...Sheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				t.Fatalf("failed to rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("failed to add sheet %s: %v", sheet.Name, err)
		}

		for r, row := range sheet.Rows {
			for c, value := range row {
				if value == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("invalid cell coordinates: %v", err)
				}
				if err := f.SetCellValue(sheet.Name, cell, value); err != nil {
					t.Fatalf("failed to set %s!%s: %v", sheet.Name, cell, err)
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), filename)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	return path
}

// Table builds the row matrix of a single-sheet fixture
func Table(header []string, rows ...[]interface{}) [][]interface{} {
	out := make([][]interface{}, 0, len(rows)+1)
	h := make([]interface{}, len(header))
	for i, v := range header {
		h[i] = v
	}
	out = append(out, h)
	return append(out, rows...)
}

// WriteArchive zips the given files, stored under their base names, into
// t.TempDir() and returns the archive path.
func WriteArchive(t *testing.T, filename string, files ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), filename)
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("failed to read %s: %v", file, err)
		}
		w, err := zw.Create(filepath.Base(file))
		if err != nil {
			t.Fatalf("failed to add %s: %v", file, err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("failed to write %s: %v", file, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
	return path
}
