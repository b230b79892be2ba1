package dataprocessing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/shared/testutil"
	"supplypulse/pkg/contracts/domain"
)

func TestParseArchiveConcatenatesWorkbooks(t *testing.T) {
	january := testutil.WriteWorkbook(t, "2024-01.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table(consumptionHeader,
			[]interface{}{"20240115", "ORG1", "Filtres", "Filtre huile", 4, 100},
		),
	})
	february := testutil.WriteWorkbook(t, "2024-02.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table(consumptionHeader,
			[]interface{}{"20240203", "ORG2", "Pneus", "Pneu 315", 2, 900},
			[]interface{}{"20240210", "ORG2", "Pneus", "Pneu 315", "x", 50},
		),
	})
	unrelated := testutil.WriteWorkbook(t, "notes.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table([]string{"Titre", "Commentaire"}, []interface{}{"a", "b"}),
	})
	archive := testutil.WriteArchive(t, "consommation.zip", february, unrelated, january)

	parser, handler := newTestParser(t)
	ds, err := parser.ParseArchiveFile(context.Background(), archive, domain.KindConsumption)
	require.NoError(t, err)

	require.Equal(t, 3, ds.Len())
	assert.Equal(t, domain.KindConsumption, ds.Kind())
	assert.Equal(t, archive, ds.Source())
	assert.InDelta(t, 1050.0, ds.TotalAmount(), 1e-9)

	// entries are read in name order
	records := ds.Records()
	assert.Equal(t, "Filtre huile", records[0].Article)
	assert.Equal(t, "Pneu 315", records[1].Article)

	require.Len(t, ds.Warnings(), 1)
	assert.Equal(t, "Qte", ds.Warnings()[0].Column)

	assert.True(t, handler.ContainsMessage("Skipping archive entry"))
	assert.True(t, handler.ContainsAttr("entry", "notes.xlsx"))

	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(domain.KindConsumption, data), ds.Fingerprint())
}

func TestParseArchiveWithoutMatchingWorkbook(t *testing.T) {
	unrelated := testutil.WriteWorkbook(t, "notes.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table([]string{"Titre", "Commentaire"}, []interface{}{"a", "b"}),
	})
	archive := testutil.WriteArchive(t, "bundle.zip", unrelated)

	parser, _ := newTestParser(t)
	_, err := parser.ParseArchiveFile(context.Background(), archive, domain.KindConsumption)

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, schemaErr.Missing, "Montant")
}

func TestParseArchiveRejectsIncompleteEntry(t *testing.T) {
	january := testutil.WriteWorkbook(t, "2024-01.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table(consumptionHeader,
			[]interface{}{"20240115", "ORG1", "Filtres", "Filtre huile", 4, 100},
		),
	})
	february := testutil.WriteWorkbook(t, "2024-02.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table([]string{"Date", "Org_Log", "Desc_Cat", "Article", "Qte"},
			[]interface{}{"20240203", "ORG2", "Pneus", "Pneu 315", 2},
			[]interface{}{"20240210", "ORG2", "Pneus", "Pneu 315", 1},
		),
	})
	archive := testutil.WriteArchive(t, "consommation.zip", january, february)

	parser, _ := newTestParser(t)
	ds, err := parser.ParseArchiveFile(context.Background(), archive, domain.KindConsumption)
	assert.Nil(t, ds)

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr), "got %v", err)
	assert.Equal(t, []string{"Montant"}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "2024-02.xlsx")
}

func TestParseArchiveSourceErrors(t *testing.T) {
	parser, _ := newTestParser(t)
	dir := t.TempDir()

	notZip := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(notZip, []byte("not a zip"), 0644))

	text := filepath.Join(dir, "readme.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0644))
	noWorkbooks := testutil.WriteArchive(t, "empty.zip", text)

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.zip")},
		{"corrupt archive", notZip},
		{"no workbooks", noWorkbooks},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.ParseArchiveFile(context.Background(), tt.path, domain.KindConsumption)
			var srcErr *domain.SourceError
			assert.True(t, errors.As(err, &srcErr), "got %v", err)
		})
	}
}

func TestIsArchive(t *testing.T) {
	assert.True(t, IsArchive("exports/engins.ZIP"))
	assert.False(t, IsArchive("engins.xlsx"))
	assert.False(t, IsArchive("zip"))
}
