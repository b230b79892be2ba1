package dataprocessing

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/shared/testutil"
	"supplypulse/pkg/contracts/domain"
)

var consumptionHeader = []string{"Date", "Org_Log", "Desc_Cat", "Article", "Qte", "Montant"}

func newTestParser(t *testing.T) (*Parser, *testutil.BufferedSlogHandler) {
	logger, handler := testutil.NewTestLogger(t)
	return NewParser(DefaultParserOptions(), logger), handler
}

func TestParseFileConsumption(t *testing.T) {
	path := testutil.WriteWorkbook(t, "consommation.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table(consumptionHeader,
			[]interface{}{"20240115", "ORG1", "Filtres", "Filtre huile", 4, 120.5},
			[]interface{}{time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), "ORG2", "Pneus", "Pneu 315", "2", "1 250,00"},
			[]interface{}{"", "", "", "Joint", 1, 10},
		),
	})

	parser, handler := newTestParser(t)
	ds, err := parser.ParseFile(context.Background(), path, domain.KindConsumption)
	require.NoError(t, err)

	assert.Equal(t, domain.KindConsumption, ds.Kind())
	assert.Equal(t, path, ds.Source())
	assert.NotEmpty(t, ds.Fingerprint())
	require.Equal(t, 3, ds.Len())

	records := ds.Records()

	first := records[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 15}, first.Date)
	assert.Equal(t, "ORG1", first.Organization)
	assert.Equal(t, "Filtres", first.Category)
	assert.Equal(t, "Filtre huile", first.Article)
	assert.Equal(t, 4.0, first.Quantity)
	assert.Equal(t, 120.5, first.Amount)
	assert.InDelta(t, 30.125, first.UnitCost, 1e-9)
	assert.Equal(t, domain.DefaultUnknown, first.Supplier)

	second := records[1]
	assert.Equal(t, civil.Date{Year: 2024, Month: time.February, Day: 3}, second.Date)
	assert.Equal(t, 1250.0, second.Amount)

	third := records[2]
	assert.False(t, third.HasDate())
	assert.Equal(t, domain.DefaultUnknown, third.Organization)
	assert.Equal(t, domain.DefaultUnknown, third.Category)

	assert.Empty(t, ds.Warnings())
	testutil.AssertLogAttr(t, handler, "component", "parser")
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Dataset normalized")
}

func TestParseFileMissingColumn(t *testing.T) {
	path := testutil.WriteWorkbook(t, "broken.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table([]string{"Date", "Org_Log", "Desc_Cat", "Article", "Qte"},
			[]interface{}{"20240115", "ORG1", "Filtres", "Filtre huile", 4},
		),
	})

	parser, _ := newTestParser(t)
	ds, err := parser.ParseFile(context.Background(), path, domain.KindConsumption)
	require.Error(t, err)
	assert.Nil(t, ds)

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, domain.KindConsumption, schemaErr.Kind)
	assert.Equal(t, []string{"Montant"}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "Montant")
}

func TestParseFileDropsBlankRowsAndWarns(t *testing.T) {
	path := testutil.WriteWorkbook(t, "consommation.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table(consumptionHeader,
			[]interface{}{"20240115", "ORG1", "Filtres", "Filtre huile", 4, 100},
			[]interface{}{},
			[]interface{}{"pas une date", "ORG1", "Filtres", "Filtre air", "abc", 50},
		),
	})

	parser, _ := newTestParser(t)
	ds, err := parser.ParseFile(context.Background(), path, domain.KindConsumption)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	rec := ds.Records()[1]
	assert.Equal(t, 4, rec.Row)
	assert.False(t, rec.HasDate())
	assert.Equal(t, 0.0, rec.Quantity)
	assert.Equal(t, 0.0, rec.UnitCost)

	warnings := ds.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, domain.ParseWarning{Row: 4, Column: "Date", Value: "pas une date", Reason: "invalid date"}, warnings[0])
	assert.Equal(t, domain.ParseWarning{Row: 4, Column: "Qte", Value: "abc", Reason: "invalid number"}, warnings[1])
}

func TestParseFileHeaderBelowTitleRows(t *testing.T) {
	rows := [][]interface{}{
		{"Rapport de consommation"},
		{},
	}
	rows = append(rows, testutil.Table(consumptionHeader,
		[]interface{}{"20240301", "ORG1", "Filtres", "Filtre huile", 1, 10},
	)...)
	path := testutil.WriteWorkbook(t, "titled.xlsx", testutil.Sheet{Name: "Sheet1", Rows: rows})

	parser, _ := newTestParser(t)
	ds, err := parser.ParseFile(context.Background(), path, domain.KindConsumption)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, 4, ds.Records()[0].Row)
}

func TestParseFileEquipmentPreferredSheet(t *testing.T) {
	header := []string{"Date", "CATEGORIE", "Desc_Cat", "Desc_CA", "Montant"}
	path := testutil.WriteWorkbook(t, "equipement.xlsx",
		testutil.Sheet{Name: "Synthese", Rows: [][]interface{}{{"Total", 1000}}},
		testutil.Sheet{Name: "BASE DE DONNEE", Rows: testutil.Table(header,
			[]interface{}{"20240105", "ENGINS", "Pieces", "CAT 320D", 5000},
			[]interface{}{"20240210", "ENGINS", "Pieces", "", 200},
		)},
	)

	parser, _ := newTestParser(t)
	ds, err := parser.ParseFile(context.Background(), path, domain.KindEquipment)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	records := ds.Records()
	assert.Equal(t, "ENGINS", records[0].Group)
	assert.Equal(t, "Pieces", records[0].Category)
	assert.Equal(t, "CAT 320D", records[0].Equipment)
	assert.Equal(t, "CAT 320D", records[0].Article)
	assert.Equal(t, domain.DefaultUnknown, records[1].Equipment)
	assert.Equal(t, domain.DefaultUnknown, records[1].Article)
}

func TestParseFileProcurement(t *testing.T) {
	header := []string{
		"article", "article_desc", "quantite", "prix_unitaire", "montant", "fournisseur",
		"date_commande", "date_livraison", "date_promesse", "statut_approbation", "categorie_achat_1",
	}
	path := testutil.WriteWorkbook(t, "achats.xlsx", testutil.Sheet{
		Name: "Achats",
		Rows: testutil.Table(header,
			[]interface{}{"A-001", "Huile moteur", 10, "12,5", 125, "SUP1", "20240101", "20240112", "20240110", "Approuve", "Lubrifiants"},
		),
	})

	parser, _ := newTestParser(t)
	ds, err := parser.ParseFile(context.Background(), path, domain.KindProcurement)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	rec := ds.Records()[0]
	assert.Equal(t, "A-001", rec.Code)
	assert.Equal(t, "Huile moteur", rec.Article)
	assert.Equal(t, 12.5, rec.UnitPrice)
	assert.Equal(t, "SUP1", rec.Supplier)
	assert.Equal(t, "Approuve", rec.Status)
	assert.Equal(t, domain.DefaultUnknown, rec.Organization)

	delay, ok := rec.DeliveryDelay()
	require.True(t, ok)
	assert.Equal(t, 2, delay)

	lead, ok := rec.LeadTime()
	require.True(t, ok)
	assert.Equal(t, 11, lead)
}

func TestParseFileStockCategoryFromGroup(t *testing.T) {
	header := []string{"article", "DES_ARTICLE", "GROUPE", "QUANTITE", "MONTANT", "Mois"}
	path := testutil.WriteWorkbook(t, "stock.xlsx", testutil.Sheet{
		Name: "Stock",
		Rows: testutil.Table(header,
			[]interface{}{"S-01", "Courroie", "TRANSMISSION", 3, 450, "202403"},
		),
	})

	parser, _ := newTestParser(t)
	ds, err := parser.ParseFile(context.Background(), path, domain.KindStock)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	rec := ds.Records()[0]
	assert.Equal(t, "TRANSMISSION", rec.Group)
	assert.Equal(t, "TRANSMISSION", rec.Category)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.March, Day: 1}, rec.Date)
	assert.Equal(t, "2024-03", rec.Period)
	assert.InDelta(t, 150.0, rec.UnitCost, 1e-9)
}

func TestParseRowsStockMonthLabels(t *testing.T) {
	rows := [][]string{
		{"article", "DES_ARTICLE", "GROUPE", "QUANTITE", "MONTANT", "Mois"},
		{"V1", "Vis", "Fixation", "30", "3", "Janvier"},
		{"V1", "Vis", "Fixation", "30", "3", " Février "},
		{"J1", "Joint", "Etancheite", "10", "50", "Mars"},
		{"J1", "Joint", "Etancheite", "5", "25", "Mars 2024"},
	}

	parser, _ := newTestParser(t)
	ds, err := parser.ParseRows(context.Background(), "stock", domain.KindStock, rows)
	require.NoError(t, err)
	require.Equal(t, 4, ds.Len())
	assert.Empty(t, ds.Warnings())

	records := ds.Records()
	assert.Equal(t, "Janvier", records[0].Period)
	assert.False(t, records[0].HasDate())
	assert.Equal(t, "Février", records[1].Period)
	assert.Equal(t, "Mars", records[2].Period)
	assert.Equal(t, "2024-03", records[3].Period)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.March, Day: 1}, records[3].Date)
}

func TestParseFileSourceErrors(t *testing.T) {
	parser, _ := newTestParser(t)

	_, err := parser.ParseFile(context.Background(), "does-not-exist.xlsx", domain.KindConsumption)
	var srcErr *domain.SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = parser.ParseBytes(context.Background(), "garbage.xlsx", domain.KindConsumption, []byte("not a workbook"))
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, "garbage.xlsx", srcErr.Source)

	_, err = parser.ParseBytes(context.Background(), "x.xlsx", domain.DatasetKind("payroll"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dataset kind")
}

func TestParseRows(t *testing.T) {
	rows := [][]string{
		{"date", "ORG_LOG", "Desc_Cat", "Article", "Qte", "Montant"},
		{"45306", "ORG1", "Filtres", "Filtre huile", "4", "100"},
	}

	parser, _ := newTestParser(t)
	ds, err := parser.ParseRows(context.Background(), "sheets:abc!A:F", domain.KindConsumption, rows)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	rec := ds.Records()[0]
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 15}, rec.Date)
	assert.Equal(t, "ORG1", rec.Organization)
	assert.Equal(t, FingerprintRows(domain.KindConsumption, rows), ds.Fingerprint())

	_, err = parser.ParseRows(context.Background(), "empty", domain.KindConsumption, nil)
	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Len(t, schemaErr.Missing, 6)
}

func TestParseRowsCustomUnknownLabel(t *testing.T) {
	opts := DefaultParserOptions()
	opts.UnknownLabel = "Inconnu"
	parser := NewParser(opts, nil)

	ds, err := parser.ParseRows(context.Background(), "mem", domain.KindConsumption, [][]string{
		consumptionHeader,
		{"20240115", "", "Filtres", "Filtre huile", "1", "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Inconnu", ds.Records()[0].Organization)
}

func TestParseRowsWarningCap(t *testing.T) {
	opts := DefaultParserOptions()
	opts.MaxWarnings = 2
	parser := NewParser(opts, nil)

	rows := [][]string{consumptionHeader}
	for i := 0; i < 5; i++ {
		rows = append(rows, []string{"20240115", "ORG1", "Filtres", "Filtre", "x", "1"})
	}
	ds, err := parser.ParseRows(context.Background(), "mem", domain.KindConsumption, rows)
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Len())
	assert.Len(t, ds.Warnings(), 2)
}

func TestParseRowsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	parser, _ := newTestParser(t)
	_, err := parser.ParseRows(ctx, "mem", domain.KindConsumption, [][]string{
		consumptionHeader,
		{"20240115", "ORG1", "Filtres", "Filtre", "1", "1"},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
