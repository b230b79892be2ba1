package services

import (
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"supplypulse/internal/config"
	"supplypulse/internal/shared/testutil"
	"supplypulse/pkg/contracts/domain"
)

var consumptionHeader = []string{"Date", "Org_Log", "Desc_Cat", "Article", "Qte", "Montant"}

// consumptionRows spans six months of one article. The "Filtres" category
// holds twelve transactions, one of them an outlier; "Pneus" holds one.
func consumptionRows(outlier float64) [][]interface{} {
	var rows [][]interface{}
	for i := 0; i < 12; i++ {
		date := fmt.Sprintf("2024%02d%02d", i/2+1, 5+i%2*10)
		amount := 10.0
		if i == 7 {
			amount = outlier
		}
		rows = append(rows, []interface{}{date, "ORG1", "Filtres", "Filtre huile", 2 + i%3, amount})
	}
	rows = append(rows, []interface{}{"20240301", "ORG2", "Pneus", "Pneu 315", 1, 400})
	return rows
}

func writeConsumption(t *testing.T, outlier float64) string {
	t.Helper()
	return testutil.WriteWorkbook(t, "consommation.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table(consumptionHeader, consumptionRows(outlier)...),
	})
}

// newTestConfig returns defaults rooted in a temp directory with the
// consumption source pointing at path.
func newTestConfig(t *testing.T, consumption string) (*config.Config, *config.Paths) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Datasets.Consumption = config.SourceConfig{File: consumption}
	cfg.Datasets.Procurement = config.SourceConfig{}
	cfg.Datasets.Equipment = config.SourceConfig{}
	cfg.Datasets.Stock = config.SourceConfig{}

	paths := config.NewPaths(cfg.Paths.BaseDir, cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("failed to create directories: %v", err)
	}
	return cfg, paths
}

func day(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func procurementDataset() *domain.Dataset {
	var records []domain.Record
	add := func(supplier, category, status string, ordered civil.Date, delay int, amount float64) {
		promised := ordered.AddDays(10)
		records = append(records, domain.Record{
			Row:           len(records) + 2,
			Date:          ordered,
			PromisedDate:  promised,
			DeliveredDate: promised.AddDays(delay),
			Organization:  domain.DefaultUnknown,
			Category:      category,
			Article:       "Article " + category,
			Supplier:      supplier,
			Status:        status,
			Quantity:      1,
			Amount:        amount,
			UnitPrice:     amount,
			UnitCost:      amount,
		})
	}
	for i := 0; i < 4; i++ {
		add("Alpha", "Pieces", "Approuve", day(2024, time.Month(i+1), 3), 0, 100)
		add("Beta", "Outils", "En attente", day(2024, time.Month(i+1), 8), 5, 50)
	}
	add("Gamma", "Pieces", "Approuve", day(2024, time.May, 2), 2, 70)
	return domain.NewDataset(domain.KindProcurement, "da.xlsx", "fp-procurement", records, nil)
}

func stockDataset() *domain.Dataset {
	var records []domain.Record
	add := func(code, article, group string, month time.Month, qty, amount float64) {
		records = append(records, domain.Record{
			Row:          len(records) + 2,
			Date:         day(2024, month, 1),
			Organization: domain.DefaultUnknown,
			Category:     group,
			Article:      article,
			Supplier:     domain.DefaultUnknown,
			Group:        group,
			Code:         code,
			Quantity:     qty,
			Amount:       amount,
			UnitCost:     domain.ComputeUnitCost(amount, qty),
		})
	}
	add("A1", "Huile 15W40", "Lubrifiants", time.January, 200, 4000)
	add("A1", "Huile 15W40", "Lubrifiants", time.February, 180, 3600)
	add("B7", "Roulement", "Pieces", time.January, 2, 5000)
	add("C3", "Moteur", "Pieces", time.February, 1, 250000)
	return domain.NewDataset(domain.KindStock, "stock.xlsx", "fp-stock", records, nil)
}

func equipmentDataset() *domain.Dataset {
	var records []domain.Record
	for m := 1; m <= 6; m++ {
		for _, eq := range []string{"CAT 966", "KOM 470"} {
			records = append(records, domain.Record{
				Row:          len(records) + 2,
				Date:         day(2024, time.Month(m), 10),
				Organization: domain.DefaultUnknown,
				Category:     "Entretien",
				Article:      eq,
				Supplier:     domain.DefaultUnknown,
				Group:        "Chargeuses",
				Equipment:    eq,
				Amount:       float64(1000 * m),
			})
		}
	}
	return domain.NewDataset(domain.KindEquipment, "engins2.xlsx", "fp-equipment", records, nil)
}
