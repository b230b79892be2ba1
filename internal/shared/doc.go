// Package shared holds helpers used across the supplypulse packages.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// log output and an excelize fixture builder for writing small workbooks
// into a test's temporary directory:
//
//	path := testutil.WriteWorkbook(t, "consumption.xlsx", testutil.Sheet{
//	    Name: "Sheet1",
//	    Rows: testutil.Table([]string{"Date", "Org_Log", "Desc_Cat", "Article", "Qte", "Montant"},
//	        []interface{}{"20240115", "ORG1", "Filtres", "Filtre huile", 4, 120.5},
//	    ),
//	})
//
// Nothing here carries business logic.
package shared
