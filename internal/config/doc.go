// Package config provides centralized configuration management for SupplyPulse.
// It loads configuration from several sources, validates it once, and
// resolves every file system location through the Paths type.
//
// # Configuration Sources
//
// Values are layered in order of increasing precedence:
//
//	1. Default values (Default)
//	2. A YAML file (config.yaml, configs/config.yaml or $SUPPLYPULSE_CONFIG)
//	3. Environment variables, after loading a .env file when present
//
// # Environment Variables
//
// All environment variables follow the pattern SUPPLYPULSE_<SECTION>_<FIELD>:
//
//	SUPPLYPULSE_SERVER_PORT=8080
//	SUPPLYPULSE_LOGGING_LEVEL=debug
//	SUPPLYPULSE_ANALYTICS_Z_THRESHOLD=3
//	SUPPLYPULSE_DATASETS_CONSUMPTION_FILE=data/consommation.xlsx
//	SUPPLYPULSE_DATASETS_STOCK_SPREADSHEET_ID=1AbC...
//
// # Datasets
//
// Each dataset kind (consumption, procurement, equipment, stock) is read
// either from a workbook on disk or from a Google Sheets range. Sheets
// sources authenticate with the service account in Datasets.CredentialsFile.
//
// # Path Management
//
//	paths, err := cfg.ResolvePaths()
//	out := paths.GetReportPath("dashboard.xlsx")
package config
