package config

import "time"

// Application constants
const (
	AppName = "SupplyPulse"

	// File Paths (relative to the base directory)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultWebDir     = "web"
	DefaultReportsDir = "data/reports"

	// Timeouts
	SheetsFetchTimeout = 45 * time.Second
	ReportBuildTimeout = 5 * time.Minute
	SessionSweepPeriod = 5 * time.Minute

	// API Endpoints
	APIBasePath     = "/api"
	MetricsEndpoint = "/metrics"
)
