package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"supplypulse/pkg/contracts/domain"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "SUPPLYPULSE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Sessions  SessionConfig   `yaml:"sessions" envconfig:"SESSIONS"`
	Analytics AnalyticsConfig `yaml:"analytics" envconfig:"ANALYTICS"`
	Datasets  DatasetsConfig  `yaml:"datasets" envconfig:"DATASETS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig selects the OpenTelemetry exporters. Metrics always go
// to the Prometheus exporter behind /metrics.
type TelemetryConfig struct {
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// PathsConfig contains file system paths configuration. Relative
// directories are resolved against BaseDir, which defaults to the
// executable directory.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	WebDir     string `yaml:"web_dir" envconfig:"WEB_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// UploadConfig limits workbook uploads
type UploadConfig struct {
	MaxBytes          int64    `yaml:"max_bytes" envconfig:"MAX_BYTES"`
	AllowedExtensions []string `yaml:"allowed_extensions" envconfig:"ALLOWED_EXTENSIONS"`
}

// SessionConfig controls the per-client result caches
type SessionConfig struct {
	TTL         time.Duration `yaml:"ttl" envconfig:"TTL"`
	MaxSessions int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS"`
	MaxResults  int           `yaml:"max_results" envconfig:"MAX_RESULTS"`
}

// AnalyticsConfig holds the tunable parameters of the pipeline
type AnalyticsConfig struct {
	TopN              int     `yaml:"top_n" envconfig:"TOP_N"`
	ForecastItems     int     `yaml:"forecast_items" envconfig:"FORECAST_ITEMS"`
	ForecastHorizon   int     `yaml:"forecast_horizon" envconfig:"FORECAST_HORIZON"`
	MinHistory        int     `yaml:"min_history" envconfig:"MIN_HISTORY"`
	SafetyMargin      float64 `yaml:"safety_margin" envconfig:"SAFETY_MARGIN"`
	ZThreshold        float64 `yaml:"z_threshold" envconfig:"Z_THRESHOLD"`
	MinCategorySize   int     `yaml:"min_category_size" envconfig:"MIN_CATEGORY_SIZE"`
	MinSupplierOrders int     `yaml:"min_supplier_orders" envconfig:"MIN_SUPPLIER_ORDERS"`
	ProjectionHorizon int     `yaml:"projection_horizon" envconfig:"PROJECTION_HORIZON"`
	ProjectionBand    float64 `yaml:"projection_band" envconfig:"PROJECTION_BAND"`
	BucketMode        string  `yaml:"bucket_mode" envconfig:"BUCKET_MODE"`
	UnknownLabel      string  `yaml:"unknown_label" envconfig:"UNKNOWN_LABEL"`

	LowStockQuantity float64 `yaml:"low_stock_quantity" envconfig:"LOW_STOCK_QUANTITY"`
	HighCostAmount   float64 `yaml:"high_cost_amount" envconfig:"HIGH_COST_AMOUNT"`
	HighUnitPrice    float64 `yaml:"high_unit_price" envconfig:"HIGH_UNIT_PRICE"`
	MaxAlerts        int     `yaml:"max_alerts" envconfig:"MAX_ALERTS"`
}

// Bucket returns the configured month bucketing mode
func (a AnalyticsConfig) Bucket() domain.BucketMode {
	if domain.BucketMode(a.BucketMode) == domain.BucketMonthName {
		return domain.BucketMonthName
	}
	return domain.BucketYearMonth
}

// SourceConfig locates one dataset: a workbook on disk or a Google Sheets range
type SourceConfig struct {
	File          string `yaml:"file" envconfig:"FILE"`
	Sheet         string `yaml:"sheet" envconfig:"SHEET"`
	SpreadsheetID string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	Range         string `yaml:"range" envconfig:"RANGE"`
}

// IsSheets reports whether the source is a Google Sheets range
func (s SourceConfig) IsSheets() bool {
	return s.SpreadsheetID != ""
}

// Configured reports whether any location is set
func (s SourceConfig) Configured() bool {
	return s.File != "" || s.IsSheets()
}

// DatasetsConfig maps each dataset kind to its source
type DatasetsConfig struct {
	CredentialsFile string       `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	Consumption     SourceConfig `yaml:"consumption" envconfig:"CONSUMPTION"`
	Procurement     SourceConfig `yaml:"procurement" envconfig:"PROCUREMENT"`
	Equipment       SourceConfig `yaml:"equipment" envconfig:"EQUIPMENT"`
	Stock           SourceConfig `yaml:"stock" envconfig:"STOCK"`
}

// Source returns the configured source of a dataset kind
func (d DatasetsConfig) Source(kind domain.DatasetKind) (SourceConfig, bool) {
	switch kind {
	case domain.KindConsumption:
		return d.Consumption, true
	case domain.KindProcurement:
		return d.Procurement, true
	case domain.KindEquipment:
		return d.Equipment, true
	case domain.KindStock:
		return d.Stock, true
	}
	return SourceConfig{}, false
}

// Load reads configuration with the precedence defaults < config file <
// environment. A .env file in the working directory is loaded into the
// environment first when present.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file path; an empty path skips
// the file layer.
func LoadFile(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// unset variables leave the field untouched since no default tags are used
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ResolvePaths builds the absolute path set for this configuration
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		dir, err := executableDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve base directory: %w", err)
		}
		base = dir
	}
	return NewPaths(base, c.Paths), nil
}

// validate checks ranges and normalizes values that have a single valid form
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive")
	}

	a := c.Analytics
	if a.TopN <= 0 || a.ForecastItems <= 0 || a.ForecastHorizon <= 0 {
		return fmt.Errorf("analytics counts must be positive")
	}
	if a.MinHistory < 3 {
		return fmt.Errorf("analytics min history must be at least 3, got %d", a.MinHistory)
	}
	if a.SafetyMargin < 0 {
		return fmt.Errorf("analytics safety margin must not be negative")
	}
	if a.ZThreshold <= 0 {
		return fmt.Errorf("analytics z threshold must be positive")
	}
	switch domain.BucketMode(a.BucketMode) {
	case domain.BucketYearMonth, domain.BucketMonthName:
	default:
		return fmt.Errorf("unknown bucket mode %q", a.BucketMode)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	switch c.Telemetry.TraceExporter {
	case "", "none", "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter %q", c.Telemetry.TraceExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1], got %v", c.Telemetry.SampleRatio)
	}

	for _, kind := range domain.Kinds {
		src, _ := c.Datasets.Source(kind)
		if src.IsSheets() && src.Range == "" {
			return fmt.Errorf("%s dataset: spreadsheet id set without a range", kind)
		}
	}
	return nil
}

// getConfigFilePath returns the first config file found in common locations
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/supplypulse.log",
		},
		Telemetry: TelemetryConfig{
			Environment:   "development",
			TraceExporter: "none",
			SampleRatio:   1.0,
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ReportsDir: DefaultReportsDir,
			WebDir:     DefaultWebDir,
			LogsDir:    DefaultLogsDir,
		},
		Upload: UploadConfig{
			MaxBytes:          50 << 20,
			AllowedExtensions: []string{".xlsx", ".xlsm", ".zip"},
		},
		Sessions: SessionConfig{
			TTL:         2 * time.Hour,
			MaxSessions: 256,
			MaxResults:  32,
		},
		Analytics: AnalyticsConfig{
			TopN:              10,
			ForecastItems:     5,
			ForecastHorizon:   6,
			MinHistory:        3,
			SafetyMargin:      0.10,
			ZThreshold:        3,
			MinCategorySize:   10,
			MinSupplierOrders: 3,
			ProjectionHorizon: 3,
			ProjectionBand:    0.30,
			BucketMode:        string(domain.BucketYearMonth),
			LowStockQuantity:  10,
			HighCostAmount:    100000,
			HighUnitPrice:     1000,
			MaxAlerts:         100,
		},
		Datasets: DatasetsConfig{
			CredentialsFile: "credentials.json",
			Consumption:     SourceConfig{File: "data/consommation.xlsx"},
			Procurement:     SourceConfig{File: "data/demandes_achats.xlsx"},
			Equipment:       SourceConfig{File: "data/engins2.xlsx", Sheet: "BASE DE DONNEE"},
			Stock:           SourceConfig{File: "data/stock.xlsx"},
		},
	}
}
