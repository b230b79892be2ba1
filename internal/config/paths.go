package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"supplypulse/pkg/contracts/domain"
)

// Paths contains all the application paths.
// This is the single source of truth for file locations; relative paths in
// the configuration are resolved against BaseDir, never the working directory.
type Paths struct {
	BaseDir    string
	DataDir    string
	UploadsDir string
	ReportsDir string
	CacheDir   string
	LogsDir    string
	WebDir     string
	StaticDir  string
}

// NewPaths resolves the configured directories against base
func NewPaths(base string, cfg PathsConfig) *Paths {
	resolve := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	dataDir := resolve(cfg.DataDir, DefaultDataDir)
	webDir := resolve(cfg.WebDir, DefaultWebDir)

	return &Paths{
		BaseDir:    base,
		DataDir:    dataDir,
		UploadsDir: filepath.Join(dataDir, "uploads"),
		ReportsDir: resolve(cfg.ReportsDir, DefaultReportsDir),
		CacheDir:   filepath.Join(dataDir, "cache"),
		LogsDir:    resolve(cfg.LogsDir, DefaultLogsDir),
		WebDir:     webDir,
		StaticDir:  filepath.Join(webDir, "static"),
	}
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.UploadsDir,
		p.ReportsDir,
		p.CacheDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Resolve makes a configured path absolute relative to BaseDir
func (p *Paths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.BaseDir, path)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetCachePath returns the path for a cache file
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// GetWebFilePath returns the path to a web file
func (p *Paths) GetWebFilePath(filename string) string {
	return filepath.Join(p.WebDir, filename)
}

// GetUploadPath returns where an uploaded workbook for kind is stored. The
// original extension is kept so archives and workbooks stay distinguishable.
func (p *Paths) GetUploadPath(kind domain.DatasetKind, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".xlsx"
	}
	return filepath.Join(p.UploadsDir, string(kind)+ext)
}

// LogPathResolution logs the resolved directories
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("uploads", p.UploadsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("cache", p.CacheDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
