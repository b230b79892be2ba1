package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"supplypulse/internal/config"
)

// Manager provides file management operations
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewManager creates a new file manager instance. paths may be nil, in
// which case only absolute paths can be written.
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		paths:  paths,
		logger: logger.With(slog.String("component", "file_manager")),
	}
}

// Resolve maps a relative path onto the application directories. A leading
// uploads/, reports/, cache/, logs/ or web/ selects that directory; anything else
// is relative to the data directory.
func (m *Manager) Resolve(path string) string {
	if filepath.IsAbs(path) || m.paths == nil {
		return path
	}

	switch {
	case strings.HasPrefix(path, "uploads/"):
		return filepath.Join(m.paths.UploadsDir, strings.TrimPrefix(path, "uploads/"))
	case strings.HasPrefix(path, "reports/"):
		return m.paths.GetReportPath(strings.TrimPrefix(path, "reports/"))
	case strings.HasPrefix(path, "cache/"):
		return m.paths.GetCachePath(strings.TrimPrefix(path, "cache/"))
	case strings.HasPrefix(path, "logs/"):
		return m.paths.GetLogPath(strings.TrimPrefix(path, "logs/"))
	case strings.HasPrefix(path, "web/"):
		return m.paths.GetWebFilePath(strings.TrimPrefix(path, "web/"))
	default:
		return filepath.Join(m.paths.DataDir, path)
	}
}

// WriteFile replaces the file at path with data and returns the resolved
// path. The data is written to a temporary file in the target directory
// and renamed over the target.
func (m *Manager) WriteFile(path string, data []byte) (string, error) {
	fullPath := m.Resolve(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", fullPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync %s: %w", fullPath, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("failed to replace %s: %w", fullPath, err)
	}

	m.logger.Debug("File written",
		slog.String("path", fullPath),
		slog.Int("size_bytes", len(data)))
	return fullPath, nil
}
