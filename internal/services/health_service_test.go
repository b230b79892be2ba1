package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/pkg/contracts"
)

func TestHealthCheck(t *testing.T) {
	cfg, paths := newTestConfig(t, writeConsumption(t, 10))
	datasets := NewDatasetService(cfg, paths, nil, nil, nil)
	hs := NewHealthService(paths, datasets, NewSessionStore(cfg.Sessions, nil, nil), nil)

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, contracts.GetVersionString(), status.Version)
	require.NotNil(t, status.Runtime)
	assert.Positive(t, status.Runtime.Goroutines)
	assert.Len(t, status.Sources, 4)
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name        string
		consumption bool
		removeData  bool
		want        string
		notReady    string
	}{
		{name: "ready", consumption: true, want: "ready"},
		{name: "no dataset available", want: "not_ready", notReady: "datasets"},
		{name: "data directory missing", consumption: true, removeData: true, want: "not_ready", notReady: "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.consumption {
				path = writeConsumption(t, 10)
			}
			cfg, paths := newTestConfig(t, path)
			if tt.removeData {
				require.NoError(t, os.RemoveAll(paths.DataDir))
			}

			hs := NewHealthService(paths, NewDatasetService(cfg, paths, nil, nil, nil), NewSessionStore(cfg.Sessions, nil, nil), nil)
			status := hs.ReadinessCheck(context.Background())

			assert.Equal(t, tt.want, status.Status)
			require.Len(t, status.Services, 3)
			if tt.notReady != "" {
				assert.Equal(t, "not_ready", status.Services[tt.notReady].Status)
			}
			assert.Equal(t, "ready", status.Services["sessions"].Status)
		})
	}
}

func TestReadinessWithoutServices(t *testing.T) {
	hs := NewHealthService(nil, nil, nil, nil)
	status := hs.ReadinessCheck(context.Background())

	assert.Equal(t, "not_ready", status.Status)
	assert.Equal(t, "ready", status.Services["data"].Status)
	assert.Equal(t, "not_ready", status.Services["sessions"].Status)
}

func TestHealthVersion(t *testing.T) {
	hs := NewHealthService(nil, nil, nil, nil)
	info := hs.Version()

	assert.Equal(t, contracts.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
