package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/services"
	"supplypulse/internal/shared/testutil"
	"supplypulse/pkg/contracts"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	var rows [][]interface{}
	for i := 0; i < 12; i++ {
		date := fmt.Sprintf("2024%02d%02d", i/2+1, 5+i%2*10)
		rows = append(rows, []interface{}{date, "ORG1", "Filtres", "Filtre huile", 2 + i%3, 10.0})
	}
	rows = append(rows, []interface{}{"20240301", "ORG2", "Pneus", "Pneu 315", 1, 400})
	return testutil.WriteWorkbook(t, "consommation.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table([]string{"Date", "Org_Log", "Desc_Cat", "Article", "Qte", "Montant"}, rows...),
	})
}

// writeConfig roots the application in a temp directory
func writeConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.yaml")
	content := "paths:\n  base_dir: " + base + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cli := NewCLI(Options{Output: &out, Errors: &errOut})
	cli.rootCmd.SetArgs(args)
	err := cli.Execute()
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	input := writeWorkbook(t)
	outDir := t.TempDir()

	out, err := run(t, "build",
		"--config", writeConfig(t),
		"--kind", "consumption",
		"--input", input,
		"--out", outDir,
		"--format", "xlsx,html",
		"--organization", "ORG1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "consumption dashboard: 12 records")
	for _, file := range lines[1:] {
		assert.FileExists(t, file)
		assert.Equal(t, outDir, filepath.Dir(file))
	}
}

func TestBuildCommandRejectsInput(t *testing.T) {
	input := writeWorkbook(t)
	cfg := writeConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown kind", args: []string{"--kind", "payroll", "--input", input}},
		{name: "bad date", args: []string{"--kind", "consumption", "--input", input, "--from", "2024/01/01"}},
		{name: "reversed range", args: []string{"--kind", "consumption", "--input", input, "--from", "2024-06-01", "--to", "2024-01-01"}},
		{name: "unknown format", args: []string{"--kind", "consumption", "--input", input, "--format", "pdf"}},
		{name: "top too large", args: []string{"--kind", "consumption", "--input", input, "--top", "99"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"build", "--config", cfg}, tt.args...)...)
			assert.ErrorIs(t, err, services.ErrInvalidInput)
		})
	}

	_, err := run(t, "build", "--config", cfg, "--input", input)
	assert.ErrorContains(t, err, "kind")
}

func TestInspectCommand(t *testing.T) {
	out, err := run(t, "inspect", "--config", writeConfig(t), "--kind", "consumption", "--input", writeWorkbook(t))
	require.NoError(t, err)

	var in services.Inspection
	require.NoError(t, json.Unmarshal([]byte(out), &in))
	assert.Equal(t, 13, in.Records)
	assert.Equal(t, []string{"ORG1", "ORG2"}, in.Choices.Organizations)
	assert.NotEmpty(t, in.Fingerprint)
}

func TestInspectSchemaMismatch(t *testing.T) {
	_, err := run(t, "inspect", "--config", writeConfig(t), "--kind", "procurement", "--input", writeWorkbook(t))
	assert.ErrorContains(t, err, "procurement")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, contracts.Version)

	out, err = run(t, "version", "--json")
	require.NoError(t, err)
	var info contracts.VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, contracts.Version, info.Version)
}
