package exporter

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellText(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, ""},
		{"string", "Filtre", "Filtre"},
		{"float keeps two decimals", 13.4, "13.40"},
		{"negative float", -1250.456, "-1250.46"},
		{"int", 42, "42"},
		{"int64", int64(97), "97"},
		{"bool", true, "true"},
		{"date", civil.Date{Year: 2024, Month: 3, Day: 5}, "2024-03-05"},
		{"unknown date", civil.Date{}, ""},
		{"percent", Percent(0.8), "80.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cellText(tt.input))
		})
	}
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats("csv, XLSX,csv,html")
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatCSV, FormatXLSX, FormatHTML}, got)

	_, err = ParseFormats("csv,docx")
	assert.ErrorContains(t, err, `unsupported export format "docx"`)

	_, err = ParseFormats(" , ")
	assert.Error(t, err)
}

func TestFormatContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
	assert.Equal(t, "application/octet-stream", Format("pdf").ContentType())
}
