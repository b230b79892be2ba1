package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// Format is an output format of the report exporter
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

// Formats lists every supported format
var Formats = []Format{FormatCSV, FormatXLSX, FormatHTML}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// ParseFormat accepts a format name case-insensitively
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatXLSX, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ParseFormats parses a comma separated format list, dropping duplicates
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no export format given")
	}
	return out, nil
}

// formatFloat formats a float64 value with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats an int64 value
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatBool formats a boolean value
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatDate renders an unknown date as an empty cell
func formatDate(d civil.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

// formatPercent renders a 0..1 share as a percentage with one decimal
func formatPercent(share float64) string {
	return fmt.Sprintf("%.1f%%", share*100)
}

// cellText converts a typed table cell to its text form
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case int:
		return formatInt(int64(x))
	case int64:
		return formatInt(x)
	case bool:
		return formatBool(x)
	case civil.Date:
		return formatDate(x)
	case Percent:
		return formatPercent(float64(x))
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Percent marks a share cell so text outputs render it as a percentage
type Percent float64
