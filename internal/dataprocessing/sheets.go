package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"supplypulse/pkg/contracts/domain"
)

// SheetsSource reads dataset tables from Google Sheets ranges
type SheetsSource struct {
	service *sheets.Service
	parser  *Parser
	logger  *slog.Logger
}

// NewSheetsSource creates a read-only Sheets client from a service account
// credentials file.
func NewSheetsSource(ctx context.Context, credentialsFile string, parser *Parser, logger *slog.Logger) (*SheetsSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
	}

	service, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsSource{
		service: service,
		parser:  parser,
		logger:  logger.With(slog.String("component", "sheets_source")),
	}, nil
}

// Identity returns the cache identity of a spreadsheet range
func (s *SheetsSource) Identity(spreadsheetID, readRange string) string {
	return "sheets:" + spreadsheetID + "!" + readRange
}

// Load fetches a range and normalizes it with the dataset schema
func (s *SheetsSource) Load(ctx context.Context, kind domain.DatasetKind, spreadsheetID, readRange string) (*domain.Dataset, error) {
	source := s.Identity(spreadsheetID, readRange)

	resp, err := s.service.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, &domain.SourceError{Source: source, Err: err}
	}

	s.logger.InfoContext(ctx, "Fetched sheet range",
		slog.String("spreadsheet_id", spreadsheetID),
		slog.String("range", readRange),
		slog.Int("rows", len(resp.Values)))

	return s.parser.ParseRows(ctx, source, kind, ValuesToRows(resp.Values))
}

// ValuesToRows converts a Sheets value matrix into string rows using the
// same raw representation excelize produces for workbook cells.
func ValuesToRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		rows[i] = cells
	}
	return rows
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
