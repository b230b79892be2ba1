package dataprocessing

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"supplypulse/pkg/contracts/domain"
)

// maxArchiveEntry bounds the uncompressed size of one workbook in an archive
const maxArchiveEntry = 200 << 20

// IsArchive reports whether a source name designates a zip of workbooks
func IsArchive(name string) bool {
	return strings.EqualFold(path.Ext(name), ".zip")
}

// ParseArchiveFile reads a zip of workbooks from disk
func (p *Parser) ParseArchiveFile(ctx context.Context, filePath string, kind domain.DatasetKind) (*domain.Dataset, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &domain.SourceError{Source: filePath, Err: err}
	}
	return p.ParseArchive(ctx, filePath, kind, data)
}

// ParseArchive concatenates every workbook of a zip archive, in entry name
// order, into one Dataset. Entries that bind none of the required columns
// are unrelated to the schema and skipped. An entry that binds only some of
// them fails the whole archive.
func (p *Parser) ParseArchive(ctx context.Context, source string, kind domain.DatasetKind, data []byte) (*domain.Dataset, error) {
	schema, err := p.schema(kind)
	if err != nil {
		return nil, err
	}
	requiredCols := len(schema.Required())

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &domain.SourceError{Source: source, Err: fmt.Errorf("failed to open archive: %w", err)}
	}

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		name := path.Base(f.Name)
		if f.FileInfo().IsDir() || strings.HasPrefix(name, "~$") || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if ext := strings.ToLower(path.Ext(name)); ext == ".xlsx" || ext == ".xlsm" {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return nil, &domain.SourceError{Source: source, Err: errors.New("archive contains no workbooks")}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var (
		records  []domain.Record
		warnings []domain.ParseWarning
		firstErr error
		loaded   int
	)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := readEntry(f)
		if err != nil {
			return nil, &domain.SourceError{Source: source + "!" + f.Name, Err: err}
		}

		ds, err := p.ParseBytes(ctx, source+"!"+f.Name, kind, content)
		if err != nil {
			var schemaErr *domain.SchemaError
			if !errors.As(err, &schemaErr) {
				return nil, err
			}
			if len(schemaErr.Missing) < requiredCols {
				return nil, fmt.Errorf("archive entry %s: %w", f.Name, err)
			}
			if firstErr == nil {
				firstErr = err
			}
			p.logger.WarnContext(ctx, "Skipping archive entry",
				slog.String("source", source),
				slog.String("entry", f.Name),
				slog.String("error", err.Error()))
			continue
		}

		loaded++
		records = append(records, ds.Records()...)
		if room := p.opts.MaxWarnings - len(warnings); room > 0 {
			w := ds.Warnings()
			warnings = append(warnings, w[:min(room, len(w))]...)
		}
	}

	if loaded == 0 {
		return nil, firstErr
	}

	p.logger.InfoContext(ctx, "Archive loaded",
		slog.String("source", source),
		slog.Int("entries", len(files)),
		slog.Int("loaded", loaded),
		slog.Int("records", len(records)))

	return domain.NewDataset(kind, source, Fingerprint(kind, data), records, warnings), nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxArchiveEntry+1))
	if err != nil {
		return nil, err
	}
	if len(content) > maxArchiveEntry {
		return nil, fmt.Errorf("entry %s exceeds %d bytes", f.Name, maxArchiveEntry)
	}
	return content, nil
}
