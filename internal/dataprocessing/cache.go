package dataprocessing

import (
	"context"
	"encoding/hex"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"supplypulse/pkg/contracts/domain"
)

// Fingerprint hashes raw source content together with the dataset kind
func Fingerprint(kind domain.DatasetKind, data []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FingerprintRows hashes an in-memory table
func FingerprintRows(kind domain.DatasetKind, rows [][]string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(kind))
	for _, row := range rows {
		h.Write([]byte{0x1e})
		for _, cell := range row {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FileLoader parses a workbook on disk
type FileLoader interface {
	ParseFile(ctx context.Context, path string, kind domain.DatasetKind) (*domain.Dataset, error)
}

type cacheEntry struct {
	dataset *domain.Dataset
	stamp   string
}

// DatasetCache memoizes normalized Datasets by source identity. Entries are
// replaced wholesale when the source changes or is invalidated; cached
// Datasets are shared read-only. Loads run outside the lock, and concurrent
// loads of the same source version are collapsed into one.
type DatasetCache struct {
	mu      sync.Mutex
	loader  FileLoader
	entries map[string]cacheEntry
	gen     uint64
	flight  singleflight.Group
	logger  *slog.Logger
}

// NewDatasetCache creates an empty cache backed by loader
func NewDatasetCache(loader FileLoader, logger *slog.Logger) *DatasetCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetCache{
		loader:  loader,
		entries: make(map[string]cacheEntry),
		logger:  logger.With(slog.String("component", "dataset_cache")),
	}
}

func cacheKey(kind domain.DatasetKind, identity string) string {
	return string(kind) + "|" + identity
}

// LoadFile returns the Dataset for a workbook, parsing it only when the file
// size or modification time differs from the cached copy. hit reports
// whether the cached Dataset was reused.
func (c *DatasetCache) LoadFile(ctx context.Context, kind domain.DatasetKind, path string) (ds *domain.Dataset, hit bool, err error) {
	stamp, err := FileStamp(path)
	if err != nil {
		return nil, false, err
	}
	return c.Remember(ctx, kind, path, stamp, func(ctx context.Context) (*domain.Dataset, error) {
		return c.loader.ParseFile(ctx, path, kind)
	})
}

// FileStamp identifies the on-disk version of a file by modification time
// and size.
func FileStamp(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &domain.SourceError{Source: path, Err: err}
	}
	return info.ModTime().UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatInt(info.Size(), 10), nil
}

// Remember returns the cached Dataset for identity when its stamp matches,
// otherwise calls load and caches the result. Failed loads are not cached.
// Callers waiting on another caller's load of the same stamp share its
// result and report a hit.
func (c *DatasetCache) Remember(ctx context.Context, kind domain.DatasetKind, identity, stamp string, load func(context.Context) (*domain.Dataset, error)) (*domain.Dataset, bool, error) {
	key := cacheKey(kind, identity)
	if ds, ok := c.lookup(key, stamp); ok {
		c.logger.DebugContext(ctx, "Dataset cache hit",
			slog.String("kind", string(kind)),
			slog.String("source", identity))
		return ds, true, nil
	}

	v, err, shared := c.flight.Do(key+"#"+stamp, func() (interface{}, error) {
		if ds, ok := c.lookup(key, stamp); ok {
			return ds, nil
		}

		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()

		ds, err := load(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			if e, ok := c.entries[key]; ok && e.stamp != stamp {
				delete(c.entries, key)
			}
			return nil, err
		}
		// an invalidation during the load makes the result stale
		if gen != c.gen {
			c.logger.DebugContext(ctx, "Dataset invalidated during load",
				slog.String("kind", string(kind)),
				slog.String("source", identity))
			return ds, nil
		}
		c.entries[key] = cacheEntry{dataset: ds, stamp: stamp}

		c.logger.InfoContext(ctx, "Dataset cached",
			slog.String("kind", string(kind)),
			slog.String("source", identity),
			slog.String("fingerprint", ds.Fingerprint()),
			slog.Int("records", ds.Len()))
		return ds, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*domain.Dataset), shared, nil
}

func (c *DatasetCache) lookup(key, stamp string) (*domain.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.stamp == stamp {
		return e.dataset, true
	}
	return nil, false
}

// Invalidate drops every cached Dataset of a kind
func (c *DatasetCache) Invalidate(kind domain.DatasetKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	removed := 0
	prefix := string(kind) + "|"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// InvalidateAll empties the cache
func (c *DatasetCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached Datasets
func (c *DatasetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
