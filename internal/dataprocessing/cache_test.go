package dataprocessing

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/shared/testutil"
	"supplypulse/pkg/contracts/domain"
)

// countingLoader wraps a Parser and counts ParseFile calls
type countingLoader struct {
	parser *Parser
	calls  int
}

func (l *countingLoader) ParseFile(ctx context.Context, path string, kind domain.DatasetKind) (*domain.Dataset, error) {
	l.calls++
	return l.parser.ParseFile(ctx, path, kind)
}

func writeConsumption(t *testing.T, amount float64) string {
	return testutil.WriteWorkbook(t, "consommation.xlsx", testutil.Sheet{
		Name: "Sheet1",
		Rows: testutil.Table(consumptionHeader,
			[]interface{}{"20240115", "ORG1", "Filtres", "Filtre huile", 1, amount},
		),
	})
}

func TestDatasetCacheLoadFile(t *testing.T) {
	ctx := context.Background()
	path := writeConsumption(t, 100)

	loader := &countingLoader{parser: NewParser(DefaultParserOptions(), nil)}
	cache := NewDatasetCache(loader, nil)

	first, hit, err := cache.LoadFile(ctx, domain.KindConsumption, path)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := cache.LoadFile(ctx, domain.KindConsumption, path)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.calls)

	t.Run("modified file is reloaded", func(t *testing.T) {
		later := time.Now().Add(time.Minute)
		require.NoError(t, os.Chtimes(path, later, later))

		third, hit, err := cache.LoadFile(ctx, domain.KindConsumption, path)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.NotSame(t, first, third)
		assert.Equal(t, 2, loader.calls)
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		assert.Equal(t, 1, cache.Invalidate(domain.KindConsumption))
		assert.Equal(t, 0, cache.Invalidate(domain.KindStock))
		assert.Equal(t, 0, cache.Len())

		_, hit, err := cache.LoadFile(ctx, domain.KindConsumption, path)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, 3, loader.calls)
	})
}

func TestDatasetCacheMissingFile(t *testing.T) {
	cache := NewDatasetCache(&countingLoader{parser: NewParser(DefaultParserOptions(), nil)}, nil)

	_, _, err := cache.LoadFile(context.Background(), domain.KindConsumption, "missing.xlsx")
	var srcErr *domain.SourceError
	assert.True(t, errors.As(err, &srcErr))
}

func TestDatasetCacheRememberSkipsFailures(t *testing.T) {
	ctx := context.Background()
	cache := NewDatasetCache(nil, nil)

	boom := errors.New("boom")
	_, _, err := cache.Remember(ctx, domain.KindStock, "mem", "v1", func(context.Context) (*domain.Dataset, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())

	ds := domain.NewDataset(domain.KindStock, "mem", "fp", nil, nil)
	loads := 0
	load := func(context.Context) (*domain.Dataset, error) {
		loads++
		return ds, nil
	}

	_, hit, err := cache.Remember(ctx, domain.KindStock, "mem", "v1", load)
	require.NoError(t, err)
	assert.False(t, hit)

	got, hit, err := cache.Remember(ctx, domain.KindStock, "mem", "v1", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, ds, got)

	_, hit, err = cache.Remember(ctx, domain.KindStock, "mem", "v2", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, loads)

	cache.InvalidateAll()
	assert.Equal(t, 0, cache.Len())
}

func TestDatasetCacheLoadDoesNotBlockOtherKeys(t *testing.T) {
	ctx := context.Background()
	cache := NewDatasetCache(nil, nil)

	consumption := domain.NewDataset(domain.KindConsumption, "conso", "fp1", nil, nil)
	_, _, err := cache.Remember(ctx, domain.KindConsumption, "conso", "v1", func(context.Context) (*domain.Dataset, error) {
		return consumption, nil
	})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, _, err := cache.Remember(ctx, domain.KindStock, "stock", "v1", func(context.Context) (*domain.Dataset, error) {
			close(started)
			<-release
			return domain.NewDataset(domain.KindStock, "stock", "fp2", nil, nil), nil
		})
		done <- err
	}()
	<-started

	hitDone := make(chan struct{})
	go func() {
		defer close(hitDone)
		got, hit, err := cache.Remember(ctx, domain.KindConsumption, "conso", "v1", nil)
		assert.NoError(t, err)
		assert.True(t, hit)
		assert.Same(t, consumption, got)
		assert.Equal(t, 1, cache.Len())
	}()

	select {
	case <-hitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("cache hit waited for an unrelated load")
	}

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, cache.Len())
}

func TestDatasetCacheCollapsesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	cache := NewDatasetCache(nil, nil)

	var loads atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	ds := domain.NewDataset(domain.KindStock, "stock", "fp", nil, nil)
	load := func(context.Context) (*domain.Dataset, error) {
		if loads.Add(1) == 1 {
			close(started)
		}
		<-release
		return ds, nil
	}

	var wg sync.WaitGroup
	results := make([]*domain.Dataset, 4)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, _ = cache.Remember(ctx, domain.KindStock, "stock", "v1", load)
	}()
	<-started
	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, _ = cache.Remember(ctx, domain.KindStock, "stock", "v1", load)
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, got := range results {
		assert.Same(t, ds, got)
	}
}

func TestDatasetCacheInvalidateDuringLoad(t *testing.T) {
	ctx := context.Background()
	cache := NewDatasetCache(nil, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		got, hit, err := cache.Remember(ctx, domain.KindStock, "stock", "v1", func(context.Context) (*domain.Dataset, error) {
			close(started)
			<-release
			return domain.NewDataset(domain.KindStock, "stock", "fp", nil, nil), nil
		})
		assert.NoError(t, err)
		assert.False(t, hit)
		assert.NotNil(t, got)
	}()

	<-started
	assert.Equal(t, 0, cache.Invalidate(domain.KindStock))
	close(release)
	<-done

	assert.Equal(t, 0, cache.Len(), "a load that raced an invalidation is not cached")
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(domain.KindConsumption, []byte("data"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint(domain.KindConsumption, []byte("data")))
	assert.NotEqual(t, a, Fingerprint(domain.KindStock, []byte("data")))
	assert.NotEqual(t, a, Fingerprint(domain.KindConsumption, []byte("other")))

	r1 := FingerprintRows(domain.KindStock, [][]string{{"a", "b"}})
	r2 := FingerprintRows(domain.KindStock, [][]string{{"ab"}})
	assert.NotEqual(t, r1, r2)
}
