package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/config"
	"supplypulse/pkg/contracts/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(cfg config.SessionConfig) (*SessionStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := NewSessionStore(cfg, nil, nil)
	store.now = clock.Now
	return store, clock
}

func result(kind domain.DatasetKind) *Result {
	return &Result{Dashboard: &domain.Dashboard{Kind: kind}}
}

func TestResultKey(t *testing.T) {
	filter := domain.Filter{Category: "Pneus"}
	key := ResultKey("abc", filter, 10)

	assert.Equal(t, key, ResultKey("abc", filter, 10))
	assert.NotEqual(t, key, ResultKey("abd", filter, 10))
	assert.NotEqual(t, key, ResultKey("abc", domain.Filter{}, 10))
	assert.NotEqual(t, key, ResultKey("abc", filter, 5))
}

func TestSessionStoreEvictsOldestResult(t *testing.T) {
	s := newSession(2, time.Now())

	s.Store("a", result(domain.KindConsumption))
	s.Store("b", result(domain.KindConsumption))
	s.Store("a", result(domain.KindConsumption))
	s.Store("c", result(domain.KindConsumption))

	assert.Equal(t, 2, s.Len())
	_, ok := s.Lookup("a")
	assert.False(t, ok)
	_, ok = s.Lookup("c")
	assert.True(t, ok)
}

func TestSessionForget(t *testing.T) {
	s := newSession(0, time.Now())
	s.Store("c1", result(domain.KindConsumption))
	s.Store("s1", result(domain.KindStock))
	s.Store("c2", result(domain.KindConsumption))

	assert.Equal(t, 2, s.Forget(domain.KindConsumption))
	assert.Equal(t, 1, s.Len())
	_, ok := s.Lookup("s1")
	assert.True(t, ok)

	// order stays consistent with the map after removal
	s.Store("c3", result(domain.KindConsumption))
	assert.Equal(t, []string{"s1", "c3"}, s.order)
}

func TestSessionsAreIsolated(t *testing.T) {
	store, _ := newTestStore(config.SessionConfig{})
	ctx := context.Background()

	a, err := store.Create(ctx)
	require.NoError(t, err)
	b, err := store.Create(ctx)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	a.Store("k", result(domain.KindConsumption))
	_, ok := b.Lookup("k")
	assert.False(t, ok)
}

func TestSessionStoreGetAndDelete(t *testing.T) {
	store, _ := newTestStore(config.SessionConfig{})
	ctx := context.Background()

	s, err := store.Create(ctx)
	require.NoError(t, err)

	got, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, s.ID), ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStoreExpiry(t *testing.T) {
	store, clock := newTestStore(config.SessionConfig{TTL: time.Hour})
	ctx := context.Background()

	idle, err := store.Create(ctx)
	require.NoError(t, err)
	active, err := store.Create(ctx)
	require.NoError(t, err)

	clock.Advance(40 * time.Minute)
	_, err = store.Get(active.ID)
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	_, err = store.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, 1, store.Sweep(ctx))
	assert.Equal(t, 1, store.Len())
	_, err = store.Get(active.ID)
	assert.NoError(t, err)
}

func TestSessionStoreLimit(t *testing.T) {
	store, clock := newTestStore(config.SessionConfig{TTL: time.Hour, MaxSessions: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := store.Create(ctx)
		require.NoError(t, err)
	}
	_, err := store.Create(ctx)
	assert.ErrorIs(t, err, ErrSessionLimit)

	// expired sessions free their slots
	clock.Advance(2 * time.Hour)
	_, err = store.Create(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestSessionStoreForget(t *testing.T) {
	store, _ := newTestStore(config.SessionConfig{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := store.Create(ctx)
		require.NoError(t, err)
		s.Store(fmt.Sprintf("c%d", i), result(domain.KindConsumption))
		s.Store(fmt.Sprintf("p%d", i), result(domain.KindProcurement))
	}

	assert.Equal(t, 3, store.Forget(domain.KindProcurement))
	assert.Equal(t, 0, store.Forget(domain.KindProcurement))
}

func TestSessionStoreRunStopsWithContext(t *testing.T) {
	store, _ := newTestStore(config.SessionConfig{TTL: time.Nanosecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSessionConcurrentAccess(t *testing.T) {
	store, _ := newTestStore(config.SessionConfig{MaxResults: 8})
	s, err := store.Create(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			s.Store(key, result(domain.KindStock))
			s.Lookup(key)
			_, _ = store.Get(s.ID)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, s.Len())
}
