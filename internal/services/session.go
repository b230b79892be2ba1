package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"supplypulse/internal/config"
	"supplypulse/internal/infrastructure"
	"supplypulse/pkg/contracts/domain"
)

// Result is one computed dashboard together with the filtered records it
// was built from.
type Result struct {
	Dashboard *domain.Dashboard
	Records   *domain.Dataset
}

// ResultKey identifies a result by dataset content, filter and list size
func ResultKey(fingerprint string, filter domain.Filter, topN int) string {
	return fingerprint + "|" + filter.Key() + "|top=" + strconv.Itoa(topN)
}

// Session is the state of one client: its own cache of computed results.
// Sessions never share results; only the normalized datasets are shared.
type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`

	mu         sync.Mutex
	lastSeen   time.Time
	maxResults int
	results    map[string]*Result
	order      []string
}

func newSession(maxResults int, now time.Time) *Session {
	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		lastSeen:   now,
		maxResults: maxResults,
		results:    make(map[string]*Result),
	}
}

// Lookup returns the cached result for key
func (s *Session) Lookup(key string) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[key]
	return r, ok
}

// Store caches a result, evicting the oldest one when the session is full
func (s *Session) Store(key string, r *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[key]; !ok {
		s.order = append(s.order, key)
	}
	s.results[key] = r

	for s.maxResults > 0 && len(s.order) > s.maxResults {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
}

// Forget drops cached results of a dataset kind
func (s *Session) Forget(kind domain.DatasetKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	removed := 0
	for _, key := range s.order {
		if r := s.results[key]; r != nil && r.Dashboard.Kind == kind {
			delete(s.results, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	s.order = kept
	return removed
}

// Len returns the number of cached results
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionStore owns every open session
type SessionStore struct {
	mu       sync.Mutex
	cfg      config.SessionConfig
	sessions map[string]*Session
	now      func() time.Time
	metrics  *infrastructure.PipelineMetrics
	logger   *slog.Logger
}

// NewSessionStore creates an empty store. metrics may be nil.
func NewSessionStore(cfg config.SessionConfig, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}
	return &SessionStore{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		now:      time.Now,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "session_store")),
	}
}

// Create opens a new session. Expired sessions are swept first; the call
// fails when the store is still full.
func (st *SessionStore) Create(ctx context.Context) (*Session, error) {
	st.Sweep(ctx)

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.cfg.MaxSessions > 0 && len(st.sessions) >= st.cfg.MaxSessions {
		return nil, fmt.Errorf("%w: limit is %d", ErrSessionLimit, st.cfg.MaxSessions)
	}

	s := newSession(st.cfg.MaxResults, st.now())
	st.sessions[s.ID] = s
	st.metrics.ActiveSessions.Add(ctx, 1)

	st.logger.InfoContext(ctx, "Session created",
		slog.String("session_id", s.ID),
		slog.Int("open_sessions", len(st.sessions)))
	return s, nil
}

// Get returns a live session and marks it as used
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()

	now := st.now()
	if !ok || st.expired(s, now) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.touch(now)
	return s, nil
}

// Delete closes a session
func (st *SessionStore) Delete(ctx context.Context, id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(st.sessions, id)
	st.metrics.ActiveSessions.Add(ctx, -1)

	st.logger.InfoContext(ctx, "Session closed", slog.String("session_id", id))
	return nil
}

// Forget drops cached results of a dataset kind from every session
func (st *SessionStore) Forget(kind domain.DatasetKind) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for _, s := range st.sessions {
		removed += s.Forget(kind)
	}
	return removed
}

// Len returns the number of open sessions
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep closes sessions idle for longer than the TTL
func (st *SessionStore) Sweep(ctx context.Context) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for id, s := range st.sessions {
		if st.expired(s, now) {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.metrics.ActiveSessions.Add(ctx, int64(-removed))
		st.logger.InfoContext(ctx, "Expired sessions removed",
			slog.Int("removed", removed),
			slog.Int("open_sessions", len(st.sessions)))
	}
	return removed
}

// Run sweeps expired sessions every period until ctx is done
func (st *SessionStore) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep(ctx)
		}
	}
}

func (st *SessionStore) expired(s *Session, now time.Time) bool {
	return st.cfg.TTL > 0 && s.idleSince(now) > st.cfg.TTL
}
