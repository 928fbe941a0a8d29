package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nekogravitycat/user-directory/internal/boundary"
	"github.com/nekogravitycat/user-directory/internal/pkg/metrics"
	"github.com/nekogravitycat/user-directory/internal/user"
)

// DefaultSessionTTL is how long an untouched session stays mounted.
const DefaultSessionTTL = 15 * time.Minute

var ErrSessionNotFound = errors.New("view session not found")

// LoadFunc fetches the dataset for a session.
type LoadFunc func(ctx context.Context) ([]user.User, error)

// Session is one mounted Engine. Events are applied one at a time.
type Session struct {
	id       string
	mu       sync.Mutex
	engine   *Engine
	boundary *boundary.Boundary
	seen     time.Time
	cancel   context.CancelFunc
	loaded   chan struct{}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Boundary returns the error boundary that guards this session's rendering, or nil.
func (s *Session) Boundary() *boundary.Boundary {
	return s.boundary
}

// Do runs fn with exclusive access to the engine.
func (s *Session) Do(fn func(e *Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// Snapshot returns the current Result.
func (s *Session) Snapshot() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// Loaded is closed once the initial fetch has been resolved or abandoned.
func (s *Session) Loaded() <-chan struct{} {
	return s.loaded
}

// SessionsConfig holds the settings for a Sessions registry.
type SessionsConfig struct {
	TTL     time.Duration
	PerPage int
	// Boundary, when set, creates the render boundary of each new session.
	Boundary func(sessionID string) *boundary.Boundary
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Sessions is the registry of mounted view sessions.
type Sessions struct {
	mu       sync.Mutex
	items    map[string]*Session
	ttl      time.Duration
	perPage  int
	boundary func(string) *boundary.Boundary
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

// NewSessions creates an empty registry.
func NewSessions(cfg SessionsConfig) *Sessions {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sessions{
		items:    make(map[string]*Session),
		ttl:      ttl,
		perPage:  cfg.PerPage,
		boundary: cfg.Boundary,
		now:      time.Now,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
}

// Mount creates a session and starts its fetch in the background.
// The fetch outlives the calling request; it ends when it completes or the session is unmounted.
func (m *Sessions) Mount(load LoadFunc) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     uuid.NewString(),
		engine: NewEngine(m.perPage),
		cancel: cancel,
		loaded: make(chan struct{}),
	}
	if m.boundary != nil {
		s.boundary = m.boundary(s.id)
	}
	// Not yet published, so no lock is needed.
	ticket := s.engine.BeginFetch()

	m.mu.Lock()
	s.seen = m.now()
	m.items[s.id] = s
	n := len(m.items)
	m.mu.Unlock()
	m.metrics.SetViewSessions(n)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(s.loaded)

		users, err := load(ctx)
		_ = s.Do(func(e *Engine) error {
			if !e.Resolve(ticket, users, err) {
				m.logger.Debug("discarded stale view fetch", zap.String("session_id", s.id))
			}
			return nil
		})
	}()

	return s
}

// Get returns the session with id and refreshes its idle timer.
func (m *Sessions) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := m.now()
	if now.Sub(s.seen) > m.ttl {
		m.removeLocked(s)
		return nil, ErrSessionNotFound
	}
	s.seen = now
	return s, nil
}

// Unmount removes the session and abandons its in-flight fetch.
func (m *Sessions) Unmount(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.items[id]
	if !ok {
		return ErrSessionNotFound
	}
	m.removeLocked(s)
	return nil
}

// Len returns the number of mounted sessions.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Sweep unmounts sessions idle for longer than the TTL and returns how many were removed.
func (m *Sessions) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, s := range m.items {
		if now.Sub(s.seen) > m.ttl {
			m.removeLocked(s)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("expired view sessions", zap.Int("count", n))
			}
		}
	}
}

// Close unmounts every session and waits for their fetches to return.
func (m *Sessions) Close() {
	m.mu.Lock()
	for _, s := range m.items {
		m.removeLocked(s)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// removeLocked must be called with m.mu held.
func (m *Sessions) removeLocked(s *Session) {
	delete(m.items, s.id)
	// Unmount first so the cancelled fetch cannot commit its error.
	_ = s.Do(func(e *Engine) error {
		e.Unmount()
		return nil
	})
	s.cancel()
	m.metrics.SetViewSessions(len(m.items))
}
