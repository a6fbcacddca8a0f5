package numbering

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Session pool bounds used when no option overrides them
const (
	DefaultMaxSessions = 10000
	DefaultIdleTTL     = 30 * time.Minute
)

// Sessions hands out one Registry per caller scope, so counters cached for
// one session are never served to another and duplicate NextNumber calls
// are only collapsed within the same session. The pool holds at most
// maxSessions registries; the least recently used one is closed to make
// room, and registries idle for idleTTL are closed on the next lookup.
type Sessions struct {
	authority   Authority
	logger      *zap.Logger
	maxSessions int
	idleTTL     time.Duration
	now         func() time.Time

	mu         sync.Mutex
	registries *lru.Cache
}

type session struct {
	registry *Registry
	lastUsed time.Time
}

// SessionsOption configures Sessions
type SessionsOption func(*Sessions)

// WithMaxSessions caps the number of live registries
func WithMaxSessions(n int) SessionsOption {
	return func(s *Sessions) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithIdleTTL closes registries unused for d; zero keeps them until evicted by size
func WithIdleTTL(d time.Duration) SessionsOption {
	return func(s *Sessions) {
		if d >= 0 {
			s.idleTTL = d
		}
	}
}

// NewSessions creates an empty session pool
func NewSessions(authority Authority, logger *zap.Logger, opts ...SessionsOption) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sessions{
		authority:   authority,
		logger:      logger,
		maxSessions: DefaultMaxSessions,
		idleTTL:     DefaultIdleTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	// NewWithEvict only fails for a non-positive size
	s.registries, _ = lru.NewWithEvict(s.maxSessions, s.evicted)
	return s
}

func (s *Sessions) evicted(key, value interface{}) {
	value.(*session).registry.Close()
	s.logger.Debug("Closed numbering session", zap.String("scope", key.(string)))
}

// For returns the registry of scope, creating it on first use
func (s *Sessions) For(scope string) *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expire(now)
	if v, ok := s.registries.Get(scope); ok {
		entry := v.(*session)
		entry.lastUsed = now
		return entry.registry
	}
	r := NewRegistry(s.authority, s.logger.With(zap.String("scope", scope)))
	s.registries.Add(scope, &session{registry: r, lastUsed: now})
	return r
}

// expire closes registries idle for longer than idleTTL, oldest first
func (s *Sessions) expire(now time.Time) {
	if s.idleTTL <= 0 {
		return
	}
	for {
		key, v, ok := s.registries.GetOldest()
		if !ok || now.Sub(v.(*session).lastUsed) < s.idleTTL {
			return
		}
		s.registries.Remove(key)
	}
}

// Forget closes and drops the registry of scope
func (s *Sessions) Forget(scope string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registries.Remove(scope)
}

// Len returns the number of live registries
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registries.Len()
}

// Close closes every registry
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registries.Purge()
}
