// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/docmorph/internal/convert"
)

// Manager owns one Session per browser and evicts sessions that have been
// settled and untouched for longer than the TTL.
type Manager struct {
	converter convert.Converter
	ttl       time.Duration
	opts      []Option
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	converting atomic.Int64
}

// NewManager creates a Manager. opts are applied to every session it creates.
func NewManager(c convert.Converter, ttl time.Duration, logger zerolog.Logger, opts ...Option) *Manager {
	return &Manager{
		converter: c,
		ttl:       ttl,
		opts:      append([]Option{WithLogger(logger)}, opts...),
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Get returns the session with id, if it exists.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetOrCreate returns the session with id, creating a new one under a fresh
// UUID when id is empty or unknown.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok && id != "" {
		return s
	}
	s := New(uuid.NewString(), m.converter, m.opts...)
	s.OnTransition(m.track)
	m.sessions[s.ID()] = s
	m.logger.Debug().Str("session", s.ID()).Msg("session created")
	return s
}

// track counts conversions entering and leaving flight.
func (m *Manager) track(t Transition) {
	switch {
	case t.From.Settled() && !t.To.Settled():
		m.converting.Add(1)
	case !t.From.Settled() && t.To.Settled():
		m.converting.Add(-1)
		m.logger.Debug().Str("session", t.SessionID).Str("status", string(t.To)).Msg("conversion settled")
	}
}

// Converting returns the number of conversions currently reading or processing.
func (m *Manager) Converting() int {
	return int(m.converting.Load())
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts settled sessions idle for longer than the TTL and returns how
// many were removed. A session with a conversion in flight is never evicted.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.Status().Settled() && s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug().Int("evicted", removed).Int("remaining", len(m.sessions)).Msg("session sweep")
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
