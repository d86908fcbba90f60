package panel

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sessions holds one Panel per console session.
type Sessions struct {
	backend Backend
	now     func() time.Time

	mu     sync.Mutex
	panels map[string]*session
}

type session struct {
	panel    *Panel
	lastSeen time.Time
}

// NewSessions returns an empty registry whose panels use backend.
func NewSessions(backend Backend) *Sessions {
	return &Sessions{
		backend: backend,
		now:     time.Now,
		panels:  make(map[string]*session),
	}
}

// Get returns the panel for id, creating it if needed.
func (s *Sessions) Get(id string) *Panel {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.panels[id]
	if !ok {
		sess = &session{panel: New(s.backend)}
		s.panels[id] = sess
	}
	sess.lastSeen = s.now()
	return sess.panel
}

// Lookup returns the panel for id without creating one.
func (s *Sessions) Lookup(id string) (*Panel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.panels[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.panel, true
}

// Drop forgets the panel for id.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.panels, id)
}

// Len returns the number of live panels.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.panels)
}

// Sweep drops panels not used within idle and returns how many were dropped.
func (s *Sessions) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	n := 0
	for id, sess := range s.panels {
		if sess.lastSeen.Before(cutoff) {
			delete(s.panels, id)
			n++
		}
	}
	return n
}

// Run sweeps idle panels every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(idle); n > 0 {
				slog.Info("idle console sessions dropped", "count", n)
			}
		}
	}
}
