package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rishabhv97/kiwisqft/internal/models"
)

// ErrSuperseded is returned by Sessions.Run when a newer search for the same
// session started before this one finished. The result has been discarded.
var ErrSuperseded = errors.New("search superseded by a newer request")

// FetchFunc executes a query against the store.
type FetchFunc func(ctx context.Context, q Query) ([]models.Listing, error)

type session struct {
	seq      uint64
	cancel   context.CancelFunc
	lastKey  string
	lastSeen time.Time
}

// Sessions tracks the in-flight search of each browsing session so that only
// the latest request of a session ever delivers results.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	idle     time.Duration
	now      func() time.Time
}

// NewSessions creates a registry that forgets sessions idle for longer than idle.
func NewSessions(idle time.Duration) *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		idle:     idle,
		now:      time.Now,
	}
}

// Run executes fetch for q on behalf of session id. Any earlier run of the
// same session still in flight is cancelled and will return ErrSuperseded.
// An empty id runs fetch directly with no supersession tracking.
func (s *Sessions) Run(ctx context.Context, id string, q Query, fetch FetchFunc) ([]models.Listing, error) {
	if id == "" {
		return fetch(ctx, q)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	if sess.cancel != nil {
		sess.cancel()
	}
	sess.seq++
	mine := sess.seq
	sess.cancel = cancel
	sess.lastKey = q.Key()
	sess.lastSeen = s.now()
	s.mu.Unlock()

	listings, err := fetch(runCtx, q)

	s.mu.Lock()
	current := sess.seq == mine
	if current {
		sess.cancel = nil
	}
	s.mu.Unlock()

	if !current {
		return nil, ErrSuperseded
	}
	return listings, err
}

// Changed reports whether q differs from the last query run for session id.
func (s *Sessions) Changed(id string, q Query) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return !ok || sess.lastKey != q.Key()
}

// Len returns the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions with no run in flight that have been idle too long.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.idle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.cancel == nil && sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps idle sessions every interval until ctx is done.
func (s *Sessions) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					slog.Debug("swept idle search sessions", "count", n)
				}
			}
		}
	}()
}
