// Package session holds the per-client auth state: an immutable-snapshot Store
// with a fixed set of transitions, and a Sequencer that keeps at most one auth
// request in flight.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/ports"
)

// Store is the single source of truth for "who is signed in" within one
// client. Every read returns a fresh snapshot; every write goes through one of
// the transition methods below.
type Store struct {
	mu      sync.RWMutex
	current domain.Session
	cache   ports.CredentialCache
	log     zerolog.Logger

	subMu   sync.Mutex
	subs    map[int]func(domain.Session)
	nextSub int
}

// NewStore returns a Store in the idle, signed-out state. ClearUser also clears
// cache.
func NewStore(cache ports.CredentialCache, log zerolog.Logger) *Store {
	return &Store{
		current: domain.Session{Status: domain.Idle},
		cache:   cache,
		log:     log,
		subs:    make(map[int]func(domain.Session)),
	}
}

// Snapshot returns the current session.
func (s *Store) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.current)
}

// SetUser replaces the user wholesale and settles the status to idle.
func (s *Store) SetUser(user *domain.User) domain.Session {
	u := user.Clone()
	return s.apply(func(cur domain.Session) domain.Session {
		cur.User = u
		cur.Status = domain.Idle
		return cur
	})
}

// ClearUser signs the client out and removes the cached credential. Calling it
// on an already signed-out store leaves the snapshot untouched.
func (s *Store) ClearUser(ctx context.Context) domain.Session {
	snap := s.apply(func(cur domain.Session) domain.Session {
		cur.User = nil
		cur.Status = domain.Idle
		return cur
	})
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to clear cached credential")
		}
	}
	return snap
}

// SetStatus updates the status without touching the user.
func (s *Store) SetStatus(status domain.Status) domain.Session {
	return s.apply(func(cur domain.Session) domain.Session {
		cur.Status = status
		return cur
	})
}

// DismissError resets an error status to idle, but only when nothing happened
// since version. It reports whether the status was reset.
func (s *Store) DismissError(version uint64) bool {
	dismissed := false
	s.apply(func(cur domain.Session) domain.Session {
		if cur.Version != version || !cur.Status.IsError() {
			return cur
		}
		dismissed = true
		cur.Status = domain.Idle
		return cur
	})
	return dismissed
}

// Subscribe registers fn to receive the snapshot produced by every transition.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(domain.Session)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) apply(transition func(domain.Session) domain.Session) domain.Session {
	s.mu.Lock()
	next := transition(s.current)
	if sameState(s.current, next) {
		snap := clone(s.current)
		s.mu.Unlock()
		return snap
	}
	next.Version = s.current.Version + 1
	s.current = next
	snap := clone(next)
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

func (s *Store) notify(snap domain.Session) {
	s.subMu.Lock()
	fns := make([]func(domain.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(clone(snap))
	}
}

func sameState(a, b domain.Session) bool {
	if a.Status != b.Status {
		return false
	}
	switch {
	case a.User == nil && b.User == nil:
		return true
	case a.User == nil || b.User == nil:
		return false
	}
	return *a.User == *b.User
}

func clone(s domain.Session) domain.Session {
	s.User = s.User.Clone()
	return s
}
