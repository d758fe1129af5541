package session

import (
	"context"
	"sync"
)

// Ticket identifies one auth request started through a Sequencer.
type Ticket struct {
	seq uint64
}

// Sequencer enforces an at-most-one-in-flight policy for auth requests.
// Starting a request cancels the previous one, and only the newest request
// may commit its result.
type Sequencer struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Begin supersedes any request in flight and returns the context the new
// request must run under.
func (q *Sequencer) Begin(parent context.Context) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		q.cancel()
	}
	q.seq++
	q.cancel = cancel
	return ctx, Ticket{seq: q.seq}
}

// Commit runs fn only if t is still the newest request. fn runs under the
// sequencer lock, so a newer Begin can't interleave with it.
func (q *Sequencer) Commit(t Ticket, fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t.seq != q.seq {
		return false
	}
	fn()
	return true
}

// End releases the context of t. Superseded tickets were already cancelled.
func (q *Sequencer) End(t Ticket) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t.seq == q.seq && q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}

// InFlight reports whether a request is currently running.
func (q *Sequencer) InFlight() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancel != nil
}
