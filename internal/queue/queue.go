// Package queue implements the per-(market, option) FIFO serialization
// described in spec §4.C: before any money-moving operation enters its
// transaction, it is enqueued on a key so that at most one operation runs
// at a time for that key, eliminating intra-market races even before row
// locks are taken. Operations on different keys run fully in parallel.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/metrics"
)

// Key identifies a serialization lane. OptionID is empty for operations
// that only need market-level serialization (e.g. add_liquidity).
type Key struct {
	MarketID string
	OptionID string
}

// DefaultTimeout is the deadline an operation is given to be dequeued and
// run if the caller does not specify one (spec §4.C).
const DefaultTimeout = 30 * time.Second

type job struct {
	ctx      context.Context
	deadline time.Time
	fn       func(ctx context.Context) error
	result   chan error
}

type lane struct {
	jobs chan job
}

// Queue is a registry of per-key FIFO lanes, each drained by its own
// worker goroutine so that keys never block one another.
type Queue struct {
	mu    sync.Mutex
	lanes map[Key]*lane
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{lanes: make(map[Key]*lane)}
}

func (q *Queue) laneFor(key Key) *lane {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l, ok := q.lanes[key]; ok {
		return l
	}
	l := &lane{jobs: make(chan job, 128)}
	q.lanes[key] = l
	go q.drain(l)
	return l
}

func (q *Queue) drain(l *lane) {
	for j := range l.jobs {
		if time.Now().After(j.deadline) {
			metrics.QueueTimeouts.Inc()
			j.result <- apperr.New(apperr.QueueTimeout, "operation exceeded its queue deadline before running")
			continue
		}
		j.result <- j.fn(j.ctx)
	}
}

// Submit enqueues fn on key's lane and blocks until it runs (or the
// deadline implied by timeout passes, in which case it returns
// apperr.QueueTimeout without ever invoking fn). Once fn has started it
// runs to completion; Submit does not cancel in-flight work.
func (q *Queue) Submit(ctx context.Context, key Key, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	l := q.laneFor(key)

	result := make(chan error, 1)
	j := job{ctx: ctx, deadline: deadline, fn: fn, result: result}

	select {
	case l.jobs <- j:
	case <-ctx.Done():
		metrics.QueueTimeouts.Inc()
		return apperr.New(apperr.QueueTimeout, "context cancelled before operation was enqueued")
	case <-time.After(timeout):
		metrics.QueueTimeouts.Inc()
		return apperr.New(apperr.QueueTimeout, "queue is too backed up to accept this operation")
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		metrics.QueueTimeouts.Inc()
		return apperr.New(apperr.QueueTimeout, "context cancelled while operation was queued")
	}
}
