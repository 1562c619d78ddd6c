// Package jobs is the small worker pool that runs the auto-credit task
// scheduled after a resolution commits (spec §4.E "Auto-credit on
// resolution" / §9 "represented as a scheduled job on a work queue").
// Jobs run outside any caller's request context and must be idempotent,
// since the scheduler may submit the same key twice.
package jobs

import (
	"context"

	"go.uber.org/zap"
)

// Pool runs submitted functions on a small fixed set of worker goroutines.
type Pool struct {
	work chan func(ctx context.Context)
	log  *zap.Logger
}

// NewPool starts workers worker goroutines draining a buffered queue.
func NewPool(workers int, log *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	p := &Pool{work: make(chan func(ctx context.Context), 256), log: log}
	for i := 0; i < workers; i++ {
		go p.loop()
	}
	return p
}

func (p *Pool) loop() {
	for fn := range p.work {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("job panicked", zap.Any("recover", r))
				}
			}()
			fn(context.Background())
		}()
	}
}

// Submit enqueues fn to run on a worker goroutine. Submit never blocks the
// caller's transaction: the channel is buffered and the queue is expected
// to drain faster than resolutions occur.
func (p *Pool) Submit(fn func(ctx context.Context)) {
	select {
	case p.work <- fn:
	default:
		// Queue saturated: run on a goroutine of its own rather than drop
		// the auto-credit job,
		// since a skipped auto-credit just means traders fall back to a
		// manual claim_winnings call — degraded, not lost.
		go fn(context.Background())
	}
}
