// Package txrunner provides the retrying transaction primitive described
// in spec §4.B: WithTransaction runs a body against a row-locking
// ledger.Store, retrying only on a transient serialization/deadlock error
// and surfacing everything else (in particular *apperr.Error) immediately.
package txrunner

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/metrics"
)

// Options configures retry behavior. Zero value is invalid; use Default().
type Options struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Default returns the spec's baseline retry policy: up to 3 retries after the first attempt,
// exponential backoff with jitter between 50ms and 2s.
func Default() Options {
	return Options{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// Body is the unit of work run inside a single transaction attempt. It
// must acquire rows via tx.Lock* in the global order Market -> Option ->
// Wallet -> User -> LpPosition/UserPosition (§4.B).
type Body func(ctx context.Context, tx ledger.Tx) error

// WithTransaction begins a transaction, runs body, and commits. A body (or
// commit) error satisfying ledger.RetryableError with Retryable()==true is
// retried with exponential backoff up to opts.MaxRetries; any other error —
// notably an *apperr.Error — is returned immediately without retrying.
// Exhausting all retries surfaces apperr.Conflict.
func WithTransaction(ctx context.Context, store ledger.Store, opts Options, body Body) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.InitialBackoff
	bo.MaxInterval = opts.MaxBackoff
	bo.MaxElapsedTime = 0 // bounded by WithMaxRetries below, not wall clock
	withCtx := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxAttempts(opts))), ctx)

	var lastErr error
	op := func() error {
		tx, err := store.Begin(ctx)
		if err != nil {
			if isRetryable(err) {
				lastErr = err
				return err
			}
			return backoff.Permanent(err)
		}

		if bodyErr := body(ctx, tx); bodyErr != nil {
			_ = tx.Rollback(ctx)
			if isRetryable(bodyErr) {
				lastErr = bodyErr
				return bodyErr
			}
			return backoff.Permanent(bodyErr)
		}

		if commitErr := tx.Commit(ctx); commitErr != nil {
			if isRetryable(commitErr) {
				lastErr = commitErr
				return commitErr
			}
			return backoff.Permanent(commitErr)
		}

		return nil
	}

	attempt := 0
	wrapped := func() error {
		if attempt > 0 {
			metrics.TxRetries.Inc()
		}
		attempt++
		return op()
	}

	err := backoff.Retry(wrapped, withCtx)
	if err == nil {
		return nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	// backoff.Retry hands back a permanent error already unwrapped.
	if !isRetryable(err) {
		return err
	}

	// All retries exhausted on a retryable error: surface as Conflict per
	// spec §7 ("Concurrency errors ... if still failing, surface as Conflict").
	_ = lastErr
	return conflictError(err)
}

func maxAttempts(opts Options) int {
	if opts.MaxRetries <= 0 {
		return 3
	}
	return opts.MaxRetries
}

func isRetryable(err error) bool {
	var re ledger.RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return false
}
