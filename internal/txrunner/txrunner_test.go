package txrunner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
)

// retryableErr implements ledger.RetryableError for injecting a transient
// driver failure without depending on a real postgres connection.
type retryableErr struct{ msg string }

func (e retryableErr) Error() string   { return e.msg }
func (e retryableErr) Retryable() bool { return true }

// fakeStore begins a fakeTx on every call; it is not itself a real ledger,
// only a vehicle for driving the body through a handful of attempts.
type fakeStore struct {
	beginErr error
}

func (s *fakeStore) Begin(ctx context.Context) (ledger.Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &fakeTx{}, nil
}
func (s *fakeStore) CreateMarket(ctx context.Context, m *ledger.Market) error { return nil }
func (s *fakeStore) CreateOption(ctx context.Context, o *ledger.Option) error { return nil }

type fakeTx struct{ ledger.Tx }

func (t *fakeTx) Commit(ctx context.Context) error   { return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

func fastOptions() Options {
	return Options{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	store := &fakeStore{}
	ran := false
	err := WithTransaction(context.Background(), store, fastOptions(), func(ctx context.Context, tx ledger.Tx) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestWithTransaction_PermanentErrorNotRetried(t *testing.T) {
	store := &fakeStore{}
	attempts := 0
	wantErr := apperr.New(apperr.Validation, "bad input")
	err := WithTransaction(context.Background(), store, fastOptions(), func(ctx context.Context, tx ledger.Tx) error {
		attempts++
		return wantErr
	})
	require.Equal(t, wantErr, err)
	require.Equal(t, 1, attempts)
}

func TestWithTransaction_RetriesRetryableErrorThenSucceeds(t *testing.T) {
	store := &fakeStore{}
	attempts := 0
	err := WithTransaction(context.Background(), store, fastOptions(), func(ctx context.Context, tx ledger.Tx) error {
		attempts++
		if attempts < 3 {
			return retryableErr{msg: "serialization_failure"}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestWithTransaction_ExhaustsRetriesAndSurfacesConflict(t *testing.T) {
	store := &fakeStore{}
	attempts := 0
	err := WithTransaction(context.Background(), store, fastOptions(), func(ctx context.Context, tx ledger.Tx) error {
		attempts++
		return retryableErr{msg: "deadlock_detected"}
	})
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Conflict))
	require.Greater(t, attempts, 1)
}

func TestWithTransaction_BeginErrorNotRetryableIsPermanent(t *testing.T) {
	wantErr := errors.New("connection refused")
	store := &fakeStore{beginErr: wantErr}
	err := WithTransaction(context.Background(), store, fastOptions(), func(ctx context.Context, tx ledger.Tx) error {
		t.Fatal("body must not run when Begin fails")
		return nil
	})
	require.Equal(t, wantErr, err)
}
