package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
)

// Compile-time assertion that Store/tx still satisfy ledger.Store/ledger.Tx.
var (
	_ ledger.Store = (*Store)(nil)
	_ ledger.Tx    = (*tx)(nil)
)

func TestWrapExecErr_SerializationFailureIsRetryable(t *testing.T) {
	err := wrapExecErr(&pgconn.PgError{Code: sqlstateSerializationFailure}, "insert")
	var re ledger.RetryableError
	require.True(t, errors.As(err, &re))
	require.True(t, re.Retryable())
}

func TestWrapExecErr_DeadlockIsRetryable(t *testing.T) {
	err := wrapExecErr(&pgconn.PgError{Code: sqlstateDeadlockDetected}, "update")
	var re ledger.RetryableError
	require.True(t, errors.As(err, &re))
	require.True(t, re.Retryable())
}

func TestWrapExecErr_OtherPgErrorIsConflict(t *testing.T) {
	err := wrapExecErr(&pgconn.PgError{Code: "23505"}, "insert")
	require.True(t, apperr.Is(err, apperr.Conflict))
	var re ledger.RetryableError
	require.False(t, errors.As(err, &re))
}

func TestWrapExecErr_Nil(t *testing.T) {
	require.NoError(t, wrapExecErr(nil, "noop"))
}

func TestWrapQueryErr_NoRowsBecomesNotFound(t *testing.T) {
	err := wrapQueryErr(pgx.ErrNoRows, "market", "m1")
	require.True(t, apperr.Is(err, apperr.NotFound))
}
