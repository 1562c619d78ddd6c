package ledger

import "context"

// Tx is a single database transaction. Lock* methods acquire a row lock
// (SELECT ... FOR UPDATE on the postgres backend) and must only ever be
// called in the global order Market -> Option -> Wallet -> User ->
// LpPosition/UserPosition (spec §4.B) — callers that need several rows
// acquire them in that sequence or risk deadlock under load.
//
// Get/List methods are plain reads and take no lock; they are used for
// read-only operations (price history, resolution summaries) that never
// need the ordering guarantee.
type Tx interface {
	LockMarket(ctx context.Context, marketID string) (*Market, error)
	LockOption(ctx context.Context, optionID string) (*Option, error)
	LockWallet(ctx context.Context, userID string) (*Wallet, error)
	LockUserPosition(ctx context.Context, userID, optionID string) (*UserPosition, error)
	LockLpPosition(ctx context.Context, userID, marketID string) (*LpPosition, error)

	SaveMarket(ctx context.Context, m *Market) error
	SaveOption(ctx context.Context, o *Option) error
	SaveWallet(ctx context.Context, w *Wallet) error
	SaveUserPosition(ctx context.Context, p *UserPosition) error
	SaveLpPosition(ctx context.Context, p *LpPosition) error
	DeleteLpPosition(ctx context.Context, userID, marketID string) error

	InsertTrade(ctx context.Context, t *Trade) error
	InsertSnapshot(ctx context.Context, s *PriceSnapshot) error
	InsertSubmission(ctx context.Context, s *ResolutionSubmission) error
	InsertDispute(ctx context.Context, d *Dispute) error

	GetMarket(ctx context.Context, marketID string) (*Market, error)
	GetOption(ctx context.Context, optionID string) (*Option, error)
	ListOptionsByMarket(ctx context.Context, marketID string) ([]*Option, error)
	GetUserPosition(ctx context.Context, userID, optionID string) (*UserPosition, error)
	ListUnclaimedPositionsByOption(ctx context.Context, optionID string) ([]*UserPosition, error)
	GetLpPosition(ctx context.Context, userID, marketID string) (*LpPosition, error)
	ListSubmissions(ctx context.Context, marketID string) ([]*ResolutionSubmission, error)
	ListSnapshots(ctx context.Context, optionID string, fromTS, toTS int64) ([]*PriceSnapshot, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens transactions and performs the handful of non-transactional
// administrative writes (market/option creation) that aren't money-moving
// operations and so don't need the serialized queue (§4.C).
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	CreateMarket(ctx context.Context, m *Market) error
	CreateOption(ctx context.Context, o *Option) error
}

// RetryableError is implemented by driver errors that internal/txrunner
// should retry (Postgres serialization_failure/deadlock_detected); plain
// errors and *apperr.Error are never retried.
type RetryableError interface {
	error
	Retryable() bool
}
