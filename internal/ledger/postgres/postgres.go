// Package postgres is the pgx/v5-backed ledger.Store. Row locking uses
// SELECT ... FOR UPDATE inside a pgxpool.Tx, the same pattern the pack's
// order-execution services use for locking rows before mutating balances
// (other_examples "order_execution.go": tx.QueryRow(... FOR UPDATE ...)).
// Serialization-failure and deadlock SQLSTATEs are wrapped as a
// RetryableError so internal/txrunner can retry them transparently.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
)

// Postgres SQLSTATEs that indicate a transient conflict safe to retry.
const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
)

// Store is a pgxpool-backed ledger.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool against connString (e.g. config.Config.DatabaseURL).
func Connect(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, apperr.Wrap(apperr.Conflict, err, "failed to connect to postgres")
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

func (s *Store) CreateMarket(ctx context.Context, m *ledger.Market) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO markets
			(id, creator_id, question, expiration_ts, shared_pool_liquidity,
			 accumulated_lp_fees, total_lp_shares, reserved_liquidity,
			 liquidity_param_b, base_liquidity_param_b0, resolution_mode,
			 status, is_initialized, total_volume)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		m.ID, m.CreatorID, m.Question, m.ExpirationTS, m.SharedPoolLiquidity,
		m.AccumulatedLPFees, m.TotalLPShares, m.ReservedLiquidity,
		m.LiquidityParamB, m.BaseLiquidityParamB0, m.ResolutionMode,
		m.Status, m.IsInitialized, m.TotalVolume)
	return wrapExecErr(err, "insert market")
}

func (s *Store) CreateOption(ctx context.Context, o *ledger.Option) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO options (id, market_id, label, yes_quantity, no_quantity, is_resolved)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.MarketID, o.Label, o.YesQuantity, o.NoQuantity, o.IsResolved)
	return wrapExecErr(err, "insert option")
}

// Begin opens a pgx transaction at the default (read committed) isolation
// level; conflicting row locks are what actually serializes concurrent
// writers, per spec §4.B.
func (s *Store) Begin(ctx context.Context) (ledger.Tx, error) {
	pgxTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, wrapExecErr(err, "begin transaction")
	}
	return &tx{pgxTx: pgxTx}, nil
}

type tx struct {
	pgxTx pgx.Tx
}

func (t *tx) LockMarket(ctx context.Context, marketID string) (*ledger.Market, error) {
	m := &ledger.Market{}
	err := t.pgxTx.QueryRow(ctx, `
		SELECT id, creator_id, question, expiration_ts, shared_pool_liquidity,
		       accumulated_lp_fees, total_lp_shares, reserved_liquidity,
		       liquidity_param_b, base_liquidity_param_b0, resolution_mode,
		       status, is_initialized, total_volume
		FROM markets WHERE id = $1 FOR UPDATE`, marketID).Scan(
		&m.ID, &m.CreatorID, &m.Question, &m.ExpirationTS, &m.SharedPoolLiquidity,
		&m.AccumulatedLPFees, &m.TotalLPShares, &m.ReservedLiquidity,
		&m.LiquidityParamB, &m.BaseLiquidityParamB0, &m.ResolutionMode,
		&m.Status, &m.IsInitialized, &m.TotalVolume)
	if err != nil {
		return nil, wrapQueryErr(err, "market", marketID)
	}
	return m, nil
}

func (t *tx) LockOption(ctx context.Context, optionID string) (*ledger.Option, error) {
	o := &ledger.Option{}
	err := t.pgxTx.QueryRow(ctx, `
		SELECT id, market_id, label, yes_quantity, no_quantity, is_resolved,
		       winning_side, resolved_ts, resolved_by, dispute_deadline_ts
		FROM options WHERE id = $1 FOR UPDATE`, optionID).Scan(
		&o.ID, &o.MarketID, &o.Label, &o.YesQuantity, &o.NoQuantity, &o.IsResolved,
		&o.WinningSide, &o.ResolvedTS, &o.ResolvedBy, &o.DisputeDeadlineTS)
	if err != nil {
		return nil, wrapQueryErr(err, "option", optionID)
	}
	return o, nil
}

func (t *tx) LockWallet(ctx context.Context, userID string) (*ledger.Wallet, error) {
	w := &ledger.Wallet{UserID: userID}
	err := t.pgxTx.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID).Scan(&w.Balance)
	if err == pgx.ErrNoRows {
		_, insErr := t.pgxTx.Exec(ctx,
			`INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
			 ON CONFLICT (user_id) DO NOTHING`, userID)
		if insErr != nil {
			return nil, wrapExecErr(insErr, "create wallet")
		}
		return w, nil
	}
	if err != nil {
		return nil, wrapQueryErr(err, "wallet", userID)
	}
	return w, nil
}

func (t *tx) LockUserPosition(ctx context.Context, userID, optionID string) (*ledger.UserPosition, error) {
	p := &ledger.UserPosition{UserID: userID, OptionID: optionID}
	err := t.pgxTx.QueryRow(ctx, `
		SELECT yes_shares, no_shares, total_yes_cost, total_no_cost, realized_pnl, is_claimed
		FROM user_positions WHERE user_id = $1 AND option_id = $2 FOR UPDATE`,
		userID, optionID).Scan(
		&p.YesShares, &p.NoShares, &p.TotalYesCost, &p.TotalNoCost, &p.RealizedPnL, &p.IsClaimed)
	if err == pgx.ErrNoRows {
		return p, nil
	}
	if err != nil {
		return nil, wrapQueryErr(err, "user_position", userID+"/"+optionID)
	}
	return p, nil
}

func (t *tx) LockLpPosition(ctx context.Context, userID, marketID string) (*ledger.LpPosition, error) {
	p := &ledger.LpPosition{UserID: userID, MarketID: marketID}
	err := t.pgxTx.QueryRow(ctx, `
		SELECT shares, deposited_amount
		FROM lp_positions WHERE user_id = $1 AND market_id = $2 FOR UPDATE`,
		userID, marketID).Scan(&p.Shares, &p.DepositedAmount)
	if err == pgx.ErrNoRows {
		return p, nil
	}
	if err != nil {
		return nil, wrapQueryErr(err, "lp_position", userID+"/"+marketID)
	}
	return p, nil
}

func (t *tx) SaveMarket(ctx context.Context, m *ledger.Market) error {
	_, err := t.pgxTx.Exec(ctx, `
		UPDATE markets SET
			shared_pool_liquidity=$2, accumulated_lp_fees=$3, total_lp_shares=$4,
			reserved_liquidity=$5, liquidity_param_b=$6, base_liquidity_param_b0=$7,
			status=$8, is_initialized=$9, total_volume=$10
		WHERE id=$1`,
		m.ID, m.SharedPoolLiquidity, m.AccumulatedLPFees, m.TotalLPShares,
		m.ReservedLiquidity, m.LiquidityParamB, m.BaseLiquidityParamB0,
		m.Status, m.IsInitialized, m.TotalVolume)
	return wrapExecErr(err, "update market")
}

func (t *tx) SaveOption(ctx context.Context, o *ledger.Option) error {
	_, err := t.pgxTx.Exec(ctx, `
		UPDATE options SET
			yes_quantity=$2, no_quantity=$3, is_resolved=$4,
			winning_side=$5, resolved_ts=$6, resolved_by=$7, dispute_deadline_ts=$8
		WHERE id=$1`,
		o.ID, o.YesQuantity, o.NoQuantity, o.IsResolved,
		o.WinningSide, o.ResolvedTS, o.ResolvedBy, o.DisputeDeadlineTS)
	return wrapExecErr(err, "update option")
}

func (t *tx) SaveWallet(ctx context.Context, w *ledger.Wallet) error {
	_, err := t.pgxTx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance`,
		w.UserID, w.Balance)
	return wrapExecErr(err, "upsert wallet")
}

func (t *tx) SaveUserPosition(ctx context.Context, p *ledger.UserPosition) error {
	_, err := t.pgxTx.Exec(ctx, `
		INSERT INTO user_positions
			(user_id, option_id, yes_shares, no_shares, total_yes_cost, total_no_cost, realized_pnl, is_claimed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (user_id, option_id) DO UPDATE SET
			yes_shares=EXCLUDED.yes_shares, no_shares=EXCLUDED.no_shares,
			total_yes_cost=EXCLUDED.total_yes_cost, total_no_cost=EXCLUDED.total_no_cost,
			realized_pnl=EXCLUDED.realized_pnl, is_claimed=EXCLUDED.is_claimed`,
		p.UserID, p.OptionID, p.YesShares, p.NoShares, p.TotalYesCost, p.TotalNoCost, p.RealizedPnL, p.IsClaimed)
	return wrapExecErr(err, "upsert user_position")
}

func (t *tx) SaveLpPosition(ctx context.Context, p *ledger.LpPosition) error {
	_, err := t.pgxTx.Exec(ctx, `
		INSERT INTO lp_positions (user_id, market_id, shares, deposited_amount)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, market_id) DO UPDATE SET
			shares=EXCLUDED.shares, deposited_amount=EXCLUDED.deposited_amount`,
		p.UserID, p.MarketID, p.Shares, p.DepositedAmount)
	return wrapExecErr(err, "upsert lp_position")
}

func (t *tx) DeleteLpPosition(ctx context.Context, userID, marketID string) error {
	_, err := t.pgxTx.Exec(ctx,
		`DELETE FROM lp_positions WHERE user_id = $1 AND market_id = $2`, userID, marketID)
	return wrapExecErr(err, "delete lp_position")
}

func (t *tx) InsertTrade(ctx context.Context, tr *ledger.Trade) error {
	_, err := t.pgxTx.Exec(ctx, `
		INSERT INTO trades
			(id, user_id, market_id, option_id, type, side, quantity, price_per_share, total_cost, fees_paid, status, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		tr.ID, tr.UserID, tr.MarketID, tr.OptionID, tr.Type, tr.Side,
		tr.Quantity, tr.PricePerShare, tr.TotalCost, tr.FeesPaid, tr.Status, tr.TS)
	return wrapExecErr(err, "insert trade")
}

func (t *tx) InsertSnapshot(ctx context.Context, s *ledger.PriceSnapshot) error {
	_, err := t.pgxTx.Exec(ctx, `
		INSERT INTO price_snapshots
			(id, option_id, ts, yes_price, no_price, yes_qty, no_qty, volume, snapshot_type, trade_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		s.ID, s.OptionID, s.TS, s.YesPrice, s.NoPrice, s.YesQty, s.NoQty, s.Volume, s.SnapshotType, s.TradeID)
	return wrapExecErr(err, "insert snapshot")
}

func (t *tx) InsertSubmission(ctx context.Context, s *ledger.ResolutionSubmission) error {
	_, err := t.pgxTx.Exec(ctx, `
		INSERT INTO resolution_submissions
			(id, market_id, option_id, user_id, outcome, evidence, submitted_ts, signature)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.MarketID, s.OptionID, s.UserID, s.Outcome, s.Evidence, s.SubmittedTS, s.Signature)
	return wrapExecErr(err, "insert resolution submission")
}

func (t *tx) InsertDispute(ctx context.Context, d *ledger.Dispute) error {
	_, err := t.pgxTx.Exec(ctx, `
		INSERT INTO disputes
			(id, market_id, option_id, user_id, reason, evidence, resolution_fee_paid, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.MarketID, d.OptionID, d.UserID, d.Reason, d.Evidence, d.ResolutionFeePaid, d.TS)
	return wrapExecErr(err, "insert dispute")
}

func (t *tx) GetMarket(ctx context.Context, marketID string) (*ledger.Market, error) {
	m := &ledger.Market{}
	err := t.pgxTx.QueryRow(ctx, `
		SELECT id, creator_id, question, expiration_ts, shared_pool_liquidity,
		       accumulated_lp_fees, total_lp_shares, reserved_liquidity,
		       liquidity_param_b, base_liquidity_param_b0, resolution_mode,
		       status, is_initialized, total_volume
		FROM markets WHERE id = $1`, marketID).Scan(
		&m.ID, &m.CreatorID, &m.Question, &m.ExpirationTS, &m.SharedPoolLiquidity,
		&m.AccumulatedLPFees, &m.TotalLPShares, &m.ReservedLiquidity,
		&m.LiquidityParamB, &m.BaseLiquidityParamB0, &m.ResolutionMode,
		&m.Status, &m.IsInitialized, &m.TotalVolume)
	if err != nil {
		return nil, wrapQueryErr(err, "market", marketID)
	}
	return m, nil
}

func (t *tx) GetOption(ctx context.Context, optionID string) (*ledger.Option, error) {
	o := &ledger.Option{}
	err := t.pgxTx.QueryRow(ctx, `
		SELECT id, market_id, label, yes_quantity, no_quantity, is_resolved,
		       winning_side, resolved_ts, resolved_by, dispute_deadline_ts
		FROM options WHERE id = $1`, optionID).Scan(
		&o.ID, &o.MarketID, &o.Label, &o.YesQuantity, &o.NoQuantity, &o.IsResolved,
		&o.WinningSide, &o.ResolvedTS, &o.ResolvedBy, &o.DisputeDeadlineTS)
	if err != nil {
		return nil, wrapQueryErr(err, "option", optionID)
	}
	return o, nil
}

func (t *tx) ListOptionsByMarket(ctx context.Context, marketID string) ([]*ledger.Option, error) {
	rows, err := t.pgxTx.Query(ctx, `
		SELECT id, market_id, label, yes_quantity, no_quantity, is_resolved,
		       winning_side, resolved_ts, resolved_by, dispute_deadline_ts
		FROM options WHERE market_id = $1`, marketID)
	if err != nil {
		return nil, wrapExecErr(err, "list options")
	}
	defer rows.Close()

	var out []*ledger.Option
	for rows.Next() {
		o := &ledger.Option{}
		if err := rows.Scan(&o.ID, &o.MarketID, &o.Label, &o.YesQuantity, &o.NoQuantity,
			&o.IsResolved, &o.WinningSide, &o.ResolvedTS, &o.ResolvedBy, &o.DisputeDeadlineTS); err != nil {
			return nil, wrapExecErr(err, "scan option")
		}
		out = append(out, o)
	}
	return out, wrapExecErr(rows.Err(), "list options")
}

func (t *tx) GetUserPosition(ctx context.Context, userID, optionID string) (*ledger.UserPosition, error) {
	p := &ledger.UserPosition{UserID: userID, OptionID: optionID}
	err := t.pgxTx.QueryRow(ctx, `
		SELECT yes_shares, no_shares, total_yes_cost, total_no_cost, realized_pnl, is_claimed
		FROM user_positions WHERE user_id = $1 AND option_id = $2`, userID, optionID).Scan(
		&p.YesShares, &p.NoShares, &p.TotalYesCost, &p.TotalNoCost, &p.RealizedPnL, &p.IsClaimed)
	if err != nil {
		return nil, wrapQueryErr(err, "user_position", userID+"/"+optionID)
	}
	return p, nil
}

func (t *tx) ListUnclaimedPositionsByOption(ctx context.Context, optionID string) ([]*ledger.UserPosition, error) {
	rows, err := t.pgxTx.Query(ctx, `
		SELECT user_id, option_id, yes_shares, no_shares, total_yes_cost, total_no_cost, realized_pnl, is_claimed
		FROM user_positions
		WHERE option_id = $1 AND is_claimed = false AND (yes_shares > 0 OR no_shares > 0)`, optionID)
	if err != nil {
		return nil, wrapExecErr(err, "list unclaimed positions")
	}
	defer rows.Close()

	var out []*ledger.UserPosition
	for rows.Next() {
		p := &ledger.UserPosition{}
		if err := rows.Scan(&p.UserID, &p.OptionID, &p.YesShares, &p.NoShares,
			&p.TotalYesCost, &p.TotalNoCost, &p.RealizedPnL, &p.IsClaimed); err != nil {
			return nil, wrapExecErr(err, "scan user_position")
		}
		out = append(out, p)
	}
	return out, wrapExecErr(rows.Err(), "list unclaimed positions")
}

func (t *tx) GetLpPosition(ctx context.Context, userID, marketID string) (*ledger.LpPosition, error) {
	p := &ledger.LpPosition{UserID: userID, MarketID: marketID}
	err := t.pgxTx.QueryRow(ctx, `
		SELECT shares, deposited_amount FROM lp_positions
		WHERE user_id = $1 AND market_id = $2`, userID, marketID).Scan(&p.Shares, &p.DepositedAmount)
	if err != nil {
		return nil, wrapQueryErr(err, "lp_position", userID+"/"+marketID)
	}
	return p, nil
}

func (t *tx) ListSubmissions(ctx context.Context, marketID string) ([]*ledger.ResolutionSubmission, error) {
	rows, err := t.pgxTx.Query(ctx, `
		SELECT id, market_id, option_id, user_id, outcome, evidence, submitted_ts, signature
		FROM resolution_submissions WHERE market_id = $1 ORDER BY submitted_ts ASC`, marketID)
	if err != nil {
		return nil, wrapExecErr(err, "list submissions")
	}
	defer rows.Close()

	var out []*ledger.ResolutionSubmission
	for rows.Next() {
		s := &ledger.ResolutionSubmission{}
		if err := rows.Scan(&s.ID, &s.MarketID, &s.OptionID, &s.UserID, &s.Outcome,
			&s.Evidence, &s.SubmittedTS, &s.Signature); err != nil {
			return nil, wrapExecErr(err, "scan submission")
		}
		out = append(out, s)
	}
	return out, wrapExecErr(rows.Err(), "list submissions")
}

func (t *tx) ListSnapshots(ctx context.Context, optionID string, fromTS, toTS int64) ([]*ledger.PriceSnapshot, error) {
	rows, err := t.pgxTx.Query(ctx, `
		SELECT id, option_id, ts, yes_price, no_price, yes_qty, no_qty, volume, snapshot_type, trade_id
		FROM price_snapshots
		WHERE option_id = $1
		  AND ($2 = 0 OR ts >= $2)
		  AND ($3 = 0 OR ts <= $3)
		ORDER BY ts ASC`, optionID, fromTS, toTS)
	if err != nil {
		return nil, wrapExecErr(err, "list snapshots")
	}
	defer rows.Close()

	var out []*ledger.PriceSnapshot
	for rows.Next() {
		s := &ledger.PriceSnapshot{}
		if err := rows.Scan(&s.ID, &s.OptionID, &s.TS, &s.YesPrice, &s.NoPrice,
			&s.YesQty, &s.NoQty, &s.Volume, &s.SnapshotType, &s.TradeID); err != nil {
			return nil, wrapExecErr(err, "scan snapshot")
		}
		out = append(out, s)
	}
	return out, wrapExecErr(rows.Err(), "list snapshots")
}

func (t *tx) Commit(ctx context.Context) error {
	return wrapExecErr(t.pgxTx.Commit(ctx), "commit")
}

func (t *tx) Rollback(ctx context.Context) error {
	err := t.pgxTx.Rollback(ctx)
	if err == pgx.ErrTxClosed {
		return nil
	}
	return wrapExecErr(err, "rollback")
}

// retryableErr satisfies ledger.RetryableError for a wrapped pgconn error
// whose SQLSTATE indicates a transient conflict.
type retryableErr struct {
	cause error
}

func (e *retryableErr) Error() string   { return e.cause.Error() }
func (e *retryableErr) Unwrap() error   { return e.cause }
func (e *retryableErr) Retryable() bool { return true }

func wrapExecErr(err error, action string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == sqlstateSerializationFailure || pgErr.Code == sqlstateDeadlockDetected {
			return &retryableErr{cause: err}
		}
	}
	return apperr.Wrap(apperr.Conflict, err, "%s failed", action)
}

func wrapQueryErr(err error, entity, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFoundf(entity, "%s %s not found", entity, id)
	}
	return wrapExecErr(err, "query "+entity)
}
