// Package memledger is an in-memory ledger.Store used by unit tests and by
// the server when DATABASE_URL is unset. It is grounded on the teacher's
// mutex-guarded in-process state pattern (internal/state/allocations.go,
// internal/market/market.go) generalized to the full ledger schema.
//
// Unlike the postgres backend, memledger does not support fine-grained row
// locking: Begin acquires the store's single mutex and holds it for the
// transaction's lifetime, so every transaction is fully serialized against
// every other. This is strictly stronger than the postgres backend's lock
// ordering (it can never deadlock, so nothing here ever needs to be
// retried) and is acceptable because memledger only backs tests and local/
// single-process runs, never the concurrent production deployment target.
//
// Writes are staged in the tx and only applied to the store on Commit, so
// Rollback genuinely undoes a partially-built transaction rather than
// leaving earlier Save calls in place — matching the atomicity a real
// postgres transaction gives callers.
package memledger

import (
	"context"
	"sync"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
)

// Store is a mutex-guarded, all-in-memory ledger.Store.
type Store struct {
	mu sync.Mutex

	markets      map[string]*ledger.Market
	options      map[string]*ledger.Option
	optionsByMkt map[string][]string
	wallets      map[string]*ledger.Wallet
	userPos      map[string]*ledger.UserPosition // key: userID + "/" + optionID
	lpPos        map[string]*ledger.LpPosition   // key: userID + "/" + marketID

	trades      []*ledger.Trade
	snapshots   []*ledger.PriceSnapshot
	submissions []*ledger.ResolutionSubmission
	disputes    []*ledger.Dispute
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		markets:      make(map[string]*ledger.Market),
		options:      make(map[string]*ledger.Option),
		optionsByMkt: make(map[string][]string),
		wallets:      make(map[string]*ledger.Wallet),
		userPos:      make(map[string]*ledger.UserPosition),
		lpPos:        make(map[string]*ledger.LpPosition),
	}
}

func userPosKey(userID, optionID string) string { return userID + "/" + optionID }
func lpPosKey(userID, marketID string) string    { return userID + "/" + marketID }

// CreateMarket inserts a new market row. Not part of the money-moving path
// so it bypasses the serialization queue, matching ledger.Store's contract.
func (s *Store) CreateMarket(ctx context.Context, m *ledger.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.markets[m.ID]; exists {
		return apperr.New(apperr.Conflict, "market %s already exists", m.ID)
	}
	cp := *m
	s.markets[m.ID] = &cp
	return nil
}

// CreateOption inserts a new option row under its market.
func (s *Store) CreateOption(ctx context.Context, o *ledger.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.options[o.ID]; exists {
		return apperr.New(apperr.Conflict, "option %s already exists", o.ID)
	}
	cp := *o
	s.options[o.ID] = &cp
	s.optionsByMkt[o.MarketID] = append(s.optionsByMkt[o.MarketID], o.ID)
	return nil
}

// Begin acquires the store mutex and returns a Tx bound to this snapshot of
// state. The mutex is released on Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (ledger.Tx, error) {
	s.mu.Lock()
	return &tx{
		store:       s,
		markets:     make(map[string]*ledger.Market),
		options:     make(map[string]*ledger.Option),
		wallets:     make(map[string]*ledger.Wallet),
		userPos:     make(map[string]*ledger.UserPosition),
		lpPos:       make(map[string]*ledger.LpPosition),
		lpDeletions: make(map[string]bool),
	}, nil
}

// tx stages every write in local overlays on top of the store's committed
// state; Lock/Get methods consult the overlay first so a transaction sees
// its own uncommitted writes. Commit flushes the overlays into the store;
// Rollback discards them.
type tx struct {
	store *Store
	done  bool

	markets     map[string]*ledger.Market
	options     map[string]*ledger.Option
	wallets     map[string]*ledger.Wallet
	userPos     map[string]*ledger.UserPosition
	lpPos       map[string]*ledger.LpPosition
	lpDeletions map[string]bool

	newTrades      []*ledger.Trade
	newSnapshots   []*ledger.PriceSnapshot
	newSubmissions []*ledger.ResolutionSubmission
	newDisputes    []*ledger.Dispute
}

func (t *tx) requireOpen() error {
	if t.done {
		return apperr.New(apperr.Conflict, "transaction already closed")
	}
	return nil
}

func (t *tx) LockMarket(ctx context.Context, marketID string) (*ledger.Market, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	if m, ok := t.markets[marketID]; ok {
		cp := *m
		return &cp, nil
	}
	m, ok := t.store.markets[marketID]
	if !ok {
		return nil, apperr.NotFoundf("market", "market %s not found", marketID)
	}
	cp := *m
	return &cp, nil
}

func (t *tx) LockOption(ctx context.Context, optionID string) (*ledger.Option, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	if o, ok := t.options[optionID]; ok {
		cp := *o
		return &cp, nil
	}
	o, ok := t.store.options[optionID]
	if !ok {
		return nil, apperr.NotFoundf("option", "option %s not found", optionID)
	}
	cp := *o
	return &cp, nil
}

func (t *tx) LockWallet(ctx context.Context, userID string) (*ledger.Wallet, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	if w, ok := t.wallets[userID]; ok {
		cp := *w
		return &cp, nil
	}
	if w, ok := t.store.wallets[userID]; ok {
		cp := *w
		return &cp, nil
	}
	return &ledger.Wallet{UserID: userID, Balance: 0}, nil
}

func (t *tx) LockUserPosition(ctx context.Context, userID, optionID string) (*ledger.UserPosition, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	key := userPosKey(userID, optionID)
	if p, ok := t.userPos[key]; ok {
		cp := *p
		return &cp, nil
	}
	if p, ok := t.store.userPos[key]; ok {
		cp := *p
		return &cp, nil
	}
	return &ledger.UserPosition{UserID: userID, OptionID: optionID}, nil
}

func (t *tx) LockLpPosition(ctx context.Context, userID, marketID string) (*ledger.LpPosition, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	key := lpPosKey(userID, marketID)
	if t.lpDeletions[key] {
		return &ledger.LpPosition{UserID: userID, MarketID: marketID}, nil
	}
	if p, ok := t.lpPos[key]; ok {
		cp := *p
		return &cp, nil
	}
	if p, ok := t.store.lpPos[key]; ok {
		cp := *p
		return &cp, nil
	}
	return &ledger.LpPosition{UserID: userID, MarketID: marketID}, nil
}

func (t *tx) SaveMarket(ctx context.Context, m *ledger.Market) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	cp := *m
	t.markets[m.ID] = &cp
	return nil
}

func (t *tx) SaveOption(ctx context.Context, o *ledger.Option) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	cp := *o
	t.options[o.ID] = &cp
	return nil
}

func (t *tx) SaveWallet(ctx context.Context, w *ledger.Wallet) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	cp := *w
	t.wallets[w.UserID] = &cp
	return nil
}

func (t *tx) SaveUserPosition(ctx context.Context, p *ledger.UserPosition) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	cp := *p
	t.userPos[userPosKey(p.UserID, p.OptionID)] = &cp
	return nil
}

func (t *tx) SaveLpPosition(ctx context.Context, p *ledger.LpPosition) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	cp := *p
	key := lpPosKey(p.UserID, p.MarketID)
	t.lpPos[key] = &cp
	delete(t.lpDeletions, key)
	return nil
}

func (t *tx) DeleteLpPosition(ctx context.Context, userID, marketID string) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	key := lpPosKey(userID, marketID)
	delete(t.lpPos, key)
	t.lpDeletions[key] = true
	return nil
}

func (t *tx) InsertTrade(ctx context.Context, tr *ledger.Trade) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	cp := *tr
	t.newTrades = append(t.newTrades, &cp)
	return nil
}

func (t *tx) InsertSnapshot(ctx context.Context, s *ledger.PriceSnapshot) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	cp := *s
	t.newSnapshots = append(t.newSnapshots, &cp)
	return nil
}

func (t *tx) InsertSubmission(ctx context.Context, s *ledger.ResolutionSubmission) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	cp := *s
	t.newSubmissions = append(t.newSubmissions, &cp)
	return nil
}

func (t *tx) InsertDispute(ctx context.Context, d *ledger.Dispute) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	cp := *d
	t.newDisputes = append(t.newDisputes, &cp)
	return nil
}

func (t *tx) GetMarket(ctx context.Context, marketID string) (*ledger.Market, error) {
	return t.LockMarket(ctx, marketID)
}

func (t *tx) GetOption(ctx context.Context, optionID string) (*ledger.Option, error) {
	return t.LockOption(ctx, optionID)
}

func (t *tx) ListOptionsByMarket(ctx context.Context, marketID string) ([]*ledger.Option, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []*ledger.Option
	for _, id := range t.store.optionsByMkt[marketID] {
		seen[id] = true
		if o, ok := t.options[id]; ok {
			cp := *o
			out = append(out, &cp)
			continue
		}
		if o, ok := t.store.options[id]; ok {
			cp := *o
			out = append(out, &cp)
		}
	}
	for id, o := range t.options {
		if !seen[id] && o.MarketID == marketID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *tx) GetUserPosition(ctx context.Context, userID, optionID string) (*ledger.UserPosition, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	key := userPosKey(userID, optionID)
	if p, ok := t.userPos[key]; ok {
		cp := *p
		return &cp, nil
	}
	p, ok := t.store.userPos[key]
	if !ok {
		return nil, apperr.NotFoundf("user_position", "no position for user %s on option %s", userID, optionID)
	}
	cp := *p
	return &cp, nil
}

func (t *tx) ListUnclaimedPositionsByOption(ctx context.Context, optionID string) ([]*ledger.UserPosition, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	merged := make(map[string]*ledger.UserPosition)
	for k, p := range t.store.userPos {
		merged[k] = p
	}
	for k, p := range t.userPos {
		merged[k] = p
	}
	var out []*ledger.UserPosition
	for _, p := range merged {
		if p.OptionID != optionID || p.IsClaimed {
			continue
		}
		if p.YesShares == 0 && p.NoShares == 0 {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (t *tx) GetLpPosition(ctx context.Context, userID, marketID string) (*ledger.LpPosition, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	key := lpPosKey(userID, marketID)
	if t.lpDeletions[key] {
		return nil, apperr.NotFoundf("lp_position", "no LP position for user %s in market %s", userID, marketID)
	}
	if p, ok := t.lpPos[key]; ok {
		cp := *p
		return &cp, nil
	}
	p, ok := t.store.lpPos[key]
	if !ok {
		return nil, apperr.NotFoundf("lp_position", "no LP position for user %s in market %s", userID, marketID)
	}
	cp := *p
	return &cp, nil
}

func (t *tx) ListSubmissions(ctx context.Context, marketID string) ([]*ledger.ResolutionSubmission, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	var out []*ledger.ResolutionSubmission
	for _, s := range t.store.submissions {
		if s.MarketID == marketID {
			cp := *s
			out = append(out, &cp)
		}
	}
	for _, s := range t.newSubmissions {
		if s.MarketID == marketID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *tx) ListSnapshots(ctx context.Context, optionID string, fromTS, toTS int64) ([]*ledger.PriceSnapshot, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	match := func(s *ledger.PriceSnapshot) bool {
		if s.OptionID != optionID {
			return false
		}
		if fromTS != 0 && s.TS < fromTS {
			return false
		}
		if toTS != 0 && s.TS > toTS {
			return false
		}
		return true
	}
	var out []*ledger.PriceSnapshot
	for _, s := range t.store.snapshots {
		if match(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	for _, s := range t.newSnapshots {
		if match(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Commit flushes all staged writes into the store and releases the lock.
func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.store.mu.Unlock()

	for id, m := range t.markets {
		t.store.markets[id] = m
	}
	for id, o := range t.options {
		if _, existed := t.store.options[id]; !existed {
			t.store.optionsByMkt[o.MarketID] = append(t.store.optionsByMkt[o.MarketID], id)
		}
		t.store.options[id] = o
	}
	for id, w := range t.wallets {
		t.store.wallets[id] = w
	}
	for k, p := range t.userPos {
		t.store.userPos[k] = p
	}
	for k := range t.lpDeletions {
		delete(t.store.lpPos, k)
	}
	for k, p := range t.lpPos {
		t.store.lpPos[k] = p
	}
	t.store.trades = append(t.store.trades, t.newTrades...)
	t.store.snapshots = append(t.store.snapshots, t.newSnapshots...)
	t.store.submissions = append(t.store.submissions, t.newSubmissions...)
	t.store.disputes = append(t.store.disputes, t.newDisputes...)
	return nil
}

// Rollback discards all staged writes and releases the lock.
func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}
