// Package resolution implements the resolution engine of spec §4.G: a pure
// outcome-determination function for the ORACLE/AUTHORITY/OPINION modes,
// plus the submit_resolution and dispute_resolution orchestration around it.
package resolution

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/bus"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/config"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/metrics"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/queue"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/trading"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/txrunner"
)

// disputeWindowSeconds is the 2-hour dispute window (spec §4.G).
const disputeWindowSeconds = 2 * 60 * 60

// Config carries whatever the pure outcome-determination needs that it must
// not read for itself: the admin set, and a caller-supplied snapshot time
// (no mode currently consults it inside Resolve — OPINION's expiration gate
// is enforced by Engine before Resolve runs — but it is threaded through so
// a future mode needing "now" never has to reach for the wall clock).
type Config struct {
	AdminUserIDs map[string]bool
	Now          int64
}

// Resolve is the pure core: given an option, its market's mode and the
// submissions recorded against it, deterministically pick a winning side
// and return the trace and its canonical hash. No randomness, no I/O, no
// wall-clock reads.
func Resolve(option *ledger.Option, mode ledger.ResolutionMode, submissions []*ledger.ResolutionSubmission, cfg Config) (ledger.Side, map[string]interface{}, string, error) {
	ordered := sortedSubmissions(submissions)

	switch mode {
	case ledger.ModeOracle:
		winner, ok := earliestAdmin(ordered, cfg.AdminUserIDs)
		if !ok {
			return 0, nil, "", apperr.New(apperr.Validation, "no admin submission found for ORACLE resolution")
		}
		trace := buildTrace(mode, option, ordered, winner, nil)
		return sideForOutcome(option, winner.Outcome), trace, canonicalHash(trace), nil

	case ledger.ModeAuthority:
		if len(ordered) == 0 {
			return 0, nil, "", apperr.New(apperr.Validation, "no submission found for AUTHORITY resolution")
		}
		winner := ordered[0]
		trace := buildTrace(mode, option, ordered, winner, nil)
		return sideForOutcome(option, winner.Outcome), trace, canonicalHash(trace), nil

	case ledger.ModeOpinion:
		if len(ordered) == 0 {
			return 0, nil, "", apperr.New(apperr.Validation, "no submissions found for OPINION resolution")
		}
		counts := make(map[string]int, len(ordered))
		for _, s := range ordered {
			counts[s.Outcome]++
		}
		best := pluralityOutcome(ordered, counts)
		trace := buildTrace(mode, option, ordered, nil, counts)
		trace["winning_outcome"] = best
		return sideForOutcome(option, best), trace, canonicalHash(trace), nil

	default:
		return 0, nil, "", apperr.New(apperr.Validation, "unknown resolution mode %q", mode)
	}
}

// sideForOutcome reports the YES branch (1) when outcome matches the
// option's own label, else the NO branch (2) (spec §4.G step 5).
func sideForOutcome(option *ledger.Option, outcome string) ledger.Side {
	if outcome == option.Label {
		return ledger.SideYes
	}
	return ledger.SideNo
}

// validOutcome is the only two values an outcome submission may carry for a
// binary option: its label (asserting the option's event occurred) or the
// literal "NO" (asserting it did not) — the concrete binary alphabet that
// makes an OPINION-mode plurality vote meaningful across submitters.
func validOutcome(option *ledger.Option, outcome string) bool {
	return outcome == option.Label || outcome == "NO"
}

func sortedSubmissions(submissions []*ledger.ResolutionSubmission) []*ledger.ResolutionSubmission {
	out := make([]*ledger.ResolutionSubmission, len(submissions))
	copy(out, submissions)
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedTS != out[j].SubmittedTS {
			return out[i].SubmittedTS < out[j].SubmittedTS
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func earliestAdmin(submissions []*ledger.ResolutionSubmission, adminIDs map[string]bool) (*ledger.ResolutionSubmission, bool) {
	var best *ledger.ResolutionSubmission
	for _, s := range submissions {
		if !adminIDs[s.UserID] {
			continue
		}
		if best == nil || s.SubmittedTS < best.SubmittedTS {
			best = s
		}
	}
	return best, best != nil
}

// pluralityOutcome picks the outcome with the most submissions, breaking
// ties by the earliest submitted_ts among the tied outcomes (spec §4.G
// OPINION mode).
func pluralityOutcome(submissions []*ledger.ResolutionSubmission, counts map[string]int) string {
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	var best string
	var bestTS int64
	haveBest := false
	for _, s := range submissions {
		if counts[s.Outcome] != maxCount {
			continue
		}
		if !haveBest || s.SubmittedTS < bestTS {
			best, bestTS, haveBest = s.Outcome, s.SubmittedTS, true
		}
	}
	return best
}

func buildTrace(mode ledger.ResolutionMode, option *ledger.Option, submissions []*ledger.ResolutionSubmission, winner *ledger.ResolutionSubmission, counts map[string]int) map[string]interface{} {
	subs := make([]map[string]interface{}, 0, len(submissions))
	for _, s := range submissions {
		subs = append(subs, map[string]interface{}{
			"user_id":      s.UserID,
			"outcome":      s.Outcome,
			"submitted_ts": s.SubmittedTS,
		})
	}
	trace := map[string]interface{}{
		"mode":        string(mode),
		"option_id":   option.ID,
		"submissions": subs,
	}
	if winner != nil {
		trace["winning_submission_user_id"] = winner.UserID
		trace["winning_outcome"] = winner.Outcome
	}
	if counts != nil {
		trace["outcome_counts"] = counts
	}
	return trace
}

// canonicalHash is SHA-256 of the trace marshaled by encoding/json, which
// sorts map keys lexicographically at every level — exactly the canonical
// serialization spec §4.G calls for, with no custom encoder needed.
func canonicalHash(trace map[string]interface{}) string {
	b, err := json.Marshal(trace)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Engine orchestrates submit_resolution and dispute_resolution around the
// pure Resolve core.
type Engine struct {
	store    ledger.Store
	queue    *queue.Queue
	txOpts   txrunner.Options
	adminIDs map[string]bool
	bus      *bus.Bus
	trading  *trading.Engine
	log      *zap.Logger
}

// New builds a resolution Engine. adminIDs is the platform admin roster
// consulted by ORACLE/AUTHORITY authorization.
func New(store ledger.Store, q *queue.Queue, adminIDs []string, b *bus.Bus, tradingEngine *trading.Engine, log *zap.Logger) *Engine {
	ids := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = true
	}
	return &Engine{store: store, queue: q, txOpts: txrunner.Default(), adminIDs: ids, bus: b, trading: tradingEngine, log: log}
}

// SubmitInput is submit_resolution's canonical input (spec §6). WinningSide,
// when set by an authorized caller, is preferred over the engine's own
// determination (used for AUTHORITY direct resolution).
type SubmitInput struct {
	UserID      string
	MarketID    string
	OptionID    string
	Outcome     string
	WinningSide *ledger.Side
	Evidence    string
}

// SubmitResult is submit_resolution's canonical output.
type SubmitResult struct {
	Submission    *ledger.ResolutionSubmission
	Option        *ledger.Option
	Mode          ledger.ResolutionMode
	CanonicalHash string
}

// SubmitResolution executes submit_resolution (spec §4.G).
func (e *Engine) SubmitResolution(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	var result *SubmitResult
	err := e.queue.Submit(ctx, queue.Key{MarketID: in.MarketID, OptionID: in.OptionID}, queue.DefaultTimeout, func(ctx context.Context) error {
		return txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
			r, err := e.submitInTx(ctx, tx, in)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.Resolutions.WithLabelValues(strings.ToLower(string(result.Mode))).Inc()
	if result.Option.IsResolved {
		e.trading.ScheduleAutoCredit(in.MarketID, in.OptionID)
		e.bus.Publish(bus.Message{Kind: bus.KindMarket, Market: &bus.MarketUpdate{
			Market: in.MarketID, Event: bus.MarketEventResolved,
			Payload: map[string]interface{}{"option_id": in.OptionID, "winning_side": int(*result.Option.WinningSide)},
			TS:      time.Now().Unix(),
		}})
	}
	return result, nil
}

func (e *Engine) submitInTx(ctx context.Context, tx ledger.Tx, in SubmitInput) (*SubmitResult, error) {
	market, err := tx.LockMarket(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	if market.Status != ledger.MarketOpen && market.Status != ledger.MarketResolving {
		return nil, apperr.New(apperr.MarketNotOpen, "market %s is not open for resolution", in.MarketID)
	}

	option, err := tx.LockOption(ctx, in.OptionID)
	if err != nil {
		return nil, err
	}
	if option.MarketID != market.ID {
		return nil, apperr.New(apperr.Validation, "option %s does not belong to market %s", option.ID, market.ID)
	}
	if option.IsResolved {
		return nil, apperr.New(apperr.OptionAlreadyResolved, "option %s is already resolved", option.ID)
	}
	if !validOutcome(option, in.Outcome) {
		return nil, apperr.New(apperr.Validation, "outcome %q is not valid for option %s (expected %q or \"NO\")", in.Outcome, option.ID, option.Label)
	}

	now := time.Now().Unix()
	if err := e.authorize(market, in.UserID, now); err != nil {
		return nil, err
	}

	submission := &ledger.ResolutionSubmission{
		ID: uuid.New().String(), MarketID: in.MarketID, OptionID: in.OptionID, UserID: in.UserID,
		Outcome: in.Outcome, Evidence: in.Evidence, SubmittedTS: now,
	}
	if err := tx.InsertSubmission(ctx, submission); err != nil {
		return nil, err
	}

	market.Status = ledger.MarketResolving

	submissions, err := tx.ListSubmissions(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	optionSubmissions := make([]*ledger.ResolutionSubmission, 0, len(submissions))
	for _, s := range submissions {
		if s.OptionID == in.OptionID {
			optionSubmissions = append(optionSubmissions, s)
		}
	}

	var winningSide ledger.Side
	var hash string
	if in.WinningSide != nil {
		winningSide = *in.WinningSide
		trace := map[string]interface{}{
			"mode":            string(market.ResolutionMode),
			"option_id":       option.ID,
			"explicit_winner": in.UserID,
			"winning_side":    int(winningSide),
		}
		hash = canonicalHash(trace)
	} else {
		side, _, h, err := Resolve(option, market.ResolutionMode, optionSubmissions, Config{AdminUserIDs: e.adminIDs, Now: now})
		if err != nil {
			return nil, err
		}
		winningSide, hash = side, h
	}

	resolvedTS := now
	resolvedBy := in.UserID
	option.IsResolved = true
	option.WinningSide = &winningSide
	option.ResolvedTS = &resolvedTS
	option.ResolvedBy = &resolvedBy
	if market.ResolutionMode != ledger.ModeOpinion {
		deadline := now + disputeWindowSeconds
		option.DisputeDeadlineTS = &deadline
	}
	if err := tx.SaveOption(ctx, option); err != nil {
		return nil, err
	}

	options, err := tx.ListOptionsByMarket(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	allResolved := true
	for _, o := range options {
		if o.ID == option.ID {
			continue
		}
		if !o.IsResolved {
			allResolved = false
			break
		}
	}
	if allResolved {
		market.Status = ledger.MarketResolved
	}
	if err := tx.SaveMarket(ctx, market); err != nil {
		return nil, err
	}

	return &SubmitResult{Submission: submission, Option: option, Mode: market.ResolutionMode, CanonicalHash: hash}, nil
}

// authorize enforces the per-mode authorization and timing preconditions of
// spec §4.G step 3.
func (e *Engine) authorize(market *ledger.Market, userID string, now int64) error {
	switch market.ResolutionMode {
	case ledger.ModeOracle:
		if !e.adminIDs[userID] {
			return apperr.New(apperr.Unauthorized, "only an admin may submit a resolution for an ORACLE market")
		}
	case ledger.ModeAuthority:
		if userID != market.CreatorID && !e.adminIDs[userID] {
			return apperr.New(apperr.Unauthorized, "only the market creator or an admin may submit a resolution for an AUTHORITY market")
		}
	case ledger.ModeOpinion:
		if now < market.ExpirationTS {
			return apperr.New(apperr.Validation, "OPINION resolution is not open until market expiration")
		}
	default:
		return apperr.New(apperr.Validation, "market %s has no resolution mode configured", market.ID)
	}
	return nil
}

// DisputeInput is dispute_resolution's canonical input (spec §6).
type DisputeInput struct {
	UserID   string
	MarketID string
	OptionID string
	Reason   string
	Evidence string
}

// DisputeResult is dispute_resolution's canonical output.
type DisputeResult struct {
	Dispute *ledger.Dispute
	Fee     int64
}

// DisputeResolution executes dispute_resolution (spec §4.G).
func (e *Engine) DisputeResolution(ctx context.Context, in DisputeInput) (*DisputeResult, error) {
	var result *DisputeResult
	err := e.queue.Submit(ctx, queue.Key{MarketID: in.MarketID, OptionID: in.OptionID}, queue.DefaultTimeout, func(ctx context.Context) error {
		return txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
			r, err := e.disputeInTx(ctx, tx, in)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.Disputes.Inc()
	e.bus.Publish(bus.Message{Kind: bus.KindMarket, Market: &bus.MarketUpdate{
		Market: in.MarketID, Event: bus.MarketEventUpdated, TS: time.Now().Unix(),
	}})
	return result, nil
}

func (e *Engine) disputeInTx(ctx context.Context, tx ledger.Tx, in DisputeInput) (*DisputeResult, error) {
	market, err := tx.LockMarket(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	option, err := tx.LockOption(ctx, in.OptionID)
	if err != nil {
		return nil, err
	}
	if option.MarketID != market.ID {
		return nil, apperr.New(apperr.Validation, "option %s does not belong to market %s", option.ID, market.ID)
	}
	if !option.IsResolved {
		return nil, apperr.New(apperr.Validation, "option %s is not resolved yet", option.ID)
	}
	if option.DisputeDeadlineTS == nil {
		return nil, apperr.New(apperr.DisputeDeadlinePassed, "OPINION resolutions cannot be disputed")
	}
	now := time.Now().Unix()
	if now >= *option.DisputeDeadlineTS {
		return nil, apperr.New(apperr.DisputeDeadlinePassed, "dispute window for option %s has closed", option.ID)
	}

	fee := config.DisputeFeeMicroUSDC

	wallet, protocolWallet, err := e.lockInOrder(ctx, tx, in.UserID, trading.ProtocolTreasuryUserID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < fee {
		return nil, apperr.New(apperr.InsufficientBalance, "wallet balance %d is less than dispute fee %d", wallet.Balance, fee)
	}
	wallet.Balance -= fee
	protocolWallet.Balance += fee
	if err := tx.SaveWallet(ctx, wallet); err != nil {
		return nil, err
	}
	if err := tx.SaveWallet(ctx, protocolWallet); err != nil {
		return nil, err
	}

	dispute := &ledger.Dispute{
		ID: uuid.New().String(), MarketID: in.MarketID, OptionID: in.OptionID, UserID: in.UserID,
		Reason: in.Reason, Evidence: in.Evidence, ResolutionFeePaid: fee, TS: now,
	}
	if err := tx.InsertDispute(ctx, dispute); err != nil {
		return nil, err
	}

	market.Status = ledger.MarketDisputed
	if err := tx.SaveMarket(ctx, market); err != nil {
		return nil, err
	}

	return &DisputeResult{Dispute: dispute, Fee: fee}, nil
}

// ResolutionView is get_resolution's canonical output: the market itself,
// its options (each carrying whatever resolution fields it has accumulated),
// and every submission recorded against the market so far.
type ResolutionView struct {
	Market      *ledger.Market
	Options     []*ledger.Option
	Submissions []*ledger.ResolutionSubmission
}

// GetResolution reports a market's resolution state as a read-only query,
// with no locking and no writes.
func (e *Engine) GetResolution(ctx context.Context, marketID string) (*ResolutionView, error) {
	var view *ResolutionView
	err := txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
		market, err := tx.GetMarket(ctx, marketID)
		if err != nil {
			return err
		}
		options, err := tx.ListOptionsByMarket(ctx, marketID)
		if err != nil {
			return err
		}
		submissions, err := tx.ListSubmissions(ctx, marketID)
		if err != nil {
			return err
		}
		view = &ResolutionView{Market: market, Options: options, Submissions: submissions}
		return readOnlySentinel{}
	})
	if _, ok := err.(readOnlySentinel); ok {
		return view, nil
	}
	return nil, err
}

// readOnlySentinel is this package's analogue of internal/liquidity's
// rollbackSentinel: a non-retryable error that makes txrunner roll back a
// query that made no writes instead of committing an empty transaction.
type readOnlySentinel struct{}

func (readOnlySentinel) Error() string { return "read-only: rolled back intentionally" }

// lockInOrder locks two distinct wallets in sorted id order to respect the
// global lock-order discipline (§4.B); if the two ids coincide it locks
// once and returns the same wallet for both.
func (e *Engine) lockInOrder(ctx context.Context, tx ledger.Tx, a, b string) (walletA, walletB *ledger.Wallet, err error) {
	if a == b {
		w, err := tx.LockWallet(ctx, a)
		return w, w, err
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	wFirst, err := tx.LockWallet(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	wSecond, err := tx.LockWallet(ctx, second)
	if err != nil {
		return nil, nil, err
	}
	if first == a {
		return wFirst, wSecond, nil
	}
	return wSecond, wFirst, nil
}
