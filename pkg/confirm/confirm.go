// Package confirm drives a payment from submission through on-chain
// confirmation to an idempotent purchase record. It owns the lifecycle
// of exactly one payment attempt at a time; concurrent attempts against
// the same machine are refused rather than interleaved.
package confirm

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkpress/inkgate/pkg/x402"
)

// State is the current position of a payment attempt.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePendingConfirmation
	StateConfirmed
	StateReverted
	StateStalled
	StateRecorded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePendingConfirmation:
		return "pending-confirmation"
	case StateConfirmed:
		return "confirmed"
	case StateReverted:
		return "reverted"
	case StateStalled:
		return "stalled-awaiting-manual-check"
	case StateRecorded:
		return "recorded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request describes one payment to make. Amount is in the asset's minor
// units; a nil or zero Amount is a free resource and never enters the
// lifecycle. AssetDecimals renders the recorded amount back into major
// units, matching how the ledger stores prices.
type Request struct {
	ArticleID     string
	UserAddress   string
	PayTo         string
	Asset         string
	Amount        *big.Int
	AssetDecimals int
	Resource      string
}

// TxRef identifies a submitted payment for later receipt lookups.
// Fetch-style submitters return synthetic references that the watcher
// treats as already final.
type TxRef struct {
	Hash string
}

// Outcome is a watcher's verdict on a submitted payment.
type Outcome int

const (
	OutcomeConfirmed Outcome = iota + 1
	OutcomeReverted
)

// Submitter broadcasts a payment and returns a reference to track it.
// Errors should already be classified as x402.PaymentError where the
// fault is recognizable (signer rejection, insufficient funds).
type Submitter interface {
	Submit(ctx context.Context, req Request) (TxRef, error)
}

// Watcher observes finality for a submitted payment. Wait blocks until
// an outcome or ctx expiry; Check is a single bounded query used for
// manual verification of a stalled attempt.
type Watcher interface {
	Wait(ctx context.Context, ref TxRef) (Outcome, error)
	Check(ctx context.Context, ref TxRef) (Outcome, error)
}

// Purchase is the record handed to the Recorder once a payment
// confirms.
type Purchase struct {
	ArticleID   string
	UserAddress string
	TxHash      string
	Amount      string
	Timestamp   time.Time
}

// Recorder persists a confirmed purchase. Implementations must be
// idempotent on (user, article, tx hash); the machine additionally
// guards each tx reference so a confirmation observed twice records
// once.
type Recorder interface {
	Record(ctx context.Context, p Purchase) error
}

const (
	defaultWatchTimeout  = 60 * time.Second
	defaultManualTimeout = 30 * time.Second
)

// Config assembles a Machine. Submitter, Watcher and Recorder are
// required; timeouts fall back to defaults when zero.
type Config struct {
	Submitter     Submitter
	Watcher       Watcher
	Recorder      Recorder
	WatchTimeout  time.Duration
	ManualTimeout time.Duration
}

// Machine runs payment attempts. All methods are safe for concurrent
// use; only one attempt may be in flight.
type Machine struct {
	submitter     Submitter
	watcher       Watcher
	recorder      Recorder
	watchTimeout  time.Duration
	manualTimeout time.Duration

	mu        sync.Mutex
	state     State
	attemptID string
	req       Request
	ref       TxRef
	recorded  map[string]bool
}

// NewMachine validates cfg and returns an idle machine.
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.Submitter == nil {
		return nil, fmt.Errorf("confirm: submitter is required")
	}
	if cfg.Watcher == nil {
		return nil, fmt.Errorf("confirm: watcher is required")
	}
	if cfg.Recorder == nil {
		return nil, fmt.Errorf("confirm: recorder is required")
	}
	if cfg.WatchTimeout <= 0 {
		cfg.WatchTimeout = defaultWatchTimeout
	}
	if cfg.ManualTimeout <= 0 {
		cfg.ManualTimeout = defaultManualTimeout
	}
	return &Machine{
		submitter:     cfg.Submitter,
		watcher:       cfg.Watcher,
		recorder:      cfg.Recorder,
		watchTimeout:  cfg.WatchTimeout,
		manualTimeout: cfg.ManualTimeout,
		state:         StateIdle,
		recorded:      make(map[string]bool),
	}, nil
}

// State reports the machine's current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// TxRef reports the reference of the most recently submitted payment,
// empty when nothing has been broadcast.
func (m *Machine) TxRef() TxRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ref
}

// AttemptID identifies the current payment attempt, for log correlation.
func (m *Machine) AttemptID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attemptID
}

// Pay runs one payment attempt end to end: submit, wait for
// confirmation, record. A zero-amount request returns immediately
// without entering the lifecycle. On a wallet or submission fault the
// machine returns to idle; on a missed confirmation it stalls and
// VerifyNow can resolve it later.
func (m *Machine) Pay(ctx context.Context, req Request) error {
	if req.Amount == nil || req.Amount.Sign() == 0 {
		return nil
	}
	if req.UserAddress == "" {
		return fmt.Errorf("confirm: user address is required")
	}

	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return fmt.Errorf("confirm: payment already in progress (state %s)", m.state)
	}
	m.state = StateSubmitting
	m.attemptID = uuid.NewString()
	m.req = req
	m.ref = TxRef{}
	m.mu.Unlock()

	ref, err := m.submitter.Submit(ctx, req)
	if err != nil {
		m.setState(StateIdle)
		return classifySubmitError(err)
	}

	m.mu.Lock()
	m.state = StatePendingConfirmation
	m.ref = ref
	m.mu.Unlock()

	watchCtx, cancel := context.WithTimeout(ctx, m.watchTimeout)
	defer cancel()
	outcome, err := m.watcher.Wait(watchCtx, ref)
	if err != nil {
		m.setState(StateStalled)
		return x402.NewPaymentError(x402.ErrCodeConfirmationTimeout,
			"confirmation not observed in time, transaction may still settle", err)
	}
	return m.resolve(ctx, outcome)
}

// VerifyNow runs a single bounded receipt check for a stalled or
// pending attempt and settles the state accordingly. It is a no-op once
// the purchase is recorded.
func (m *Machine) VerifyNow(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateRecorded:
		m.mu.Unlock()
		return nil
	case StateStalled, StatePendingConfirmation, StateConfirmed, StateIdle:
		if m.ref.Hash == "" {
			m.mu.Unlock()
			return fmt.Errorf("confirm: no transaction to verify")
		}
	default:
		st := m.state
		m.mu.Unlock()
		return fmt.Errorf("confirm: nothing to verify in state %s", st)
	}
	ref := m.ref
	m.mu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, m.manualTimeout)
	defer cancel()
	outcome, err := m.watcher.Check(checkCtx, ref)
	if err != nil {
		m.setState(StateStalled)
		return x402.NewPaymentError(x402.ErrCodeManualVerifyFailed,
			"manual verification could not complete, try again shortly", err)
	}
	return m.resolve(ctx, outcome)
}

// Reset abandons the current attempt locally and returns to idle. The
// last tx reference is retained: a transfer already broadcast may still
// confirm on chain, and VerifyNow picks it up if the user comes back.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateIdle
}

func (m *Machine) resolve(ctx context.Context, outcome Outcome) error {
	switch outcome {
	case OutcomeReverted:
		m.setState(StateReverted)
		return x402.ErrTransactionReverted
	case OutcomeConfirmed:
		return m.record(ctx)
	default:
		m.setState(StateStalled)
		return x402.NewPaymentError(x402.ErrCodeManualVerifyFailed,
			fmt.Sprintf("unexpected watcher outcome %d", outcome), nil)
	}
}

// record persists the confirmed purchase exactly once per tx reference.
// The test-and-set under the lock keeps a confirmation observed by both
// the waiter and a concurrent manual check from recording twice.
func (m *Machine) record(ctx context.Context) error {
	m.mu.Lock()
	ref := m.ref
	req := m.req
	if m.recorded[ref.Hash] {
		m.state = StateRecorded
		m.mu.Unlock()
		return nil
	}
	m.recorded[ref.Hash] = true
	m.state = StateConfirmed
	m.mu.Unlock()

	err := m.recorder.Record(ctx, Purchase{
		ArticleID:   req.ArticleID,
		UserAddress: req.UserAddress,
		TxHash:      ref.Hash,
		Amount:      x402.FormatMinorUnits(req.Amount, req.AssetDecimals),
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		m.mu.Lock()
		delete(m.recorded, ref.Hash)
		m.mu.Unlock()
		return fmt.Errorf("record purchase: %w", err)
	}
	m.setState(StateRecorded)
	return nil
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
