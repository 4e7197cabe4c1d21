// Package wizard drives a transfer from recipient entry through amount
// entry to confirmation and submission. All transitions run under one
// lock; recipient lookup, fee estimation and execution run outside it and
// are reconciled by generation and key checks.
package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mrz1836/remit/internal/amount"
	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/fee"
	"github.com/mrz1836/remit/internal/metrics"
	"github.com/mrz1836/remit/internal/recipient"
	"github.com/mrz1836/remit/internal/transfer"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// Step is the wizard's position.
type Step int

// Wizard steps. Succeeded and Closed are terminal.
const (
	StepRecipient Step = iota
	StepAmount
	StepConfirm
	StepSucceeded
	StepClosed
)

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepRecipient:
		return "recipient"
	case StepAmount:
		return "amount"
	case StepConfirm:
		return "confirm"
	case StepSucceeded:
		return "succeeded"
	case StepClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RateSource returns the latest known fiat price of an asset.
type RateSource interface {
	Rate(asset chain.Asset) decimal.NullDecimal
}

// BalanceSource returns the wallet's balance of an asset.
type BalanceSource interface {
	Balance(ctx context.Context, asset chain.Asset) (chain.AssetAmount, error)
}

// Executor sends a confirmed transfer.
type Executor interface {
	Execute(ctx context.Context, intent *transfer.Intent) (*transfer.Receipt, error)
}

// Outcome is the terminal result of one submission.
type Outcome struct {
	Receipt *transfer.Receipt
	Err     error
}

// Cancelled reports whether the user aborted the submission. Cancellation
// is not a failure and must not be shown as one.
func (o Outcome) Cancelled() bool {
	return remiterr.IsSilent(o.Err)
}

// Config holds the wizard's collaborators. Nothing is read from globals.
type Config struct {
	WalletID string
	// Senders maps each chain to the wallet's address, used as the fee
	// emulation sender.
	Senders    map[chain.ID]string
	Validators map[chain.ID]chain.AddressValidator
	Resolver   recipient.AccountResolver
	Estimator  fee.Estimator
	Rates      RateSource
	Balances   BalanceSource
	Executor   Executor
	Normalizer amount.Normalizer
	// FiatMode is the initial entry mode.
	FiatMode bool
	// SuccessHold delays closure after a successful submission so a host
	// can show the result. Zero closes immediately.
	SuccessHold     time.Duration
	ResolveTimeout  time.Duration
	EstimateTimeout time.Duration
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	// OnChange receives a snapshot after state changes. Calls are
	// serialized and coalesced; the latest state is always delivered.
	OnChange func(Snapshot)
	// OnOutcome receives every submission outcome, including ones that
	// finish after the wizard was closed.
	OnOutcome func(Outcome)
}

// Snapshot is a copy of the wizard state.
type Snapshot struct {
	ID        string
	Step      Step
	Recipient *recipient.Data
	Amount    amount.State
	HasAmount bool
	// Balance is the last balance read for the selected asset.
	Balance *chain.AssetAmount
	Fee     fee.Snapshot
	// AmountErr is the validity predicate against Balance; nil when the
	// amount can be confirmed.
	AmountErr  error
	Intent     *transfer.Intent
	Submitting bool
	Receipt    *transfer.Receipt
}

// Wizard is one transfer session. It is created fresh and discarded on close.
type Wizard struct {
	cfg        Config
	id         string
	logger     *zap.Logger
	reducer    amount.Reducer
	recipients *recipient.Step
	fees       *fee.Gateway

	mu         sync.Mutex
	step       Step
	recipient  *recipient.Data
	amount     amount.State
	hasAmount  bool
	balance    *chain.AssetAmount
	intent     *transfer.Intent
	submitting bool
	receipt    *transfer.Receipt
	closed     bool
	holdTimer  *time.Timer
	done       chan struct{}

	feeMu sync.Mutex
	feeCh chan struct{}

	dirty chan struct{}
	stop  chan struct{}
}

// New creates a wizard at the recipient step.
func New(cfg Config) (*Wizard, error) {
	switch {
	case cfg.Executor == nil:
		return nil, remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"reason": "executor is required"})
	case cfg.Balances == nil:
		return nil, remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"reason": "balance source is required"})
	case cfg.Estimator == nil:
		return nil, remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"reason": "fee estimator is required"})
	case len(cfg.Validators) == 0:
		return nil, remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"reason": "address validators are required"})
	}
	if cfg.Rates == nil {
		cfg.Rates = noRates{}
	}

	id := uuid.NewString()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("wizard", id))

	w := &Wizard{
		cfg:     cfg,
		id:      id,
		logger:  logger,
		reducer: amount.NewReducer(cfg.Normalizer),
		recipients: recipient.NewStep(recipient.Config{
			Validators: cfg.Validators,
			Resolver:   cfg.Resolver,
			Logger:     logger,
			Metrics:    cfg.Metrics,
			Timeout:    cfg.ResolveTimeout,
		}),
		step:  StepRecipient,
		done:  make(chan struct{}),
		feeCh: make(chan struct{}),
		dirty: make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
	w.fees = fee.NewGateway(fee.Config{
		Estimator: cfg.Estimator,
		Logger:    logger,
		Metrics:   cfg.Metrics,
		Timeout:   cfg.EstimateTimeout,
		OnChange:  w.onFeeChange,
	})

	go w.notifier()
	return w, nil
}

type noRates struct{}

func (noRates) Rate(chain.Asset) decimal.NullDecimal { return decimal.NullDecimal{} }

// ID returns the wizard instance id.
func (w *Wizard) ID() string {
	return w.id
}

// Done is closed once the wizard is closed, either by Close or after the
// success hold.
func (w *Wizard) Done() <-chan struct{} {
	return w.done
}

// Snapshot returns a copy of the current state.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Wizard) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:         w.id,
		Step:       w.step,
		Amount:     w.amount,
		HasAmount:  w.hasAmount,
		Fee:        w.fees.Snapshot(),
		Submitting: w.submitting,
		Receipt:    w.receipt,
	}
	if w.recipient != nil {
		r := *w.recipient
		snap.Recipient = &r
	}
	if w.balance != nil {
		b := *w.balance
		snap.Balance = &b
	}
	if w.intent != nil {
		in := *w.intent
		snap.Intent = &in
	}
	if w.hasAmount {
		snap.AmountErr = remiterr.ErrNotReady
		if w.balance != nil {
			snap.AmountErr = amount.Validate(w.amount, *w.balance)
		}
	}
	return snap
}

// checkOpen returns ErrWizardClosed once the wizard succeeded or closed.
func (w *Wizard) checkOpen() error {
	if w.closed || w.step == StepSucceeded || w.step == StepClosed {
		return remiterr.ErrWizardClosed
	}
	return nil
}

func (w *Wizard) checkStep(want Step) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if w.step != want {
		return remiterr.WithDetails(remiterr.ErrInvalidTransition, map[string]string{
			"step": w.step.String(),
			"want": want.String(),
		})
	}
	return nil
}

func (w *Wizard) setStep(next Step) {
	if w.step == next {
		return
	}
	w.cfg.Metrics.StepTransition(w.step.String(), next.String())
	w.logger.Debug("wizard step", zap.Stringer("from", w.step), zap.Stringer("to", next))
	w.step = next
}
