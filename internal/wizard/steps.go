package wizard

import (
	"context"

	"go.uber.org/zap"

	"github.com/mrz1836/remit/internal/amount"
	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/fee"
	"github.com/mrz1836/remit/internal/recipient"
	"github.com/mrz1836/remit/internal/transfer"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// ResolveRecipient validates and looks up raw on chainID. The lookup runs
// outside the wizard lock; a call superseded by a newer one returns
// ErrSuperseded, even when its lookup finished first.
func (w *Wizard) ResolveRecipient(ctx context.Context, chainID chain.ID, raw string) (*recipient.Data, error) {
	w.mu.Lock()
	err := w.checkStep(StepRecipient)
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	data, err := w.recipients.Resolve(ctx, chainID, raw)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkStep(StepRecipient); err != nil {
		return nil, err
	}
	current, ok := w.recipients.Applied(data)
	if !ok {
		return nil, remiterr.ErrSuperseded
	}
	w.recipient = current
	w.markDirty()
	return current, nil
}

// SetComment sets the transfer comment and recomputes recipient readiness.
func (w *Wizard) SetComment(comment string) (*recipient.Data, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkStep(StepRecipient); err != nil {
		return nil, err
	}
	data, err := w.recipients.SetComment(comment)
	if err != nil {
		return nil, err
	}
	w.recipient = data
	w.markDirty()
	return data, nil
}

// SubmitRecipient advances to the amount step. A draft amount for another
// chain is dropped; a draft for the same chain is kept.
func (w *Wizard) SubmitRecipient() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkStep(StepRecipient); err != nil {
		return err
	}
	if w.recipient == nil || !w.recipient.Ready {
		if w.recipient != nil && w.recipient.Err != nil {
			return remiterr.WithCause(remiterr.ErrNotReady, w.recipient.Err)
		}
		return remiterr.ErrNotReady
	}

	chainID := w.recipient.Chain
	if w.hasAmount && w.amount.Asset().Chain != chainID {
		w.logger.Debug("dropping amount draft for other chain",
			zap.String("draft_chain", w.amount.Asset().Chain.String()),
			zap.String("chain", chainID.String()),
		)
		w.hasAmount = false
	}
	if !w.hasAmount {
		w.amount = amount.NewState(chain.NativeAsset(chainID), w.cfg.FiatMode)
		w.balance = nil
		w.hasAmount = true
	}

	w.setStep(StepAmount)
	w.updateFeeLocked()
	w.markDirty()
	return nil
}

// SelectAsset switches the asset. The asset must be on the recipient's chain.
func (w *Wizard) SelectAsset(asset chain.Asset) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkStep(StepAmount); err != nil {
		return err
	}
	if asset.Chain != w.recipient.Chain {
		return remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{
			"reason": "asset is not on the recipient's chain",
			"asset":  asset.Symbol,
			"chain":  w.recipient.Chain.String(),
		})
	}
	if !asset.Equal(w.amount.Asset()) {
		w.balance = nil
	}
	w.applyLocked(amount.SelectAsset{Asset: asset})
	return nil
}

// Input applies typed text. Rejected keystrokes leave the state unchanged.
func (w *Wizard) Input(text string) (amount.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkStep(StepAmount); err != nil {
		return amount.State{}, err
	}
	w.applyLocked(amount.Input{Text: text, Price: w.cfg.Rates.Rate(w.amount.Asset())})
	return w.amount, nil
}

// SetMax toggles selection of the whole balance. The balance is read
// outside the lock.
func (w *Wizard) SetMax(ctx context.Context) (amount.State, error) {
	w.mu.Lock()
	if err := w.checkStep(StepAmount); err != nil {
		w.mu.Unlock()
		return amount.State{}, err
	}
	asset := w.amount.Asset()
	w.mu.Unlock()

	bal, err := w.cfg.Balances.Balance(ctx, asset)
	if err != nil {
		return amount.State{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkStep(StepAmount); err != nil {
		return amount.State{}, err
	}
	if !w.amount.Asset().Equal(asset) {
		return w.amount, remiterr.ErrSuperseded
	}
	w.balance = &bal
	w.applyLocked(amount.SetMax{Balance: bal, Price: w.cfg.Rates.Rate(asset)})
	return w.amount, nil
}

// ToggleFiat swaps between asset and fiat entry. Without a price the state
// is unchanged.
func (w *Wizard) ToggleFiat() (amount.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkStep(StepAmount); err != nil {
		return amount.State{}, err
	}
	w.applyLocked(amount.ToggleFiat{Price: w.cfg.Rates.Rate(w.amount.Asset())})
	return w.amount, nil
}

// RefreshPrice recomputes the derived fiat value after a price update.
// Hosts call it when the rate source changes.
func (w *Wizard) RefreshPrice() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.checkOpen() != nil || !w.hasAmount {
		return
	}
	w.amount = w.reducer.Reduce(w.amount, amount.RefreshPrice{Price: w.cfg.Rates.Rate(w.amount.Asset())})
	w.markDirty()
}

// RefreshBalance reads the balance of the selected asset.
func (w *Wizard) RefreshBalance(ctx context.Context) (chain.AssetAmount, error) {
	w.mu.Lock()
	if err := w.checkOpen(); err != nil || !w.hasAmount {
		w.mu.Unlock()
		if err == nil {
			err = remiterr.ErrNotReady
		}
		return chain.AssetAmount{}, err
	}
	asset := w.amount.Asset()
	w.mu.Unlock()

	bal, err := w.cfg.Balances.Balance(ctx, asset)
	if err != nil {
		return chain.AssetAmount{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hasAmount && w.amount.Asset().Equal(asset) {
		w.balance = &bal
		w.markDirty()
	}
	return bal, nil
}

// Back moves one step back: Amount to Recipient keeping the amount as a
// draft, Confirm to Amount restoring it.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkOpen(); err != nil {
		return err
	}
	switch w.step {
	case StepAmount:
		w.setStep(StepRecipient)
	case StepConfirm:
		if w.submitting {
			return remiterr.WithDetails(remiterr.ErrInvalidTransition, map[string]string{"reason": "submission in flight"})
		}
		w.intent = nil
		w.setStep(StepAmount)
	default:
		return remiterr.WithDetails(remiterr.ErrInvalidTransition, map[string]string{"step": w.step.String()})
	}
	w.markDirty()
	return nil
}

// Confirm validates the amount against a fresh balance read and the
// current fee estimate and advances to the confirm step.
func (w *Wizard) Confirm(ctx context.Context) (*transfer.Intent, error) {
	w.mu.Lock()
	if err := w.checkStep(StepAmount); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	asset := w.amount.Asset()
	w.mu.Unlock()

	bal, err := w.cfg.Balances.Balance(ctx, asset)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkStep(StepAmount); err != nil {
		return nil, err
	}
	if !w.amount.Asset().Equal(asset) {
		return nil, remiterr.ErrSuperseded
	}
	w.balance = &bal
	w.markDirty()

	if err := amount.Validate(w.amount, bal); err != nil {
		return nil, err
	}

	req, _ := w.feeRequestLocked()
	estimate, ok := w.fees.Current(req.Key())
	if !ok {
		if snap := w.fees.Snapshot(); snap.Key == req.Key() && snap.Status == fee.StatusFailed {
			return nil, snap.Err
		}
		return nil, remiterr.ErrFeeNotReady
	}

	send := amount.Effective(w.amount, bal)
	if asset.Kind == chain.KindNative && !w.amount.Max && estimate.Fee.Asset.Equal(asset) {
		need := send.Add(estimate.Fee)
		if bal.Cmp(need) < 0 {
			return nil, remiterr.WithDetails(remiterr.ErrInsufficientBalance, map[string]string{
				"available": bal.String(),
				"required":  need.String(),
				"symbol":    asset.Symbol,
			})
		}
	}

	w.intent = &transfer.Intent{
		WalletID:  w.cfg.WalletID,
		Recipient: *w.recipient,
		Amount:    send,
		Max:       w.amount.Max,
		Fee:       estimate,
	}
	w.setStep(StepConfirm)
	in := *w.intent
	return &in, nil
}

func (w *Wizard) applyLocked(action amount.Action) {
	w.amount = w.reducer.Reduce(w.amount, action)
	w.updateFeeLocked()
	w.markDirty()
}

// feeRequestLocked describes the current transfer for estimation.
func (w *Wizard) feeRequestLocked() (fee.Request, bool) {
	if w.recipient == nil || !w.hasAmount {
		return fee.Request{}, false
	}
	return fee.Request{
		From:       w.cfg.Senders[w.recipient.Chain],
		To:         w.recipient.Address(),
		Comment:    w.recipient.Comment,
		Amount:     w.amount.Amount,
		Max:        w.amount.Max,
		Bounceable: w.recipient.Bounceable(),
	}, true
}

// updateFeeLocked re-keys the gateway. The gateway ignores unchanged keys.
func (w *Wizard) updateFeeLocked() {
	req, ok := w.feeRequestLocked()
	if !ok || !req.Amount.Asset.Chain.IsValid() {
		return
	}
	w.fees.Update(req)
}

// WaitFee blocks until the estimate for the current transfer is ready or
// failed, or ctx is done.
func (w *Wizard) WaitFee(ctx context.Context) (*fee.Estimate, error) {
	for {
		w.feeMu.Lock()
		changed := w.feeCh
		w.feeMu.Unlock()

		w.mu.Lock()
		if err := w.checkOpen(); err != nil {
			w.mu.Unlock()
			return nil, err
		}
		req, ok := w.feeRequestLocked()
		w.mu.Unlock()
		if !ok || !req.Ready() {
			return nil, remiterr.ErrFeeNotReady
		}

		snap := w.fees.Snapshot()
		if snap.Key == req.Key() {
			switch snap.Status {
			case fee.StatusReady:
				return snap.Estimate, nil
			case fee.StatusFailed:
				return nil, snap.Err
			case fee.StatusIdle, fee.StatusLoading:
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

func (w *Wizard) onFeeChange(fee.Snapshot) {
	w.signalFee()
	w.markDirty()
}

func (w *Wizard) signalFee() {
	w.feeMu.Lock()
	close(w.feeCh)
	w.feeCh = make(chan struct{})
	w.feeMu.Unlock()
}
