package wizard

import (
	"context"
	"time"

	"go.uber.org/zap"

	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// Submit executes the confirmed intent and blocks until the outcome is
// known. A call made while another submission is in flight returns
// (false, nil) immediately. The execution runs on a context detached from
// ctx and from the wizard, so neither cancelling ctx nor closing the wizard
// aborts a broadcast; the outcome is still passed to OnOutcome.
func (w *Wizard) Submit(ctx context.Context) (bool, error) {
	w.mu.Lock()
	if err := w.checkOpen(); err != nil {
		w.mu.Unlock()
		return false, err
	}
	if w.submitting {
		w.mu.Unlock()
		return false, nil
	}
	if err := w.checkStep(StepConfirm); err != nil {
		w.mu.Unlock()
		return false, err
	}
	if w.intent == nil {
		w.mu.Unlock()
		return false, remiterr.ErrNotReady
	}
	intent := *w.intent
	w.submitting = true
	w.markDirty()
	w.mu.Unlock()

	receipt, err := w.cfg.Executor.Execute(context.WithoutCancel(ctx), &intent)
	outcome := Outcome{Receipt: receipt, Err: err}

	w.mu.Lock()
	w.submitting = false
	if err == nil {
		w.receipt = receipt
		if !w.closed {
			w.setStep(StepSucceeded)
			w.scheduleCloseLocked()
		}
	}
	w.markDirty()
	w.mu.Unlock()

	switch {
	case err == nil:
		w.logger.Info("transfer succeeded", zap.String("tx_hash", receipt.TxHash))
	case outcome.Cancelled():
		w.logger.Debug("transfer cancelled by user")
	default:
		w.logger.Warn("transfer failed", zap.Error(err))
	}

	if w.cfg.OnOutcome != nil {
		w.cfg.OnOutcome(outcome)
	}
	return true, err
}

// scheduleCloseLocked closes the wizard after the success hold.
func (w *Wizard) scheduleCloseLocked() {
	if w.cfg.SuccessHold <= 0 {
		w.closeLocked()
		return
	}
	w.holdTimer = time.AfterFunc(w.cfg.SuccessHold, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.closeLocked()
	})
}

// Close tears the wizard down. In-flight lookups and estimates are
// cancelled and their results discarded; an in-flight submission runs to
// completion. Closing twice is a no-op.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

func (w *Wizard) closeLocked() {
	if w.closed {
		return
	}
	w.closed = true
	if w.holdTimer != nil {
		w.holdTimer.Stop()
		w.holdTimer = nil
	}
	w.setStep(StepClosed)
	w.intent = nil

	w.recipients.Close()
	w.fees.Close()
	w.signalFee()
	close(w.done)

	w.markDirty()
	close(w.stop)
}

// markDirty schedules an OnChange delivery. Pending deliveries coalesce.
func (w *Wizard) markDirty() {
	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

// notifier delivers snapshots one at a time until the wizard closes,
// then delivers the final state once.
func (w *Wizard) notifier() {
	for {
		select {
		case <-w.dirty:
			w.deliver()
		case <-w.stop:
			select {
			case <-w.dirty:
				w.deliver()
			default:
			}
			return
		}
	}
}

func (w *Wizard) deliver() {
	if w.cfg.OnChange == nil {
		return
	}
	w.cfg.OnChange(w.Snapshot())
}
