// Package transfer defines the finalized transfer handed from the wizard to
// the execution engine, and the receipt returned after broadcast.
package transfer

import (
	"time"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/fee"
	"github.com/mrz1836/remit/internal/recipient"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// Intent is a transfer ready for confirmation. It is never persisted.
type Intent struct {
	// WalletID identifies the key material to sign with.
	WalletID  string
	Recipient recipient.Data
	// Amount is the display amount. With Max set the engine sends the
	// balance at execution time instead.
	Amount chain.AssetAmount
	Max    bool
	Fee    *fee.Estimate
}

// Asset returns the asset being sent.
func (i *Intent) Asset() chain.Asset {
	return i.Amount.Asset
}

// Check verifies the intent is internally consistent.
func (i *Intent) Check() error {
	if !i.Recipient.Ready {
		return remiterr.ErrNotReady
	}
	if i.Recipient.Chain != i.Amount.Asset.Chain {
		return remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{
			"recipient_chain": i.Recipient.Chain.String(),
			"asset_chain":     i.Amount.Asset.Chain.String(),
		})
	}
	if !i.Max && i.Amount.IsZero() {
		return remiterr.ErrInvalidAmount
	}
	return nil
}

// Receipt is returned by a successful broadcast.
type Receipt struct {
	Chain       chain.ID
	TxHash      string
	To          string
	Amount      chain.AssetAmount
	SubmittedAt time.Time
}
