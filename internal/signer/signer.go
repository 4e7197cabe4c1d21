// Package signer holds wallet key material and signs transfer messages.
// Keys are unlocked per transfer through a Provider and wiped when the
// returned Signer is closed.
package signer

import (
	"context"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/message"
)

// Purpose tells the provider why keys are being unlocked. Hosts show it in
// the unlock prompt.
type Purpose string

// Unlock purposes.
const (
	PurposeTransfer Purpose = "transfer"
)

// Signer signs messages for one wallet.
type Signer interface {
	// Address returns the wallet's sender address on a chain.
	Address(id chain.ID) (string, error)
	// Sign signs msg. The message's From must be the wallet's address on msg.Chain.
	Sign(ctx context.Context, msg *message.Message) (*message.Signed, error)
	// Close wipes key material. Further Sign calls fail.
	Close()
}

// Provider unlocks a wallet's signer. Obtain returns ErrUserCancelled when
// the user aborts the unlock.
type Provider interface {
	Obtain(ctx context.Context, walletID string, purpose Purpose) (Signer, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, walletID string, purpose Purpose) (Signer, error)

// Obtain calls f.
func (f ProviderFunc) Obtain(ctx context.Context, walletID string, purpose Purpose) (Signer, error) {
	return f(ctx, walletID, purpose)
}
