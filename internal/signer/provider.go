package signer

import (
	"context"

	"go.uber.org/zap"

	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// PasswordPrompt asks the user for the wallet password. It returns
// ErrUserCancelled when the user aborts.
type PasswordPrompt func(ctx context.Context, walletID string, purpose Purpose) ([]byte, error)

// KeystoreProvider unlocks software signers from the keystore.
type KeystoreProvider struct {
	Keystore *Keystore
	Prompt   PasswordPrompt
	Logger   *zap.Logger
}

// Obtain prompts for the password, decrypts the wallet and derives its
// keys. An empty password counts as a cancelled prompt.
func (p *KeystoreProvider) Obtain(ctx context.Context, walletID string, purpose Purpose) (Signer, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	meta, err := p.Keystore.Metadata(walletID)
	if err != nil {
		return nil, err
	}

	password, err := p.Prompt(ctx, walletID, purpose)
	if err != nil {
		return nil, err
	}
	defer wipe(password)
	if len(password) == 0 {
		return nil, remiterr.ErrUserCancelled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, secret, err := p.Keystore.Unlock(walletID, password)
	if err != nil {
		log.Debug("keystore unlock failed", zap.String("wallet", walletID), zap.Error(err))
		return nil, err
	}
	defer secret.Destroy()

	s, err := NewSoftware(secret.Bytes(), meta.Addresses)
	if err != nil {
		return nil, err
	}
	log.Debug("signer unlocked",
		zap.String("wallet", walletID),
		zap.String("purpose", string(purpose)),
		zap.Bool("mlocked", secret.IsLocked()),
	)
	return s, nil
}
