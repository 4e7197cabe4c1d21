package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/message"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// Software signs with keys derived from a decrypted mnemonic held in
// locked memory.
type Software struct {
	mu        sync.Mutex
	addresses map[chain.ID]string
	tonKey    *secureBytes
	tronKey   *secureBytes
}

// NewSoftware derives both chain keys from the normalized phrase. phrase
// is only read; the caller keeps ownership and wipes it. The TON address is
// taken from addresses; the TRON address is derived and must match the
// stored one when present.
func NewSoftware(phrase []byte, addresses map[chain.ID]string) (*Software, error) {
	tronPriv, err := DeriveTRONKey(phrase)
	if err != nil {
		return nil, err
	}
	tronAddr := TRONAddress(&tronPriv.PublicKey)
	if stored, ok := addresses[chain.TRON]; ok && stored != tronAddr {
		return nil, remiterr.WithDetails(remiterr.ErrDecryptionFailed, map[string]string{
			"reason": "derived tron address does not match keystore",
		})
	}

	tonPriv := DeriveTONKey(phrase)
	tronBytes := crypto.FromECDSA(tronPriv)

	s := &Software{
		addresses: map[chain.ID]string{chain.TRON: tronAddr},
		tonKey:    newSecureBytes(tonPriv),
		tronKey:   newSecureBytes(tronBytes),
	}
	wipe(tonPriv)
	wipe(tronBytes)

	if a, ok := addresses[chain.TON]; ok {
		s.addresses[chain.TON] = a
	}
	return s, nil
}

// Address returns the wallet address on id.
func (s *Software) Address(id chain.ID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr, ok := s.addresses[id]
	if !ok {
		return "", remiterr.WithDetails(remiterr.ErrNotFound, map[string]string{"chain": id.String()})
	}
	return addr, nil
}

// Sign signs the SHA-256 digest of the message payload: ed25519 on TON,
// recoverable secp256k1 on TRON.
func (s *Software) Sign(ctx context.Context, msg *message.Message) (*message.Signed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tonKey == nil {
		return nil, remiterr.WithDetails(remiterr.ErrSignerUnavailable, map[string]string{"reason": "signer closed"})
	}
	if from := s.addresses[msg.Chain]; from == "" || from != msg.From {
		return nil, remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{
			"reason": "message sender is not this wallet",
			"chain":  msg.Chain.String(),
		})
	}

	payload, err := msg.Payload()
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(payload)

	signed := &message.Signed{Message: msg, Payload: payload}
	switch msg.Chain {
	case chain.TON:
		priv := ed25519.PrivateKey(s.tonKey.Bytes())
		signed.Signature = ed25519.Sign(priv, digest[:])
		signed.PublicKey = append([]byte(nil), priv.Public().(ed25519.PublicKey)...)
	case chain.TRON:
		priv, err := crypto.ToECDSA(s.tronKey.Bytes())
		if err != nil {
			return nil, remiterr.WithCause(remiterr.ErrSignerUnavailable, err)
		}
		sig, err := crypto.Sign(digest[:], priv)
		if err != nil {
			return nil, remiterr.WithCause(remiterr.ErrSignerUnavailable, err)
		}
		signed.Signature = sig
		signed.PublicKey = crypto.CompressPubkey(&priv.PublicKey)
	default:
		return nil, remiterr.WithDetails(remiterr.ErrNotSupported, map[string]string{"chain": msg.Chain.String()})
	}
	return signed, nil
}

// Close wipes the keys.
func (s *Software) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tonKey != nil {
		s.tonKey.Destroy()
		s.tonKey = nil
	}
	if s.tronKey != nil {
		s.tronKey.Destroy()
		s.tronKey = nil
	}
}
