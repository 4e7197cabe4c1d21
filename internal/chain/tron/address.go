// Package tron provides TRON address encoding, TRC-20 call data and a
// TronGrid client for account balances.
package tron

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const (
	// addressPrefix is the version byte of every mainnet TRON address.
	addressPrefix = 0x41

	// addressLen is the decoded payload length without checksum.
	addressLen = 21

	checksumLen = 4
)

var (
	// ErrInvalidChecksum indicates checksum validation failed.
	ErrInvalidChecksum = errors.New("invalid checksum")

	// ErrInvalidPrefix indicates the address does not start with 0x41.
	ErrInvalidPrefix = errors.New("invalid address prefix")
)

// Address is a decoded TRON address: the 0x41 prefix followed by a 20-byte account id.
type Address [addressLen]byte

// DecodeAddress decodes and verifies a base58check TRON address ("T...").
func DecodeAddress(s string) (Address, error) {
	var addr Address

	decoded, err := base58.Decode(s)
	if err != nil {
		return addr, fmt.Errorf("%w: %w", remiterr.ErrInvalidAddress, err)
	}
	if len(decoded) != addressLen+checksumLen {
		return addr, fmt.Errorf("%w: expected %d bytes, got %d", remiterr.ErrInvalidAddress, addressLen+checksumLen, len(decoded))
	}

	payload := decoded[:addressLen]
	if !bytes.Equal(decoded[addressLen:], checksum(payload)) {
		return addr, ErrInvalidChecksum
	}
	if payload[0] != addressPrefix {
		return addr, fmt.Errorf("%w: 0x%02x", ErrInvalidPrefix, payload[0])
	}

	copy(addr[:], payload)
	return addr, nil
}

// AddressFromEVM builds a TRON address from a 20-byte account id, as derived
// from a secp256k1 public key.
func AddressFromEVM(account common.Address) Address {
	var addr Address
	addr[0] = addressPrefix
	copy(addr[1:], account.Bytes())
	return addr
}

// EVM returns the 20-byte account id used in ABI-encoded call data.
func (a Address) EVM() common.Address {
	return common.BytesToAddress(a[1:])
}

// String returns the base58check form.
func (a Address) String() string {
	full := make([]byte, 0, addressLen+checksumLen)
	full = append(full, a[:]...)
	full = append(full, checksum(a[:])...)
	return base58.Encode(full)
}

// Validator checks TRON address syntax.
type Validator struct{}

// ValidateAddress returns nil for a valid base58check TRON address.
func (Validator) ValidateAddress(s string) error {
	if _, err := DecodeAddress(s); err != nil {
		return remiterr.WithCause(remiterr.ErrInvalidAddress, err)
	}
	return nil
}

// IsName always returns false: TRON has no name service in this wallet.
func (Validator) IsName(string) bool {
	return false
}

// checksum returns the first 4 bytes of double SHA-256.
func checksum(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}
