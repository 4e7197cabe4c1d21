// Package recipient validates and resolves transfer destinations. Each new
// resolution supersedes the previous one; only the latest result becomes
// the step's current data.
package recipient

import (
	"context"
	"math/big"
	"strings"

	"github.com/mrz1836/remit/internal/chain"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// Account is a resolved destination.
type Account struct {
	// Address is the canonical address funds are sent to.
	Address      string
	DisplayName  string
	MemoRequired bool
	// Bounceable is true when a failed transfer should bounce back (TON).
	Bounceable bool
	// Balance is the account's native balance in smallest units.
	Balance *big.Int
}

// AccountResolver looks up a destination on the ledger. The input may be
// an address or, where the chain supports it, a name.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, chainID chain.ID, input string) (*Account, error)
}

// Data is the recipient step's output. It is replaced wholesale on every
// resolution or comment edit and never mutated afterwards.
type Data struct {
	Chain      chain.ID
	RawAddress string
	Account    *Account
	Comment    string
	// MemoRequired is only known once Account is resolved.
	MemoRequired bool
	// IsName is true when RawAddress is a name such as a TON DNS domain.
	IsName bool
	Ready  bool
	// Err is ErrInvalidAddress, ErrRecipientUnresolved or ErrInvalidInput.
	// Unresolved data may still be Ready for raw-address sends.
	Err error

	gen uint64
}

// Address returns where funds go: the resolved address when known,
// otherwise the raw input.
func (d *Data) Address() string {
	if d.Account != nil && d.Account.Address != "" {
		return d.Account.Address
	}
	return d.RawAddress
}

// Bounceable reports the resolved bounce flag; unresolved sends never bounce.
func (d *Data) Bounceable() bool {
	return d.Account != nil && d.Account.Bounceable
}

// withComment returns a copy of d carrying comment, with readiness recomputed.
func (d *Data) withComment(comment string) *Data {
	next := *d
	next.Comment = comment
	next.evaluate()
	return &next
}

// evaluate recomputes Ready and the comment-related part of Err.
func (d *Data) evaluate() {
	if remiterr.Is(d.Err, remiterr.ErrInvalidAddress) {
		d.Ready = false
		return
	}
	if remiterr.Is(d.Err, remiterr.ErrInvalidInput) {
		d.Err = nil
	}

	if d.Comment != "" && !d.Chain.SupportsComment() {
		d.Ready = false
		if d.Err == nil {
			d.Err = remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{
				"reason": "comments are not supported on " + d.Chain.String(),
			})
		}
		return
	}

	switch {
	case d.Account == nil && d.IsName:
		d.Ready = false
	case d.MemoRequired && strings.TrimSpace(d.Comment) == "":
		d.Ready = false
	default:
		d.Ready = true
	}
}
