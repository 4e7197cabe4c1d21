package recipient

import (
	"context"
	"fmt"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/chain/ton"
	"github.com/mrz1836/remit/internal/chain/tron"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// TONDirectory is the subset of the TonAPI client used for lookups.
type TONDirectory interface {
	GetAccount(ctx context.Context, id string) (*ton.AccountInfo, error)
	ResolveDNS(ctx context.Context, domain string) (string, error)
}

// TRONDirectory is the subset of the TronGrid client used for lookups.
type TRONDirectory interface {
	GetAccount(ctx context.Context, address string) (*tron.AccountInfo, error)
}

// Ledger resolves accounts through the per-chain API clients.
type Ledger struct {
	TON  TONDirectory
	TRON TRONDirectory
}

// Compile-time interface check
var _ AccountResolver = (*Ledger)(nil)

// ResolveAccount dispatches to the chain's directory.
func (l *Ledger) ResolveAccount(ctx context.Context, chainID chain.ID, input string) (*Account, error) {
	switch chainID {
	case chain.TON:
		if l.TON == nil {
			break
		}
		return l.resolveTON(ctx, input)
	case chain.TRON:
		if l.TRON == nil {
			break
		}
		return l.resolveTRON(ctx, input)
	}
	return nil, remiterr.WithDetails(remiterr.ErrNotSupported, map[string]string{"chain": chainID.String()})
}

func (l *Ledger) resolveTON(ctx context.Context, input string) (*Account, error) {
	target := input
	var name string
	if ton.IsDNSName(input) {
		resolved, err := l.TON.ResolveDNS(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", input, err)
		}
		target, name = resolved, input
	}

	addr, err := ton.ParseAddress(target)
	if err != nil {
		return nil, fmt.Errorf("parsing resolved address: %w", err)
	}

	info, err := l.TON.GetAccount(ctx, addr.Raw())
	if err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}

	// Uninitialized accounts cannot bounce; a friendly non-bounceable
	// address states the sender's intent explicitly.
	bounceable := info.IsActive() && (!addr.Friendly || addr.Bounceable)

	display := info.Name
	if display == "" {
		display = name
	}

	return &Account{
		Address:      addr.Format(bounceable),
		DisplayName:  display,
		MemoRequired: info.MemoRequired,
		Bounceable:   bounceable,
		Balance:      info.Balance,
	}, nil
}

func (l *Ledger) resolveTRON(ctx context.Context, input string) (*Account, error) {
	info, err := l.TRON.GetAccount(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	return &Account{
		Address: input,
		Balance: info.Balance,
	}, nil
}
