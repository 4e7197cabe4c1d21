package amount

import (
	"github.com/mrz1836/remit/internal/chain"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// Validate reports whether s can proceed against balance. With Max set the
// whole balance is checked rather than the displayed figure. A fiat figure
// typed without a price returns ErrPriceUnavailable.
func Validate(s State, balance chain.AssetAmount) error {
	if s.Unpriced && !s.Max {
		return remiterr.ErrPriceUnavailable
	}
	amt := s.Amount
	if s.Max {
		amt = balance
	}

	if amt.IsZero() {
		return remiterr.ErrInvalidAmount
	}
	if !balance.Asset.Equal(amt.Asset) {
		return remiterr.WithDetails(remiterr.ErrInvalidAmount, map[string]string{
			"asset": amt.Asset.ID(),
		})
	}
	if balance.Cmp(amt) < 0 {
		return remiterr.WithDetails(remiterr.ErrInsufficientBalance, map[string]string{
			"available": balance.String(),
			"requested": amt.String(),
			"symbol":    amt.Asset.Symbol,
		})
	}
	return nil
}

// Effective returns the amount that will be sent: the balance when Max is set.
func Effective(s State, balance chain.AssetAmount) chain.AssetAmount {
	if s.Max && balance.Wei != nil {
		return balance
	}
	return s.Amount
}
