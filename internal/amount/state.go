package amount

import (
	"github.com/shopspring/decimal"

	"github.com/mrz1836/remit/internal/chain"
)

// FiatDecimals is the number of decimal places accepted in fiat mode.
const FiatDecimals = 2

// State is the amount step's model. FiatMode decides which side is the
// source of truth; the other side is always derived from it.
type State struct {
	// InputText is the canonical text the user typed, in the current mode.
	InputText string
	// Amount is the asset amount in smallest units.
	Amount chain.AssetAmount
	// Fiat is the fiat equivalent. Invalid when no price is known.
	Fiat decimal.NullDecimal
	// FiatMode is true when the user types a fiat figure.
	FiatMode bool
	// Max is true while the entire balance is selected.
	Max bool
	// Unpriced is set in fiat mode when no price was known for the typed
	// figure. Amount is then zero and must not be sent.
	Unpriced bool
}

// NewState returns the zero state for an asset.
func NewState(asset chain.Asset, fiatMode bool) State {
	return State{
		InputText: "0",
		Amount:    chain.ZeroAmount(asset),
		Fiat:      decimal.NewNullDecimal(decimal.Zero),
		FiatMode:  fiatMode,
	}
}

// Asset returns the selected asset.
func (s State) Asset() chain.Asset {
	return s.Amount.Asset
}

// InputDecimals returns the decimal limit of the current mode.
func (s State) InputDecimals() int {
	if s.FiatMode {
		return FiatDecimals
	}
	return s.Amount.Asset.Decimals
}

// fiatOf derives the fiat value of an amount at price.
func fiatOf(amount chain.AssetAmount, price decimal.NullDecimal) decimal.NullDecimal {
	if !price.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(amount.Relative().Mul(price.Decimal))
}

func priced(price decimal.NullDecimal) bool {
	return price.Valid && price.Decimal.Sign() > 0
}

// amountOf derives the asset amount bought by a fiat value at price.
// Without a usable price the amount is zero; callers mark the state Unpriced.
func amountOf(asset chain.Asset, fiat decimal.Decimal, price decimal.NullDecimal) chain.AssetAmount {
	if !priced(price) {
		return chain.ZeroAmount(asset)
	}
	return chain.AmountFromRelative(asset, fiat.DivRound(price.Decimal, int32(asset.Decimals)+1)) //nolint:gosec // decimals are small config values
}

// fiatText formats a fiat value as input text, rounded to FiatDecimals.
func fiatText(v decimal.Decimal) string {
	return v.Round(FiatDecimals).String()
}
