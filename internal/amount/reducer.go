package amount

import (
	"github.com/shopspring/decimal"

	"github.com/mrz1836/remit/internal/chain"
)

// Action is a transition of the amount state. The set is closed.
type Action interface {
	isAction()
}

// SelectAsset switches the asset being sent.
type SelectAsset struct {
	Asset chain.Asset
}

// Input applies a keystroke. Price is the current fiat rate of the asset.
type Input struct {
	Text  string
	Price decimal.NullDecimal
}

// SetMax toggles selection of the entire balance.
type SetMax struct {
	Balance chain.AssetAmount
	Price   decimal.NullDecimal
}

// RefreshPrice updates the derived fiat side after a price tick.
type RefreshPrice struct {
	Price decimal.NullDecimal
}

// ToggleFiat swaps the source of truth between asset and fiat.
type ToggleFiat struct {
	Price decimal.NullDecimal
}

func (SelectAsset) isAction()  {}
func (Input) isAction()        {}
func (SetMax) isAction()       {}
func (RefreshPrice) isAction() {}
func (ToggleFiat) isAction()   {}

// Reducer applies actions to State. It holds no state of its own.
type Reducer struct {
	Normalizer Normalizer
}

// NewReducer returns a reducer using the given normalizer.
func NewReducer(n Normalizer) Reducer {
	return Reducer{Normalizer: n}
}

// Reduce returns the state after applying action. An action whose
// precondition does not hold returns s unchanged.
func (r Reducer) Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SelectAsset:
		return selectAsset(s, a)
	case Input:
		return r.input(s, a)
	case SetMax:
		return setMax(s, a)
	case RefreshPrice:
		return refreshPrice(s, a)
	case ToggleFiat:
		return toggleFiat(s, a)
	default:
		return s
	}
}

func selectAsset(s State, a SelectAsset) State {
	if s.Amount.Asset.Equal(a.Asset) {
		return s
	}
	return NewState(a.Asset, s.FiatMode)
}

func (r Reducer) input(s State, a Input) State {
	text, err := r.Normalizer.Parse(a.Text, s.InputDecimals())
	if err != nil {
		return s
	}

	next := State{InputText: text, FiatMode: s.FiatMode}
	value := ParseCanonical(text)
	asset := s.Asset()

	if s.FiatMode {
		next.Fiat = decimal.NewNullDecimal(value)
		next.Amount = amountOf(asset, value, a.Price)
		next.Unpriced = value.Sign() > 0 && !priced(a.Price)
	} else {
		next.Amount = chain.AmountFromRelative(asset, value)
		next.Fiat = fiatOf(next.Amount, a.Price)
	}
	return next
}

// setMax in fiat mode needs a price to show the balance's fiat value.
func setMax(s State, a SetMax) State {
	if a.Balance.Wei == nil || !a.Balance.Asset.Equal(s.Asset()) {
		return s
	}
	if s.Max {
		return NewState(s.Asset(), s.FiatMode)
	}
	if s.FiatMode && !priced(a.Price) {
		return s
	}

	next := State{
		Amount:   chain.NewAssetAmount(s.Asset(), a.Balance.Wei),
		FiatMode: s.FiatMode,
		Max:      true,
	}
	next.Fiat = fiatOf(next.Amount, a.Price)

	if s.FiatMode {
		next.InputText = fiatText(next.Fiat.Decimal)
	} else {
		next.InputText = next.Amount.String()
	}
	return next
}

// refreshPrice keeps the typed side. A fiat figure typed without a price
// gets its asset amount once a price arrives.
func refreshPrice(s State, a RefreshPrice) State {
	if s.FiatMode {
		if s.Unpriced && priced(a.Price) {
			s.Amount = amountOf(s.Asset(), s.Fiat.Decimal, a.Price)
			s.Unpriced = false
		}
		return s
	}
	s.Fiat = fiatOf(s.Amount, a.Price)
	return s
}

func toggleFiat(s State, a ToggleFiat) State {
	if !priced(a.Price) {
		return s
	}

	if s.FiatMode {
		// Asset amount becomes the source; it already holds the derived value.
		amt := s.Amount
		if s.Unpriced {
			amt = amountOf(s.Asset(), s.Fiat.Decimal, a.Price)
		}
		return State{
			InputText: amt.String(),
			Amount:    amt,
			Fiat:      fiatOf(amt, a.Price),
			Max:       s.Max,
		}
	}

	fiat := fiatOf(s.Amount, a.Price).Decimal.Round(FiatDecimals)
	next := State{
		InputText: fiatText(fiat),
		Fiat:      decimal.NewNullDecimal(fiat),
		FiatMode:  true,
		Max:       s.Max,
	}
	if s.Max {
		next.Amount = s.Amount
	} else {
		next.Amount = amountOf(s.Asset(), fiat, a.Price)
	}
	return next
}
