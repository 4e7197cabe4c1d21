// Package chain provides chain identifiers, asset and amount types, and the
// shared utilities (retry, rate limiting) used by the chain clients.
package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ID represents a supported blockchain.
type ID string

// Supported blockchain identifiers.
const (
	TON  ID = "ton"
	TRON ID = "tron"
)

// String returns the chain identifier string.
func (id ID) String() string {
	return string(id)
}

// IsValid returns true if the chain ID is a known chain.
func (id ID) IsValid() bool {
	switch id {
	case TON, TRON:
		return true
	default:
		return false
	}
}

// NativeSymbol returns the ticker of the chain's fee-paying coin.
func (id ID) NativeSymbol() string {
	switch id {
	case TON:
		return "TON"
	case TRON:
		return "TRX"
	default:
		return ""
	}
}

// NativeDecimals returns the decimal places of the chain's native coin.
func (id ID) NativeDecimals() int {
	switch id {
	case TON:
		return 9
	case TRON:
		return 6
	default:
		return 0
	}
}

// SupportsComment reports whether transfers on this chain can carry a text memo.
func (id ID) SupportsComment() bool {
	return id == TON
}

// ParseChainID parses a string into a chain ID.
func ParseChainID(s string) (ID, bool) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	return id, id.IsValid()
}

// AllChains returns all known chain IDs.
func AllChains() []ID {
	return []ID{TON, TRON}
}

// Kind classifies how an asset is transferred. The set is closed: every
// switch over Kind must handle all three values.
type Kind int

// Asset kinds.
const (
	KindNative     Kind = iota // chain coin (TON)
	KindJetton                 // fungible token on TON
	KindStablecoin             // TRC-20 stable-coin on TRON
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindJetton:
		return "jetton"
	case KindStablecoin:
		return "stablecoin"
	default:
		return "unknown"
	}
}

// Asset identifies a transferable unit. Native assets have an empty Address.
type Asset struct {
	Chain    ID     `json:"chain" yaml:"chain"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Address  string `json:"address,omitempty" yaml:"address,omitempty"`
	Decimals int    `json:"decimals" yaml:"decimals"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	// Pegged marks a token worth one unit of the USD fiat currency.
	// It does not affect how the token is transferred.
	Pegged bool `json:"pegged,omitempty" yaml:"pegged,omitempty"`
}

// NativeAsset returns the native coin of a chain.
func NativeAsset(id ID) Asset {
	return Asset{
		Chain:    id,
		Kind:     KindNative,
		Decimals: id.NativeDecimals(),
		Symbol:   id.NativeSymbol(),
	}
}

// IsNative reports whether the asset is its chain's coin.
func (a Asset) IsNative() bool {
	return a.Address == ""
}

// Equal compares assets by (chain, address).
func (a Asset) Equal(b Asset) bool {
	return a.Chain == b.Chain && strings.EqualFold(a.Address, b.Address)
}

// ID returns a stable identifier for the asset, used in cache and fee keys.
func (a Asset) ID() string {
	if a.IsNative() {
		return string(a.Chain) + ":native"
	}
	return string(a.Chain) + ":" + strings.ToLower(a.Address)
}

// FeeAsset returns the asset that pays network fees for transfers of a.
func (a Asset) FeeAsset() Asset {
	return NativeAsset(a.Chain)
}

// AssetAmount is an amount of an asset in its smallest unit.
type AssetAmount struct {
	Asset Asset
	Wei   *big.Int
}

// NewAssetAmount creates an amount. A negative amount is a programming error and panics.
func NewAssetAmount(asset Asset, wei *big.Int) AssetAmount {
	if wei == nil {
		wei = new(big.Int)
	}
	if wei.Sign() < 0 {
		panic("chain: negative asset amount " + wei.String())
	}
	return AssetAmount{Asset: asset, Wei: new(big.Int).Set(wei)}
}

// ZeroAmount returns a zero amount of the asset.
func ZeroAmount(asset Asset) AssetAmount {
	return AssetAmount{Asset: asset, Wei: new(big.Int)}
}

// IsZero reports whether the amount is zero.
func (a AssetAmount) IsZero() bool {
	return a.Wei == nil || a.Wei.Sign() == 0
}

// Cmp compares the smallest-unit values of two amounts.
func (a AssetAmount) Cmp(b AssetAmount) int {
	return a.int().Cmp(b.int())
}

// Add returns a + b in a's asset.
func (a AssetAmount) Add(b AssetAmount) AssetAmount {
	return NewAssetAmount(a.Asset, new(big.Int).Add(a.int(), b.int()))
}

// Sub returns a - b. It panics when the result would be negative.
func (a AssetAmount) Sub(b AssetAmount) AssetAmount {
	return NewAssetAmount(a.Asset, new(big.Int).Sub(a.int(), b.int()))
}

// Relative returns the human decimal amount, e.g. 1.5 for 1500000000 nanoton.
func (a AssetAmount) Relative() decimal.Decimal {
	return decimal.NewFromBigInt(a.int(), int32(-a.Asset.Decimals)) //nolint:gosec // decimals are small config values
}

// String returns the formatted relative amount without trailing zeros.
func (a AssetAmount) String() string {
	return FormatDecimalAmount(a.int(), a.Asset.Decimals)
}

func (a AssetAmount) int() *big.Int {
	if a.Wei == nil {
		return new(big.Int)
	}
	return a.Wei
}

// AmountFromRelative converts a decimal amount to smallest units, truncating
// digits beyond the asset's precision.
func AmountFromRelative(asset Asset, rel decimal.Decimal) AssetAmount {
	if rel.Sign() <= 0 {
		return ZeroAmount(asset)
	}
	scaled := rel.Shift(int32(asset.Decimals)).Truncate(0) //nolint:gosec // decimals are small config values
	return NewAssetAmount(asset, scaled.BigInt())
}

// AddressValidator provides chain-specific address syntax validation.
type AddressValidator interface {
	// ValidateAddress checks if an address is syntactically valid for the chain.
	ValidateAddress(address string) error
	// IsName reports whether a valid input is a name that must be resolved
	// to an address before funds can be sent to it.
	IsName(input string) bool
}

// BalanceReader provides balance queries for an owner address.
type BalanceReader interface {
	// GetBalance returns the owner's balance of the asset in smallest units.
	GetBalance(ctx context.Context, owner string, asset Asset) (*big.Int, error)
}
