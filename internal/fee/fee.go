// Package fee wraps asynchronous fee emulation. The gateway re-estimates
// whenever the transfer key changes and only ever applies the result of the
// most recent request.
package fee

import (
	"context"
	"strconv"
	"strings"

	"github.com/mrz1836/remit/internal/chain"
)

// Request describes the transfer to emulate.
type Request struct {
	// From is the sender address on the asset's chain.
	From string
	// To is the resolved recipient address.
	To      string
	Comment string
	Amount  chain.AssetAmount
	Max     bool
	// Bounceable mirrors the recipient's resolved bounce flag (TON only).
	Bounceable bool
}

// Key identifies a request for supersession checks: chain, asset id,
// amount, recipient and max flag, plus the comment which changes the
// emulated message.
func (r Request) Key() string {
	amt := "0"
	if r.Amount.Wei != nil {
		amt = r.Amount.Wei.String()
	}
	return strings.Join([]string{
		string(r.Amount.Asset.Chain),
		r.Amount.Asset.ID(),
		amt,
		r.To,
		strconv.FormatBool(r.Max),
		r.Comment,
	}, "|")
}

// Ready reports whether the request has enough data to be estimated.
func (r Request) Ready() bool {
	return r.To != "" && (r.Max || !r.Amount.IsZero())
}

// Estimate is an emulated network fee.
type Estimate struct {
	// Fee is charged in the chain's native asset.
	Fee chain.AssetAmount
}

// Estimator emulates a transfer and returns its fee.
type Estimator interface {
	EstimateFee(ctx context.Context, req Request) (*Estimate, error)
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(ctx context.Context, req Request) (*Estimate, error)

// EstimateFee calls f.
func (f EstimatorFunc) EstimateFee(ctx context.Context, req Request) (*Estimate, error) {
	return f(ctx, req)
}
