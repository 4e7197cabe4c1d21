// Package message builds the chain-specific transfer payloads the signer
// signs and the relay submits. Native coin, jetton and TRC-20 transfers have
// distinct shapes; Build dispatches on the asset's chain and kind.
package message

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/chain/tron"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// TON send modes.
const (
	// SendModePayFeesSeparately with ignore-errors is the regular wallet mode.
	SendModePayFeesSeparately uint8 = 3
	// SendModeCarryAll sends the entire remaining balance; the fee is
	// deducted from the transferred value.
	SendModeCarryAll uint8 = 128
)

// Message is an unsigned transfer.
type Message struct {
	Chain chain.ID     `json:"chain"`
	Kind  chain.Kind   `json:"kind"`
	From  string       `json:"from"`
	TON   *TONMessage  `json:"ton,omitempty"`
	TRON  *TRONCall    `json:"tron,omitempty"`
	TRX   *TRXTransfer `json:"trx,omitempty"`
}

// TONMessage is an internal message from the sender's wallet.
type TONMessage struct {
	// Destination is the recipient for native sends. For jettons the relay
	// routes to the sender's jetton wallet derived from Jetton.Master.
	Destination string   `json:"destination,omitempty"`
	Value       *big.Int `json:"value"`
	Bounce      bool     `json:"bounce"`
	Mode        uint8    `json:"mode"`
	Comment     string   `json:"comment,omitempty"`
	Jetton      *Jetton  `json:"jetton,omitempty"`
}

// Jetton is the body of a jetton transfer (op 0x0f8a7ea5).
type Jetton struct {
	Master              string   `json:"master"`
	Amount              *big.Int `json:"amount"`
	Recipient           string   `json:"recipient"`
	ResponseDestination string   `json:"response_destination"`
	ForwardTONAmount    *big.Int `json:"forward_ton_amount"`
	Comment             string   `json:"comment,omitempty"`
}

// TRONCall is a TRC-20 TriggerSmartContract call.
type TRONCall struct {
	Contract string `json:"contract"`
	Owner    string `json:"owner"`
	// Data is transfer(address,uint256) call data.
	Data []byte `json:"data"`
	// FeeLimit caps energy spend, in sun.
	FeeLimit int64 `json:"fee_limit"`
}

// TRXTransfer is a native TransferContract.
type TRXTransfer struct {
	Owner string `json:"owner"`
	To    string `json:"to"`
	// Amount is in sun.
	Amount *big.Int `json:"amount"`
}

// Payload returns the canonical bytes covered by the signature.
func (m *Message) Payload() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return data, nil
}

// Signed is a message with its signature.
type Signed struct {
	Message   *Message `json:"message"`
	Payload   []byte   `json:"payload"`
	Signature []byte   `json:"signature"`
	PublicKey []byte   `json:"public_key"`
}

// Options tunes token transfers.
type Options struct {
	// JettonGas is the TON attached to a jetton transfer to pay for its execution.
	JettonGas *big.Int
	// JettonForwardTON is forwarded to the recipient with the transfer notification.
	JettonForwardTON *big.Int
	// TRC20FeeLimit caps energy spend in sun.
	TRC20FeeLimit int64
}

// DefaultOptions returns the wallet defaults: 0.05 TON jetton gas, 1 nanoton
// forward amount and a 30 TRX fee limit.
func DefaultOptions() Options {
	return Options{
		JettonGas:        big.NewInt(50_000_000),
		JettonForwardTON: big.NewInt(1),
		TRC20FeeLimit:    30_000_000,
	}
}

// Spec is the input to Build.
type Spec struct {
	From       string
	To         string
	Amount     chain.AssetAmount
	Comment    string
	Bounceable bool
	// Max marks a native send of the entire balance.
	Max bool
}

// Build creates the message for spec's asset. Jettons exist only on TON
// and TRC-20 stablecoins only on TRON; any other pairing is rejected.
func Build(spec Spec, opts Options) (*Message, error) {
	if spec.Amount.Wei == nil || spec.Amount.Wei.Sign() < 0 {
		return nil, remiterr.ErrInvalidAmount
	}
	asset := spec.Amount.Asset

	switch {
	case asset.Kind == chain.KindNative && asset.Chain == chain.TON:
		return buildNative(spec)
	case asset.Kind == chain.KindNative && asset.Chain == chain.TRON:
		return buildTRX(spec)
	case asset.Kind == chain.KindJetton && asset.Chain == chain.TON:
		return buildJetton(spec, opts)
	case asset.Kind == chain.KindStablecoin && asset.Chain == chain.TRON:
		return buildTRC20(spec, opts)
	default:
		return nil, remiterr.WithDetails(remiterr.ErrUnsupportedKind, map[string]string{
			"chain": asset.Chain.String(),
			"kind":  asset.Kind.String(),
		})
	}
}

func buildNative(spec Spec) (*Message, error) {
	mode := SendModePayFeesSeparately
	if spec.Max {
		mode = SendModeCarryAll
	}

	return &Message{
		Chain: chain.TON,
		Kind:  chain.KindNative,
		From:  spec.From,
		TON: &TONMessage{
			Destination: spec.To,
			Value:       new(big.Int).Set(spec.Amount.Wei),
			Bounce:      spec.Bounceable,
			Mode:        mode,
			Comment:     spec.Comment,
		},
	}, nil
}

func buildJetton(spec Spec, opts Options) (*Message, error) {
	if spec.Amount.Asset.Address == "" {
		return nil, remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"reason": "jetton master missing"})
	}

	return &Message{
		Chain: chain.TON,
		Kind:  chain.KindJetton,
		From:  spec.From,
		TON: &TONMessage{
			Value:  orZero(opts.JettonGas),
			Bounce: true,
			Mode:   SendModePayFeesSeparately,
			Jetton: &Jetton{
				Master:              spec.Amount.Asset.Address,
				Amount:              new(big.Int).Set(spec.Amount.Wei),
				Recipient:           spec.To,
				ResponseDestination: spec.From,
				ForwardTONAmount:    orZero(opts.JettonForwardTON),
				Comment:             spec.Comment,
			},
		},
	}, nil
}

// buildTRX ignores Max: TRON has no carry-all mode, so the caller sends
// the balance less the fee.
func buildTRX(spec Spec) (*Message, error) {
	if spec.Comment != "" {
		return nil, remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"reason": "TRX transfers cannot carry a comment"})
	}
	if _, err := tron.DecodeAddress(spec.To); err != nil {
		return nil, remiterr.WithCause(remiterr.ErrInvalidAddress, err)
	}

	return &Message{
		Chain: chain.TRON,
		Kind:  chain.KindNative,
		From:  spec.From,
		TRX: &TRXTransfer{
			Owner:  spec.From,
			To:     spec.To,
			Amount: new(big.Int).Set(spec.Amount.Wei),
		},
	}, nil
}

func buildTRC20(spec Spec, opts Options) (*Message, error) {
	if spec.Comment != "" {
		return nil, remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"reason": "TRC-20 transfers cannot carry a comment"})
	}

	to, err := tron.DecodeAddress(spec.To)
	if err != nil {
		return nil, remiterr.WithCause(remiterr.ErrInvalidAddress, err)
	}
	data, err := tron.EncodeTransfer(to, spec.Amount.Wei)
	if err != nil {
		return nil, err
	}

	return &Message{
		Chain: chain.TRON,
		Kind:  chain.KindStablecoin,
		From:  spec.From,
		TRON: &TRONCall{
			Contract: spec.Amount.Asset.Address,
			Owner:    spec.From,
			Data:     data,
			FeeLimit: opts.TRC20FeeLimit,
		},
	}, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
