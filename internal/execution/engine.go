// Package execution turns a confirmed transfer intent into a broadcast
// transaction: balance check, unlock, build, sign, submit, invalidate.
package execution

import (
	"context"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/message"
	"github.com/mrz1836/remit/internal/metrics"
	"github.com/mrz1836/remit/internal/signer"
	"github.com/mrz1836/remit/internal/transfer"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// BalanceSource reads the wallet's balance of an asset from the chain,
// bypassing any cache.
type BalanceSource interface {
	Fetch(ctx context.Context, asset chain.Asset) (chain.AssetAmount, error)
}

// Broadcaster submits signed messages.
type Broadcaster interface {
	Submit(ctx context.Context, signed *message.Signed) (*transfer.Receipt, error)
}

// Invalidator is told when a transfer went out so cached wallet state
// (balances, history) can be refreshed.
type Invalidator interface {
	InvalidateAfterTransfer()
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func()

// InvalidateAfterTransfer calls f.
func (f InvalidatorFunc) InvalidateAfterTransfer() { f() }

// Config configures an Engine.
type Config struct {
	Balances    BalanceSource
	Signers     signer.Provider
	Broadcaster Broadcaster
	// Invalidator is optional.
	Invalidator Invalidator
	Messages    message.Options
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// Engine executes transfers.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates an Engine. Zero message options fall back to
// message.DefaultOptions.
func NewEngine(cfg Config) *Engine {
	if cfg.Messages.JettonGas == nil && cfg.Messages.JettonForwardTON == nil && cfg.Messages.TRC20FeeLimit == 0 {
		cfg.Messages = message.DefaultOptions()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Execute sends the transfer described by intent. A user abort while
// unlocking returns ErrUserCancelled; other unlock and signing failures
// return ErrSignerUnavailable and submission failures ErrBroadcastFailed.
func (e *Engine) Execute(ctx context.Context, intent *transfer.Intent) (*transfer.Receipt, error) {
	chainID := intent.Asset().Chain
	receipt, err := e.execute(ctx, intent)

	switch {
	case err == nil:
		e.cfg.Metrics.ExecutionOutcome(chainID.String(), metrics.OutcomeSuccess)
	case remiterr.IsSilent(err):
		e.cfg.Metrics.ExecutionOutcome(chainID.String(), metrics.OutcomeCancelled)
		e.logger.Info("transfer cancelled", zap.String("chain", chainID.String()))
	default:
		e.cfg.Metrics.ExecutionOutcome(chainID.String(), metrics.OutcomeError)
		e.logger.Warn("transfer failed",
			zap.String("chain", chainID.String()),
			zap.String("code", remiterr.Code(err)),
			zap.Error(err),
		)
	}
	return receipt, err
}

func (e *Engine) execute(ctx context.Context, intent *transfer.Intent) (*transfer.Receipt, error) {
	if err := intent.Check(); err != nil {
		return nil, err
	}
	if intent.Fee == nil {
		return nil, remiterr.ErrFeeNotReady
	}

	send, err := e.checkBalances(ctx, intent)
	if err != nil {
		return nil, err
	}

	s, err := e.cfg.Signers.Obtain(ctx, intent.WalletID, signer.PurposeTransfer)
	if err != nil {
		if remiterr.IsSilent(err) {
			return nil, remiterr.ErrUserCancelled
		}
		return nil, remiterr.WithCause(remiterr.ErrSignerUnavailable, err)
	}
	defer s.Close()

	asset := intent.Asset()
	from, err := s.Address(asset.Chain)
	if err != nil {
		return nil, remiterr.WithCause(remiterr.ErrSignerUnavailable, err)
	}

	msg, err := message.Build(message.Spec{
		From:       from,
		To:         intent.Recipient.Address(),
		Amount:     send,
		Comment:    intent.Recipient.Comment,
		Bounceable: intent.Recipient.Bounceable(),
		Max:        intent.Max && asset.Kind == chain.KindNative && asset.Chain == chain.TON,
	}, e.cfg.Messages)
	if err != nil {
		return nil, err
	}

	signed, err := s.Sign(ctx, msg)
	if err != nil {
		return nil, remiterr.WithCause(remiterr.ErrSignerUnavailable, err)
	}

	receipt, err := e.cfg.Broadcaster.Submit(ctx, signed)
	if err != nil {
		return nil, remiterr.WithCause(remiterr.ErrBroadcastFailed, err)
	}
	receipt.Chain = asset.Chain
	receipt.To = intent.Recipient.Address()
	receipt.Amount = send
	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = time.Now().UTC()
	}

	if e.cfg.Invalidator != nil {
		e.cfg.Invalidator.InvalidateAfterTransfer()
	}

	e.logger.Info("transfer submitted",
		zap.String("chain", asset.Chain.String()),
		zap.String("asset", asset.Symbol),
		zap.String("amount", send.String()),
		zap.String("tx_hash", receipt.TxHash),
	)
	return receipt, nil
}

// checkBalances verifies the wallet can cover the transfer and its fee
// and returns the amount to send. Balances are read fresh from the chain.
// Max sends the balance read here, not the display amount from the wizard;
// a TRX max send is the balance less the fee.
func (e *Engine) checkBalances(ctx context.Context, intent *transfer.Intent) (chain.AssetAmount, error) {
	asset := intent.Asset()
	fee := intent.Fee.Fee.Wei
	if fee == nil {
		fee = new(big.Int)
	}

	bal, err := e.cfg.Balances.Fetch(ctx, asset)
	if err != nil {
		return chain.AssetAmount{}, remiterr.Wrap(err, "reading %s balance", asset.Symbol)
	}

	send := intent.Amount
	if intent.Max {
		send = bal
	}
	if send.IsZero() {
		return chain.AssetAmount{}, insufficient(remiterr.ErrInsufficientBalance, bal, send.Wei)
	}

	switch asset.Kind {
	case chain.KindNative:
		need := new(big.Int).Set(send.Wei)
		if intent.Max {
			// carry-all mode pays the fee out of the balance
			need = new(big.Int).Add(fee, big.NewInt(1))
		} else {
			need.Add(need, fee)
		}
		if bal.Cmp(chain.NewAssetAmount(asset, need)) < 0 {
			return chain.AssetAmount{}, insufficient(remiterr.ErrInsufficientBalance, bal, need)
		}
		if intent.Max && asset.Chain == chain.TRON {
			send = chain.NewAssetAmount(asset, new(big.Int).Sub(bal.Wei, fee))
		}
	case chain.KindJetton, chain.KindStablecoin:
		if bal.Cmp(send) < 0 {
			return chain.AssetAmount{}, insufficient(remiterr.ErrInsufficientBalance, bal, send.Wei)
		}
		native, err := e.cfg.Balances.Fetch(ctx, asset.FeeAsset())
		if err != nil {
			return chain.AssetAmount{}, remiterr.Wrap(err, "reading %s balance", asset.Chain.NativeSymbol())
		}
		need := new(big.Int).Set(fee)
		if asset.Kind == chain.KindJetton && e.cfg.Messages.JettonGas != nil {
			need.Add(need, e.cfg.Messages.JettonGas)
		}
		if native.Cmp(chain.NewAssetAmount(native.Asset, need)) < 0 {
			return chain.AssetAmount{}, insufficient(remiterr.ErrInsufficientSecondaryBalance, native, need)
		}
	default:
		return chain.AssetAmount{}, remiterr.WithDetails(remiterr.ErrUnsupportedKind, map[string]string{"kind": asset.Kind.String()})
	}
	return send, nil
}

func insufficient(sentinel error, have chain.AssetAmount, need *big.Int) error {
	return remiterr.WithDetails(sentinel, map[string]string{
		"available": have.String(),
		"required":  chain.FormatDecimalAmount(need, have.Asset.Decimals),
		"symbol":    have.Asset.Symbol,
	})
}
