package execution_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/execution"
	"github.com/mrz1836/remit/internal/fee"
	"github.com/mrz1836/remit/internal/message"
	"github.com/mrz1836/remit/internal/recipient"
	"github.com/mrz1836/remit/internal/signer"
	"github.com/mrz1836/remit/internal/transfer"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const (
	tonSender    = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	tonRecipient = "0:0000000000000000000000000000000000000000000000000000000000000001"
	tronSender   = "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"
	tronTo       = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

var (
	errHardware = errors.New("device disconnected")
	errRelay    = errors.New("relay rejected")

	tonAsset = chain.NativeAsset(chain.TON)
	trxAsset = chain.NativeAsset(chain.TRON)
	jetton   = chain.Asset{Chain: chain.TON, Kind: chain.KindJetton, Address: "0:abc", Decimals: 6, Symbol: "USDT"}
	usdtTRON = chain.Asset{Chain: chain.TRON, Kind: chain.KindStablecoin, Address: tronTo, Decimals: 6, Symbol: "USDT"}
)

type mockBalances struct {
	balances map[string]int64
	// cached is what a cache would serve; the engine must not read it.
	cached map[string]int64
}

func (m *mockBalances) Balance(_ context.Context, asset chain.Asset) (chain.AssetAmount, error) {
	return chain.NewAssetAmount(asset, big.NewInt(m.cached[asset.ID()])), nil
}

func (m *mockBalances) Fetch(_ context.Context, asset chain.Asset) (chain.AssetAmount, error) {
	wei, ok := m.balances[asset.ID()]
	if !ok {
		return chain.AssetAmount{}, remiterr.ErrNotFound
	}
	return chain.NewAssetAmount(asset, big.NewInt(wei)), nil
}

type mockSigner struct {
	closed   atomic.Bool
	signFunc func(ctx context.Context, msg *message.Message) (*message.Signed, error)
}

func (m *mockSigner) Address(id chain.ID) (string, error) {
	switch id {
	case chain.TON:
		return tonSender, nil
	case chain.TRON:
		return tronSender, nil
	default:
		return "", remiterr.ErrNotFound
	}
}

func (m *mockSigner) Sign(ctx context.Context, msg *message.Message) (*message.Signed, error) {
	if m.signFunc != nil {
		return m.signFunc(ctx, msg)
	}
	payload, err := msg.Payload()
	if err != nil {
		return nil, err
	}
	return &message.Signed{Message: msg, Payload: payload, Signature: []byte("sig")}, nil
}

func (m *mockSigner) Close() { m.closed.Store(true) }

type mockBroadcaster struct {
	submitted  *message.Signed
	submitFunc func(ctx context.Context, signed *message.Signed) (*transfer.Receipt, error)
}

func (m *mockBroadcaster) Submit(ctx context.Context, signed *message.Signed) (*transfer.Receipt, error) {
	m.submitted = signed
	if m.submitFunc != nil {
		return m.submitFunc(ctx, signed)
	}
	return &transfer.Receipt{TxHash: "hash-1"}, nil
}

type harness struct {
	engine      *execution.Engine
	signer      *mockSigner
	broadcaster *mockBroadcaster
	obtained    atomic.Int32
	invalidated atomic.Int32
	obtainErr   error
}

func newHarness(balances map[string]int64) *harness {
	return newHarnessWithBalances(&mockBalances{balances: balances})
}

func newHarnessWithBalances(balances *mockBalances) *harness {
	h := &harness{signer: &mockSigner{}, broadcaster: &mockBroadcaster{}}
	h.engine = execution.NewEngine(execution.Config{
		Balances: balances,
		Signers: signer.ProviderFunc(func(_ context.Context, walletID string, purpose signer.Purpose) (signer.Signer, error) {
			h.obtained.Add(1)
			if walletID != "main" || purpose != signer.PurposeTransfer {
				return nil, remiterr.ErrKeystoreNotFound
			}
			if h.obtainErr != nil {
				return nil, h.obtainErr
			}
			return h.signer, nil
		}),
		Broadcaster: h.broadcaster,
		Invalidator: execution.InvalidatorFunc(func() { h.invalidated.Add(1) }),
	})
	return h
}

func tonRecipientData() recipient.Data {
	return recipient.Data{
		Chain:      chain.TON,
		RawAddress: tonRecipient,
		Account:    &recipient.Account{Address: tonRecipient, Bounceable: true},
		Comment:    "thanks",
		Ready:      true,
	}
}

func intent(r recipient.Data, asset chain.Asset, wei, feeWei int64) *transfer.Intent {
	return &transfer.Intent{
		WalletID:  "main",
		Recipient: r,
		Amount:    chain.NewAssetAmount(asset, big.NewInt(wei)),
		Fee:       &fee.Estimate{Fee: chain.NewAssetAmount(asset.FeeAsset(), big.NewInt(feeWei))},
	}
}

func TestEngine_NativeSuccess(t *testing.T) {
	t.Parallel()
	h := newHarness(map[string]int64{tonAsset.ID(): 10_000_000_000})

	receipt, err := h.engine.Execute(context.Background(), intent(tonRecipientData(), tonAsset, 1_000_000_000, 10_000_000))
	require.NoError(t, err)

	assert.Equal(t, "hash-1", receipt.TxHash)
	assert.Equal(t, chain.TON, receipt.Chain)
	assert.Equal(t, tonRecipient, receipt.To)
	assert.Equal(t, "1", receipt.Amount.String())
	assert.False(t, receipt.SubmittedAt.IsZero())
	assert.Equal(t, int32(1), h.invalidated.Load())
	assert.True(t, h.signer.closed.Load())

	msg := h.broadcaster.submitted.Message
	assert.Equal(t, tonSender, msg.From)
	assert.Equal(t, tonRecipient, msg.TON.Destination)
	assert.True(t, msg.TON.Bounce)
	assert.Equal(t, "thanks", msg.TON.Comment)
	assert.Equal(t, message.SendModePayFeesSeparately, msg.TON.Mode)
}

func TestEngine_NativeMaxSendsBalance(t *testing.T) {
	t.Parallel()
	h := newHarness(map[string]int64{tonAsset.ID(): 3_000_000_000})

	in := intent(tonRecipientData(), tonAsset, 2_999_999_999, 10_000_000)
	in.Max = true
	receipt, err := h.engine.Execute(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "3", receipt.Amount.String())
	msg := h.broadcaster.submitted.Message
	assert.Equal(t, message.SendModeCarryAll, msg.TON.Mode)
	assert.Equal(t, "3000000000", msg.TON.Value.String())
}

func TestEngine_TRXSuccess(t *testing.T) {
	t.Parallel()

	tronData := recipient.Data{Chain: chain.TRON, RawAddress: tronTo, Ready: true}

	t.Run("amount", func(t *testing.T) {
		t.Parallel()
		h := newHarness(map[string]int64{trxAsset.ID(): 10_000_000})

		receipt, err := h.engine.Execute(context.Background(), intent(tronData, trxAsset, 4_000_000, 1_100_000))
		require.NoError(t, err)
		assert.Equal(t, chain.TRON, receipt.Chain)

		msg := h.broadcaster.submitted.Message
		require.NotNil(t, msg.TRX)
		assert.Equal(t, tronSender, msg.TRX.Owner)
		assert.Equal(t, tronTo, msg.TRX.To)
		assert.Equal(t, "4000000", msg.TRX.Amount.String())
	})

	t.Run("max sends balance less fee", func(t *testing.T) {
		t.Parallel()
		h := newHarness(map[string]int64{trxAsset.ID(): 10_000_000})

		in := intent(tronData, trxAsset, 8_900_000, 1_100_000)
		in.Max = true
		receipt, err := h.engine.Execute(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, "8.9", receipt.Amount.String())
		assert.Equal(t, "8900000", h.broadcaster.submitted.Message.TRX.Amount.String())
	})
}

func TestEngine_StaleCachedBalanceIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fresh   map[string]int64
		cached  map[string]int64
		intent  *transfer.Intent
		wantErr error
	}{
		{
			name:    "native spent elsewhere",
			fresh:   map[string]int64{tonAsset.ID(): 100},
			cached:  map[string]int64{tonAsset.ID(): 10_000_000_000},
			intent:  intent(tonRecipientData(), tonAsset, 1_000_000_000, 10_000_000),
			wantErr: remiterr.ErrInsufficientBalance,
		},
		{
			name:    "fee asset spent elsewhere",
			fresh:   map[string]int64{jetton.ID(): 10, tonAsset.ID(): 0},
			cached:  map[string]int64{jetton.ID(): 10, tonAsset.ID(): 1_000_000_000},
			intent:  intent(tonRecipientData(), jetton, 10, 1),
			wantErr: remiterr.ErrInsufficientSecondaryBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarnessWithBalances(&mockBalances{balances: tt.fresh, cached: tt.cached})

			_, err := h.engine.Execute(context.Background(), tt.intent)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int32(0), h.obtained.Load())
		})
	}
}

func TestEngine_BalanceChecks(t *testing.T) {
	t.Parallel()

	tronData := recipient.Data{Chain: chain.TRON, RawAddress: tronTo, Ready: true}

	tests := []struct {
		name     string
		balances map[string]int64
		intent   *transfer.Intent
		max      bool
		wantErr  error
	}{
		{
			name:     "native amount plus fee exceeds balance",
			balances: map[string]int64{tonAsset.ID(): 1_000_000_000},
			intent:   intent(tonRecipientData(), tonAsset, 1_000_000_000, 1),
			wantErr:  remiterr.ErrInsufficientBalance,
		},
		{
			name:     "native max cannot cover fee",
			balances: map[string]int64{tonAsset.ID(): 5},
			intent:   intent(tonRecipientData(), tonAsset, 5, 10),
			max:      true,
			wantErr:  remiterr.ErrInsufficientBalance,
		},
		{
			name:     "jetton amount exceeds token balance",
			balances: map[string]int64{jetton.ID(): 10, tonAsset.ID(): 1_000_000_000},
			intent:   intent(tonRecipientData(), jetton, 11, 1),
			wantErr:  remiterr.ErrInsufficientBalance,
		},
		{
			name:     "jetton fee and gas exceed native balance",
			balances: map[string]int64{jetton.ID(): 10, tonAsset.ID(): 50_000_000},
			intent:   intent(tonRecipientData(), jetton, 10, 1),
			wantErr:  remiterr.ErrInsufficientSecondaryBalance,
		},
		{
			name:     "trc20 without trx for energy",
			balances: map[string]int64{usdtTRON.ID(): 5_000_000, trxAsset.ID(): 100},
			intent:   intent(tronData, usdtTRON, 5_000_000, 1_000_000),
			wantErr:  remiterr.ErrInsufficientSecondaryBalance,
		},
		{
			name:     "token max with empty balance",
			balances: map[string]int64{usdtTRON.ID(): 0, trxAsset.ID(): 100_000_000},
			intent:   intent(tronData, usdtTRON, 1, 1),
			max:      true,
			wantErr:  remiterr.ErrInsufficientBalance,
		},
		{
			name:     "balance unavailable",
			balances: map[string]int64{},
			intent:   intent(tonRecipientData(), tonAsset, 1, 1),
			wantErr:  remiterr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(tt.balances)
			tt.intent.Max = tt.max

			_, err := h.engine.Execute(context.Background(), tt.intent)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int32(0), h.obtained.Load(), "signer must not be unlocked")
			assert.Nil(t, h.broadcaster.submitted)
		})
	}
}

func TestEngine_TokenSuccess(t *testing.T) {
	t.Parallel()

	t.Run("jetton", func(t *testing.T) {
		t.Parallel()
		h := newHarness(map[string]int64{jetton.ID(): 10_000_000, tonAsset.ID(): 1_000_000_000})

		_, err := h.engine.Execute(context.Background(), intent(tonRecipientData(), jetton, 2_500_000, 30_000_000))
		require.NoError(t, err)

		msg := h.broadcaster.submitted.Message
		assert.Equal(t, chain.KindJetton, msg.Kind)
		require.NotNil(t, msg.TON.Jetton)
		assert.Equal(t, "2500000", msg.TON.Jetton.Amount.String())
		assert.Equal(t, tonRecipient, msg.TON.Jetton.Recipient)
		assert.Equal(t, tonSender, msg.TON.Jetton.ResponseDestination)
	})

	t.Run("trc20", func(t *testing.T) {
		t.Parallel()
		h := newHarness(map[string]int64{usdtTRON.ID(): 10_000_000, trxAsset.ID(): 50_000_000})
		data := recipient.Data{Chain: chain.TRON, RawAddress: tronTo, Ready: true}

		receipt, err := h.engine.Execute(context.Background(), intent(data, usdtTRON, 10_000_000, 14_000_000))
		require.NoError(t, err)
		assert.Equal(t, "10", receipt.Amount.String())

		msg := h.broadcaster.submitted.Message
		require.NotNil(t, msg.TRON)
		assert.Equal(t, tronSender, msg.TRON.Owner)
		assert.Equal(t, tronTo, msg.TRON.Contract)
	})
}

func TestEngine_SignerOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		obtainErr  error
		signErr    error
		wantErr    error
		wantSilent bool
	}{
		{"user cancelled", fmt.Errorf("prompt: %w", remiterr.ErrUserCancelled), nil, remiterr.ErrUserCancelled, true},
		{"hardware unavailable", errHardware, nil, remiterr.ErrSignerUnavailable, false},
		{"signing failed", nil, errHardware, remiterr.ErrSignerUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(map[string]int64{tonAsset.ID(): 10_000_000_000})
			h.obtainErr = tt.obtainErr
			if tt.signErr != nil {
				h.signer.signFunc = func(context.Context, *message.Message) (*message.Signed, error) {
					return nil, tt.signErr
				}
			}

			_, err := h.engine.Execute(context.Background(), intent(tonRecipientData(), tonAsset, 1, 1))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantSilent, remiterr.IsSilent(err))
			assert.Nil(t, h.broadcaster.submitted)
			assert.Equal(t, int32(0), h.invalidated.Load())
		})
	}
}

func TestEngine_BroadcastFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(map[string]int64{tonAsset.ID(): 10_000_000_000})
	h.broadcaster.submitFunc = func(context.Context, *message.Signed) (*transfer.Receipt, error) {
		return nil, errRelay
	}

	_, err := h.engine.Execute(context.Background(), intent(tonRecipientData(), tonAsset, 1, 1))
	require.ErrorIs(t, err, remiterr.ErrBroadcastFailed)
	require.ErrorIs(t, err, errRelay)
	assert.True(t, h.signer.closed.Load())
	assert.Equal(t, int32(0), h.invalidated.Load())
}

func TestEngine_RejectsIncompleteIntent(t *testing.T) {
	t.Parallel()
	h := newHarness(map[string]int64{tonAsset.ID(): 10_000_000_000})

	noFee := intent(tonRecipientData(), tonAsset, 1, 1)
	noFee.Fee = nil
	_, err := h.engine.Execute(context.Background(), noFee)
	require.ErrorIs(t, err, remiterr.ErrFeeNotReady)

	notReady := intent(tonRecipientData(), tonAsset, 1, 1)
	notReady.Recipient.Ready = false
	_, err = h.engine.Execute(context.Background(), notReady)
	require.ErrorIs(t, err, remiterr.ErrNotReady)

	assert.Equal(t, int32(0), h.obtained.Load())
}
