package message_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/chain/tron"
	"github.com/mrz1836/remit/internal/message"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const (
	tonFrom = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	tonTo   = "0:0000000000000000000000000000000000000000000000000000000000000001"
	tronTo  = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

func usdt() chain.Asset {
	return chain.Asset{Chain: chain.TRON, Kind: chain.KindStablecoin, Address: tronTo, Decimals: 6, Symbol: "USDT"}
}

func TestBuild_Native(t *testing.T) {
	t.Parallel()

	spec := message.Spec{
		From:       tonFrom,
		To:         tonTo,
		Amount:     chain.NewAssetAmount(chain.NativeAsset(chain.TON), big.NewInt(1_500_000_000)),
		Comment:    "rent",
		Bounceable: true,
	}

	msg, err := message.Build(spec, message.DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, msg.TON)
	assert.Nil(t, msg.TRON)
	assert.Equal(t, chain.KindNative, msg.Kind)
	assert.Equal(t, tonTo, msg.TON.Destination)
	assert.Equal(t, int64(1_500_000_000), msg.TON.Value.Int64())
	assert.Equal(t, message.SendModePayFeesSeparately, msg.TON.Mode)
	assert.True(t, msg.TON.Bounce)
	assert.Equal(t, "rent", msg.TON.Comment)

	spec.Max = true
	maxed, err := message.Build(spec, message.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, message.SendModeCarryAll, maxed.TON.Mode)
}

func TestBuild_Jetton(t *testing.T) {
	t.Parallel()

	jetton := chain.Asset{Chain: chain.TON, Kind: chain.KindJetton, Address: "EQjettonmaster", Decimals: 6, Symbol: "JET"}
	msg, err := message.Build(message.Spec{
		From:   tonFrom,
		To:     tonTo,
		Amount: chain.NewAssetAmount(jetton, big.NewInt(2_000_000)),
	}, message.DefaultOptions())
	require.NoError(t, err)

	require.NotNil(t, msg.TON.Jetton)
	assert.Empty(t, msg.TON.Destination)
	assert.Equal(t, int64(50_000_000), msg.TON.Value.Int64())
	assert.Equal(t, "EQjettonmaster", msg.TON.Jetton.Master)
	assert.Equal(t, int64(2_000_000), msg.TON.Jetton.Amount.Int64())
	assert.Equal(t, tonTo, msg.TON.Jetton.Recipient)
	assert.Equal(t, tonFrom, msg.TON.Jetton.ResponseDestination)
	assert.Equal(t, int64(1), msg.TON.Jetton.ForwardTONAmount.Int64())
}

func TestBuild_TRC20(t *testing.T) {
	t.Parallel()

	msg, err := message.Build(message.Spec{
		From:   tronTo,
		To:     tronTo,
		Amount: chain.NewAssetAmount(usdt(), big.NewInt(5_000_000)),
	}, message.DefaultOptions())
	require.NoError(t, err)

	require.NotNil(t, msg.TRON)
	assert.Nil(t, msg.TON)
	assert.Equal(t, tron.TransferSelector, hex.EncodeToString(msg.TRON.Data[:4]))
	assert.Equal(t, int64(30_000_000), msg.TRON.FeeLimit)
	assert.Equal(t, tronTo, msg.TRON.Contract)
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	opts := message.DefaultOptions()

	_, err := message.Build(message.Spec{
		To:      tronTo,
		Comment: "memo",
		Amount:  chain.NewAssetAmount(usdt(), big.NewInt(1)),
	}, opts)
	require.ErrorIs(t, err, remiterr.ErrInvalidInput)

	_, err = message.Build(message.Spec{
		To:     "bogus",
		Amount: chain.NewAssetAmount(usdt(), big.NewInt(1)),
	}, opts)
	require.ErrorIs(t, err, remiterr.ErrInvalidAddress)

	_, err = message.Build(message.Spec{
		Amount: chain.NewAssetAmount(chain.Asset{Chain: chain.TON, Kind: chain.Kind(42)}, big.NewInt(1)),
	}, opts)
	require.ErrorIs(t, err, remiterr.ErrUnsupportedKind)

	_, err = message.Build(message.Spec{Amount: chain.AssetAmount{Asset: chain.NativeAsset(chain.TON)}}, opts)
	require.ErrorIs(t, err, remiterr.ErrInvalidAmount)
}

func TestBuild_TRX(t *testing.T) {
	t.Parallel()

	spec := message.Spec{
		From:   tronTo,
		To:     tronTo,
		Amount: chain.NewAssetAmount(chain.NativeAsset(chain.TRON), big.NewInt(2_500_000)),
		Max:    true,
	}
	msg, err := message.Build(spec, message.DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, msg.TRX)
	assert.Nil(t, msg.TON)
	assert.Nil(t, msg.TRON)
	assert.Equal(t, chain.TRON, msg.Chain)
	assert.Equal(t, chain.KindNative, msg.Kind)
	assert.Equal(t, tronTo, msg.TRX.Owner)
	assert.Equal(t, tronTo, msg.TRX.To)
	assert.Equal(t, int64(2_500_000), msg.TRX.Amount.Int64())

	spec.Comment = "memo"
	_, err = message.Build(spec, message.DefaultOptions())
	require.ErrorIs(t, err, remiterr.ErrInvalidInput)

	spec.Comment = ""
	spec.To = "bogus"
	_, err = message.Build(spec, message.DefaultOptions())
	require.ErrorIs(t, err, remiterr.ErrInvalidAddress)
}

func TestBuild_KindChainMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		asset chain.Asset
	}{
		{"stablecoin on TON", chain.Asset{Chain: chain.TON, Kind: chain.KindStablecoin, Address: "EQusdtmaster", Decimals: 6, Symbol: "USDT"}},
		{"jetton on TRON", chain.Asset{Chain: chain.TRON, Kind: chain.KindJetton, Address: tronTo, Decimals: 6, Symbol: "USDT"}},
		{"native on unknown chain", chain.NativeAsset(chain.ID("eth"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := message.Build(message.Spec{
				From:   tonFrom,
				To:     tonTo,
				Amount: chain.NewAssetAmount(tt.asset, big.NewInt(1)),
			}, message.DefaultOptions())
			require.ErrorIs(t, err, remiterr.ErrUnsupportedKind)
		})
	}
}

func TestMessage_PayloadDeterministic(t *testing.T) {
	t.Parallel()

	spec := message.Spec{From: tonFrom, To: tonTo, Amount: chain.NewAssetAmount(chain.NativeAsset(chain.TON), big.NewInt(1))}
	a, err := message.Build(spec, message.DefaultOptions())
	require.NoError(t, err)
	b, err := message.Build(spec, message.DefaultOptions())
	require.NoError(t, err)

	pa, err := a.Payload()
	require.NoError(t, err)
	pb, err := b.Payload()
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}
