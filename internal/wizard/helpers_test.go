package wizard_test

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/remit/internal/amount"
	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/chain/ton"
	"github.com/mrz1836/remit/internal/chain/tron"
	"github.com/mrz1836/remit/internal/fee"
	"github.com/mrz1836/remit/internal/recipient"
	"github.com/mrz1836/remit/internal/transfer"
	"github.com/mrz1836/remit/internal/wizard"
)

const (
	tonSender    = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	tonRecipient = "0:0000000000000000000000000000000000000000000000000000000000000001"
	tronSender   = "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"
	tronTo       = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

	testFee = 10_000_000
)

var (
	tonAsset = chain.NativeAsset(chain.TON)
	jetton   = chain.Asset{Chain: chain.TON, Kind: chain.KindJetton, Address: "0:abc", Decimals: 6, Symbol: "USDT"}
)

type mockResolver struct {
	calls       atomic.Int32
	resolveFunc func(ctx context.Context, chainID chain.ID, input string) (*recipient.Account, error)
}

func (m *mockResolver) ResolveAccount(ctx context.Context, chainID chain.ID, input string) (*recipient.Account, error) {
	m.calls.Add(1)
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, chainID, input)
	}
	return &recipient.Account{Address: input, Bounceable: chainID == chain.TON, Balance: big.NewInt(0)}, nil
}

type mockRates struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func (m *mockRates) Rate(asset chain.Asset) decimal.NullDecimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[asset.ID()]
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(p)
}

type mockBalances struct {
	mu       sync.Mutex
	balances map[string]int64
}

func (m *mockBalances) Balance(_ context.Context, asset chain.Asset) (chain.AssetAmount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return chain.NewAssetAmount(asset, big.NewInt(m.balances[asset.ID()])), nil
}

func (m *mockBalances) Fetch(ctx context.Context, asset chain.Asset) (chain.AssetAmount, error) {
	return m.Balance(ctx, asset)
}

type mockExecutor struct {
	calls       atomic.Int32
	executeFunc func(ctx context.Context, intent *transfer.Intent) (*transfer.Receipt, error)
}

func (m *mockExecutor) Execute(ctx context.Context, intent *transfer.Intent) (*transfer.Receipt, error) {
	m.calls.Add(1)
	if m.executeFunc != nil {
		return m.executeFunc(ctx, intent)
	}
	return &transfer.Receipt{Chain: intent.Asset().Chain, TxHash: "hash-1", Amount: intent.Amount}, nil
}

func fixedFee(_ context.Context, req fee.Request) (*fee.Estimate, error) {
	return &fee.Estimate{Fee: chain.NewAssetAmount(req.Amount.Asset.FeeAsset(), big.NewInt(testFee))}, nil
}

type harness struct {
	resolver *mockResolver
	rates    *mockRates
	balances *mockBalances
	executor *mockExecutor

	mu       sync.Mutex
	outcomes []wizard.Outcome
}

func (h *harness) Outcomes() []wizard.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]wizard.Outcome(nil), h.outcomes...)
}

func newHarness() *harness {
	return &harness{
		resolver: &mockResolver{},
		rates:    &mockRates{prices: map[string]decimal.Decimal{}},
		balances: &mockBalances{balances: map[string]int64{
			tonAsset.ID(): 10_000_000_000,
			jetton.ID():   50_000_000,
		}},
		executor: &mockExecutor{},
	}
}

func (h *harness) config() wizard.Config {
	return wizard.Config{
		WalletID: "main",
		Senders:  map[chain.ID]string{chain.TON: tonSender, chain.TRON: tronSender},
		Validators: map[chain.ID]chain.AddressValidator{
			chain.TON:  ton.Validator{},
			chain.TRON: tron.Validator{},
		},
		Resolver:   h.resolver,
		Estimator:  fee.EstimatorFunc(fixedFee),
		Rates:      h.rates,
		Balances:   h.balances,
		Executor:   h.executor,
		Normalizer: amount.NewNormalizer(".", ","),
		OnOutcome: func(o wizard.Outcome) {
			h.mu.Lock()
			h.outcomes = append(h.outcomes, o)
			h.mu.Unlock()
		},
	}
}

func newWizard(t *testing.T, cfg wizard.Config) *wizard.Wizard {
	t.Helper()
	w, err := wizard.New(cfg)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

// toAmountStep resolves a TON recipient and advances to the amount step.
func toAmountStep(t *testing.T, w *wizard.Wizard) {
	t.Helper()
	data, err := w.ResolveRecipient(context.Background(), chain.TON, tonRecipient)
	require.NoError(t, err)
	require.True(t, data.Ready)
	require.NoError(t, w.SubmitRecipient())
}

// toConfirmStep enters text and confirms once the fee is known.
func toConfirmStep(t *testing.T, w *wizard.Wizard, text string) *transfer.Intent {
	t.Helper()
	toAmountStep(t, w)
	_, err := w.Input(text)
	require.NoError(t, err)
	_, err = w.WaitFee(context.Background())
	require.NoError(t, err)
	intent, err := w.Confirm(context.Background())
	require.NoError(t, err)
	return intent
}
