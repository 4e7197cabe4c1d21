package ton_test

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/chain/ton"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const ownerRaw = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"

func newTestClient(t *testing.T, handler http.HandlerFunc) *ton.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return ton.NewClient("test-key", &ton.ClientOptions{
		BaseURL:     srv.URL,
		RateLimiter: chain.NewRateLimiter(1000, 1000),
		Retry:       &chain.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
}

func TestClient_GetAccount(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/v2/accounts/"+ownerRaw, r.URL.Path)
		_, _ = w.Write([]byte(`{"address":"` + ownerRaw + `","balance":1500000000,"status":"active","name":"exchange","memo_required":true,"is_wallet":true}`))
	})

	acc, err := client.GetAccount(context.Background(), ownerRaw)
	require.NoError(t, err)
	assert.Equal(t, ownerRaw, acc.Address)
	assert.Equal(t, 0, acc.Balance.Cmp(big.NewInt(1_500_000_000)))
	assert.True(t, acc.IsActive())
	assert.True(t, acc.MemoRequired)
	assert.Equal(t, "exchange", acc.Name)
}

func TestClient_GetAccount_NotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetAccount(context.Background(), ownerRaw)
	require.ErrorIs(t, err, remiterr.ErrNotFound)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"address":"x","balance":1,"status":"uninit"}`))
	})

	acc, err := client.GetAccount(context.Background(), ownerRaw)
	require.NoError(t, err)
	assert.False(t, acc.IsActive())
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ResolveDNS(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/dns/alice.ton/resolve":
			_, _ = w.Write([]byte(`{"wallet":{"address":"` + ownerRaw + `"}}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})

	addr, err := client.ResolveDNS(context.Background(), "Alice.ton")
	require.NoError(t, err)
	assert.Equal(t, ownerRaw, addr)

	_, err = client.ResolveDNS(context.Background(), "nobody.ton")
	require.ErrorIs(t, err, remiterr.ErrNotFound)
}

func TestClient_GetBalance(t *testing.T) {
	t.Parallel()

	jetton := chain.Asset{Chain: chain.TON, Kind: chain.KindJetton, Address: "EQjetton", Decimals: 6, Symbol: "JET"}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/accounts/" + ownerRaw:
			_, _ = w.Write([]byte(`{"balance":42,"status":"active"}`))
		case "/v2/accounts/" + ownerRaw + "/jettons/EQjetton":
			_, _ = w.Write([]byte(`{"balance":"7000000"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	native, err := client.GetBalance(context.Background(), ownerRaw, chain.NativeAsset(chain.TON))
	require.NoError(t, err)
	assert.Equal(t, int64(42), native.Int64())

	jet, err := client.GetBalance(context.Background(), ownerRaw, jetton)
	require.NoError(t, err)
	assert.Equal(t, int64(7_000_000), jet.Int64())

	missing, err := client.GetBalance(context.Background(), "0:missing", jetton)
	require.NoError(t, err)
	assert.Equal(t, 0, missing.Sign())

	_, err = client.GetBalance(context.Background(), ownerRaw, chain.NativeAsset(chain.TRON))
	require.ErrorIs(t, err, remiterr.ErrNotSupported)
}

func TestClient_GetRates(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ton,EQjetton", r.URL.Query().Get("tokens"))
		assert.Equal(t, "usd", r.URL.Query().Get("currencies"))
		_, _ = w.Write([]byte(`{"rates":{"TON":{"prices":{"USD":5.25}},"EQjetton":{"prices":{"USD":0.5}}}}`))
	})

	rates, err := client.GetRates(context.Background(), []string{"ton", "EQjetton"}, "USD")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("5.25").Equal(rates["ton"]))
	assert.True(t, decimal.RequireFromString("0.5").Equal(rates["EQjetton"]))
}
