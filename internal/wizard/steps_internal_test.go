package wizard

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/chain/ton"
	"github.com/mrz1836/remit/internal/fee"
	"github.com/mrz1836/remit/internal/recipient"
	"github.com/mrz1836/remit/internal/transfer"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const (
	slowAddr = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	fastAddr = "0:0000000000000000000000000000000000000000000000000000000000000001"
)

type gatedResolver struct {
	started chan struct{}
	release chan struct{}
}

func (r *gatedResolver) ResolveAccount(_ context.Context, _ chain.ID, input string) (*recipient.Account, error) {
	if input == slowAddr {
		close(r.started)
		<-r.release
	}
	return &recipient.Account{Address: input}, nil
}

type zeroBalances struct{}

func (zeroBalances) Balance(_ context.Context, asset chain.Asset) (chain.AssetAmount, error) {
	return chain.NewAssetAmount(asset, big.NewInt(0)), nil
}

type nopExecutor struct{}

func (nopExecutor) Execute(context.Context, *transfer.Intent) (*transfer.Receipt, error) {
	return &transfer.Receipt{}, nil
}

func TestResolveRecipient_LateLookupDoesNotOverwriteNewer(t *testing.T) {
	t.Parallel()

	resolver := &gatedResolver{started: make(chan struct{}), release: make(chan struct{})}
	w, err := New(Config{
		Validators: map[chain.ID]chain.AddressValidator{chain.TON: ton.Validator{}},
		Resolver:   resolver,
		Estimator: fee.EstimatorFunc(func(context.Context, fee.Request) (*fee.Estimate, error) {
			return &fee.Estimate{}, nil
		}),
		Balances: zeroBalances{},
		Executor: nopExecutor{},
	})
	require.NoError(t, err)
	t.Cleanup(w.Close)

	type outcome struct {
		data *recipient.Data
		err  error
	}
	slow := make(chan outcome, 1)
	go func() {
		d, err := w.ResolveRecipient(context.Background(), chain.TON, slowAddr)
		slow <- outcome{d, err}
	}()
	<-resolver.started

	// The slow call's lookup commits, then waits for the wizard lock while
	// a newer lookup is applied.
	w.mu.Lock()
	close(resolver.release)
	committed := assert.Eventually(t, func() bool {
		cur := w.recipients.Current()
		return cur != nil && cur.RawAddress == slowAddr
	}, 2*time.Second, 5*time.Millisecond)
	newer, newerErr := w.recipients.Resolve(context.Background(), chain.TON, fastAddr)
	w.mu.Unlock()
	require.True(t, committed)
	require.NoError(t, newerErr)
	assert.Equal(t, fastAddr, newer.RawAddress)

	select {
	case o := <-slow:
		require.ErrorIs(t, o.err, remiterr.ErrSuperseded)
		assert.Nil(t, o.data)
	case <-time.After(2 * time.Second):
		t.Fatal("slow resolve did not return")
	}
	assert.Nil(t, w.Snapshot().Recipient)

	data, err := w.ResolveRecipient(context.Background(), chain.TON, fastAddr)
	require.NoError(t, err)
	assert.Equal(t, fastAddr, w.Snapshot().Recipient.RawAddress)
	assert.Equal(t, fastAddr, data.RawAddress)
}
