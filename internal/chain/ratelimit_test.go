package chain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/remit/internal/chain"
)

func TestRateLimiter_Burst(t *testing.T) {
	t.Parallel()

	rl := chain.NewRateLimiter(1, 3)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("tonapi"), "request %d in burst", i)
	}
	assert.False(t, rl.Allow("tonapi"))
	assert.True(t, rl.Allow("trongrid"), "endpoints are independent")
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	t.Parallel()

	rl := chain.NewRateLimiter(0.001, 1)
	require.True(t, rl.Allow("relay"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, rl.Wait(ctx, "relay"))
}
