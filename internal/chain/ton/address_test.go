package ton

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	remiterr "github.com/mrz1836/remit/pkg/errors"
)

const testRaw = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"

func TestCRC16_XModemVector(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uint16(0x31C3), crc16([]byte("123456789")))
}

func TestParseAddress_Raw(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress(testRaw)
	require.NoError(t, err)
	assert.Equal(t, int8(0), addr.Workchain)
	assert.False(t, addr.Friendly)
	assert.Equal(t, testRaw, addr.Raw())

	master, err := ParseAddress("-1:" + strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.Equal(t, int8(-1), master.Workchain)
}

func TestParseAddress_FriendlyRoundTrip(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress(testRaw)
	require.NoError(t, err)

	for _, bounceable := range []bool{true, false} {
		friendly := addr.Format(bounceable)
		require.Len(t, friendly, friendlyLen)

		parsed, err := ParseAddress(friendly)
		require.NoError(t, err)
		assert.True(t, parsed.Friendly)
		assert.Equal(t, bounceable, parsed.Bounceable)
		assert.Equal(t, testRaw, parsed.Raw())
	}
}

func TestParseAddress_StdEncoding(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress(testRaw)
	require.NoError(t, err)

	urlSafe := addr.Format(true)
	std := strings.NewReplacer("-", "+", "_", "/").Replace(urlSafe)

	parsed, err := ParseAddress(std)
	require.NoError(t, err)
	assert.Equal(t, testRaw, parsed.Raw())
}

func TestParseAddress_Invalid(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress(testRaw)
	require.NoError(t, err)
	friendly := addr.Format(true)

	// Flip one hash character to break the checksum.
	tampered := []byte(friendly)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "EQabc"},
		{"bad checksum", string(tampered)},
		{"raw bad workchain", "5:" + strings.Repeat("00", 32)},
		{"raw short hash", "0:abcd"},
		{"raw non hex", "0:" + strings.Repeat("zz", 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseAddress(tt.input)
			require.Error(t, err)
		})
	}
}

func TestIsDNSName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"alice.ton", true},
		{"Alice.TON", true},
		{"wallet.alice.ton", true},
		{"alice.t.me", true},
		{"my-name.ton", true},
		{".ton", false},
		{"-alice.ton", false},
		{"alice-.ton", false},
		{"al ice.ton", false},
		{"alice.eth", false},
		{"alice", false},
		{testRaw, false},
		{strings.Repeat("a", 130) + ".ton", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsDNSName(tt.input))
		})
	}
}

func TestValidator(t *testing.T) {
	t.Parallel()

	v := Validator{}
	require.NoError(t, v.ValidateAddress(testRaw))
	require.NoError(t, v.ValidateAddress("alice.ton"))
	assert.True(t, v.IsName("alice.ton"))
	assert.False(t, v.IsName(testRaw))

	err := v.ValidateAddress("not-an-address")
	require.ErrorIs(t, err, remiterr.ErrInvalidAddress)
}
