package output_test

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/fee"
	"github.com/mrz1836/remit/internal/output"
	"github.com/mrz1836/remit/internal/recipient"
	"github.com/mrz1836/remit/internal/transfer"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, output.FormatJSON, output.ParseFormat(" JSON "))
	assert.Equal(t, output.FormatText, output.ParseFormat("text"))
	assert.Equal(t, output.FormatAuto, output.ParseFormat("yaml"))
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.Equal(t, output.FormatJSON, output.DetectFormat(&buf, output.FormatAuto))
	assert.Equal(t, output.FormatText, output.DetectFormat(&buf, output.FormatText))
	assert.False(t, output.IsTerminal(&buf))
}

func TestFormatError_Text(t *testing.T) {
	t.Parallel()

	err := remiterr.WithSuggestion(
		remiterr.WithDetails(remiterr.ErrInsufficientBalance, map[string]string{
			"symbol":    "TON",
			"available": "1",
		}),
		"lower the amount",
	)

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))

	text := buf.String()
	assert.True(t, strings.HasPrefix(text, "Error: Not enough funds for this amount.\n"))
	assert.Less(t, strings.Index(text, "available: 1"), strings.Index(text, "symbol: TON"))
	assert.Contains(t, text, "Suggestion: lower the amount")
}

func TestFormatError_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := remiterr.Wrap(remiterr.ErrBroadcastFailed, "submit")
	require.NoError(t, output.FormatError(&buf, err, output.FormatJSON))

	var out output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "BROADCAST_FAILED", out.Error.Code)
	assert.Equal(t, "The transfer could not be sent. Please try again.", out.Error.Message)
	assert.Equal(t, "submit: transaction broadcast failed", out.Error.Cause)
	assert.Equal(t, remiterr.ExitGeneral, out.Error.ExitCode)
}

func TestFormatError_SilentAndNil(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, nil, output.FormatText))
	require.NoError(t, output.FormatError(&buf, remiterr.ErrUserCancelled, output.FormatText))
	require.NoError(t, output.FormatError(&buf, remiterr.ErrUserCancelled, output.FormatJSON))
	assert.Empty(t, buf.String())
}

func TestTable_Render(t *testing.T) {
	t.Parallel()

	table := output.NewTable("Asset", "Balance")
	table.AddRow("TON", "1.5")
	table.AddRow("USD₮", "20")
	assert.Equal(t, 2, table.Len())

	want := "Asset  Balance\n" +
		"-----  -------\n" +
		"TON    1.5\n" +
		"USD₮   20\n"
	assert.Equal(t, want, table.String())
	assert.Empty(t, output.NewTable().String())
}

func testIntent() *transfer.Intent {
	ton := chain.NativeAsset(chain.TON)
	return &transfer.Intent{
		WalletID: "main",
		Recipient: recipient.Data{
			Chain:      chain.TON,
			RawAddress: "alice.ton",
			Account:    &recipient.Account{Address: "0:01"},
			Comment:    "rent",
			Ready:      true,
		},
		Amount: chain.NewAssetAmount(ton, big.NewInt(1_500_000_000)),
		Fee:    &fee.Estimate{Fee: chain.NewAssetAmount(ton, big.NewInt(5_000_000))},
	}
}

func TestWriteIntent(t *testing.T) {
	t.Parallel()

	out := output.NewIntentOutput(testIntent(), decimal.NewNullDecimal(decimal.RequireFromString("4.5")), "USD")
	assert.Equal(t, "0:01", out.To)
	assert.Equal(t, "1.5", out.Amount)
	assert.Equal(t, "0.005", out.Fee)
	assert.Equal(t, "4.50 USD", out.Fiat)

	var buf bytes.Buffer
	require.NoError(t, output.WriteIntent(&buf, out, output.FormatText))
	text := buf.String()
	assert.Contains(t, text, "Amount       1.5 TON\n")
	assert.Contains(t, text, "Comment      rent\n")
	assert.Contains(t, text, "Network fee  ≈ 0.005 TON\n")

	buf.Reset()
	require.NoError(t, output.WriteIntent(&buf, out, output.FormatJSON))
	assert.Contains(t, buf.String(), `"fee_symbol": "TON"`)
}

func TestWriteReceipt(t *testing.T) {
	t.Parallel()

	receipt := &transfer.Receipt{
		Chain:       chain.TRON,
		TxHash:      "abc123",
		To:          "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		Amount:      chain.NewAssetAmount(chain.NativeAsset(chain.TRON), big.NewInt(2_000_000)),
		SubmittedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, output.WriteReceipt(&buf, receipt, output.FormatText))
	assert.Contains(t, buf.String(), "Sent 2 TRX")
	assert.Contains(t, buf.String(), "Transaction  abc123")

	buf.Reset()
	require.NoError(t, output.WriteReceipt(&buf, receipt, output.FormatJSON))
	var out output.ReceiptOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "abc123", out.TxHash)
	assert.Equal(t, "TRX", out.Symbol)
	assert.True(t, receipt.SubmittedAt.Equal(out.SubmittedAt))
}
