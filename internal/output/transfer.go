package output

import (
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/remit/internal/transfer"
)

// IntentOutput is the JSON form of a transfer awaiting confirmation.
type IntentOutput struct {
	Chain   string `json:"chain"`
	To      string `json:"to"`
	Comment string `json:"comment,omitempty"`
	Amount  string `json:"amount"`
	Symbol  string `json:"symbol"`
	Max     bool   `json:"max,omitempty"`
	Fee     string `json:"fee"`
	FeeUnit string `json:"fee_symbol"`
	Fiat    string `json:"fiat,omitempty"`
}

// ReceiptOutput is the JSON form of a broadcast transfer.
type ReceiptOutput struct {
	Chain       string    `json:"chain"`
	TxHash      string    `json:"tx_hash"`
	To          string    `json:"to"`
	Amount      string    `json:"amount"`
	Symbol      string    `json:"symbol"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewIntentOutput describes intent. fiat is the fiat value of the amount
// in currency, omitted when unknown.
func NewIntentOutput(intent *transfer.Intent, fiat decimal.NullDecimal, currency string) IntentOutput {
	out := IntentOutput{
		Chain:   intent.Asset().Chain.String(),
		To:      intent.Recipient.Address(),
		Comment: intent.Recipient.Comment,
		Amount:  intent.Amount.String(),
		Symbol:  intent.Asset().Symbol,
		Max:     intent.Max,
	}
	if intent.Fee != nil {
		out.Fee = intent.Fee.Fee.String()
		out.FeeUnit = intent.Fee.Fee.Asset.Symbol
	}
	if fiat.Valid {
		out.Fiat = fiat.Decimal.StringFixed(2) + " " + currency
	}
	return out
}

// WriteIntent renders the confirmation summary.
func WriteIntent(w io.Writer, out IntentOutput, format Format) error {
	if format == FormatJSON {
		return PrintJSON(w, out)
	}

	t := NewTable()
	t.AddRow("Network", out.Chain)
	t.AddRow("To", out.To)
	if out.Comment != "" {
		t.AddRow("Comment", out.Comment)
	}
	amount := out.Amount + " " + out.Symbol
	if out.Max {
		amount += " (entire balance)"
	}
	t.AddRow("Amount", amount)
	if out.Fiat != "" {
		t.AddRow("Value", "≈ "+out.Fiat)
	}
	t.AddRow("Network fee", "≈ "+out.Fee+" "+out.FeeUnit)
	return t.Render(w)
}

// WriteReceipt renders a successful transfer.
func WriteReceipt(w io.Writer, receipt *transfer.Receipt, format Format) error {
	out := ReceiptOutput{
		Chain:       receipt.Chain.String(),
		TxHash:      receipt.TxHash,
		To:          receipt.To,
		Amount:      receipt.Amount.String(),
		Symbol:      receipt.Amount.Asset.Symbol,
		SubmittedAt: receipt.SubmittedAt,
	}
	if format == FormatJSON {
		return PrintJSON(w, out)
	}

	Success(w, "Sent %s %s", out.Amount, out.Symbol)
	t := NewTable()
	t.AddRow("To", out.To)
	t.AddRow("Transaction", out.TxHash)
	return t.Render(w)
}
