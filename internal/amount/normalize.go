// Package amount implements the dual-representation amount model of the
// transfer wizard: keystroke normalization, a pure state reducer that keeps
// the typed text, the asset amount and its fiat equivalent consistent, and
// the validity predicate used to gate confirmation.
package amount

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// MaxInputLength is the longest input text accepted.
const MaxInputLength = 21

var (
	// numericLiteral matches canonical input once separators are normalized.
	numericLiteral = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

	// alphaOnly matches inputs made entirely of letters.
	alphaOnly = regexp.MustCompile(`^\p{L}+$`)
)

// Normalizer validates and canonicalizes typed amounts for one locale.
type Normalizer struct {
	DecimalSeparator string
	GroupSeparator   string
}

// NewNormalizer returns a normalizer for the given separators. Empty values
// default to "." for decimals and "," for grouping.
func NewNormalizer(decimalSep, groupSep string) Normalizer {
	if decimalSep == "" {
		decimalSep = "."
	}
	if groupSep == "" && decimalSep != "," {
		groupSep = ","
	}
	return Normalizer{DecimalSeparator: decimalSep, GroupSeparator: groupSep}
}

// Normalize returns the canonical form of raw, or prev when raw is rejected.
func (n Normalizer) Normalize(raw, prev string, maxDecimals int) string {
	out, err := n.Parse(raw, maxDecimals)
	if err != nil {
		return prev
	}
	return out
}

// Parse canonicalizes raw: group separators removed, "." as the decimal
// separator, redundant leading zeros dropped. An empty input is accepted
// and returned as "". Rejections wrap ErrInvalidAmount.
func (n Normalizer) Parse(raw string, maxDecimals int) (string, error) {
	if len(raw) > MaxInputLength {
		return "", reject(raw, "too long")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	raw = n.fixTrailingSeparator(raw)

	last := raw[len(raw)-1]
	if last == 'e' || last == 'E' {
		return "", reject(raw, "exponent")
	}
	if strings.Count(raw, n.DecimalSeparator) > 1 {
		return "", reject(raw, "multiple decimal separators")
	}
	if alphaOnly.MatchString(raw) {
		return "", reject(raw, "not a number")
	}

	text := raw
	if n.GroupSeparator != "" {
		text = strings.ReplaceAll(text, n.GroupSeparator, "")
	}
	text = strings.Replace(text, n.DecimalSeparator, ".", 1)
	text = strings.Map(dropSpaces, text)

	if text == "" || !numericLiteral.MatchString(text) {
		return "", reject(raw, "not a number")
	}

	intPart, frac, hasDot := strings.Cut(text, ".")
	if len(frac) > maxDecimals || (hasDot && maxDecimals == 0) {
		return "", reject(raw, fmt.Sprintf("more than %d decimals", maxDecimals))
	}

	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	if !hasDot {
		return intPart, nil
	}
	return intPart + "." + frac, nil
}

// fixTrailingSeparator converts a just-typed "wrong" separator into the
// locale decimal separator.
func (n Normalizer) fixTrailingSeparator(raw string) string {
	last := raw[len(raw)-1:]
	if last != "." && last != "," {
		return raw
	}
	if last == n.DecimalSeparator || last == n.GroupSeparator {
		return raw
	}
	return raw[:len(raw)-1] + n.DecimalSeparator
}

func dropSpaces(r rune) rune {
	if unicode.IsSpace(r) {
		return -1
	}
	return r
}

func reject(raw, reason string) error {
	return remiterr.WithDetails(remiterr.ErrInvalidAmount, map[string]string{
		"input":  raw,
		"reason": reason,
	})
}

// ParseCanonical converts canonical text to a decimal. Empty text and a
// dangling separator such as "1." are accepted.
func ParseCanonical(text string) decimal.Decimal {
	text = strings.TrimSuffix(text, ".")
	if text == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return d
}
