package chain

import (
	"math/big"
	"strings"
)

// ParseDecimalAmount parses a canonical decimal amount string to big.Int with the given decimal places.
// For example, "1.5" with 9 decimals returns 1500000000. Digits beyond the
// precision are truncated.
//
//nolint:gocognit,gocyclo // Decimal parsing requires sequential validation steps
func ParseDecimalAmount(amount string, decimalPlaces int, invalidAmountErr error) (*big.Int, error) {
	if amount == "" || amount == "." {
		return nil, invalidAmountErr
	}

	if strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, invalidAmountErr
	}

	intPart, decPart, hasDot := strings.Cut(amount, ".")
	if hasDot && strings.Contains(decPart, ".") {
		return nil, invalidAmountErr
	}

	if intPart == "" {
		intPart = "0"
	}
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return nil, invalidAmountErr
		}
	}
	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, invalidAmountErr
	}

	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalPlaces)), nil)
	result := new(big.Int).Mul(intVal, multiplier)

	if decPart == "" || decimalPlaces == 0 {
		for _, c := range decPart {
			if c < '0' || c > '9' {
				return nil, invalidAmountErr
			}
		}
		return result, nil
	}

	for _, c := range decPart {
		if c < '0' || c > '9' {
			return nil, invalidAmountErr
		}
	}

	// Pad or truncate to the asset precision
	if len(decPart) < decimalPlaces {
		decPart += strings.Repeat("0", decimalPlaces-len(decPart))
	}
	decPart = decPart[:decimalPlaces]

	decVal, ok := new(big.Int).SetString(decPart, 10)
	if !ok {
		return nil, invalidAmountErr
	}

	return result.Add(result, decVal), nil
}

// FormatDecimalAmount converts a big.Int to a human-readable string with the given decimal places.
// Trailing zeros and a dangling decimal point are removed, so 10000000000 with
// 9 decimals returns "10" and 1500000000 returns "1.5".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}

	str := new(big.Int).Abs(amount).String()
	if decimalPlaces <= 0 {
		return sign(amount) + str
	}

	if len(str) <= decimalPlaces {
		str = strings.Repeat("0", decimalPlaces-len(str)+1) + str
	}

	decimalPos := len(str) - decimalPlaces
	frac := strings.TrimRight(str[decimalPos:], "0")
	if frac == "" {
		return sign(amount) + str[:decimalPos]
	}
	return sign(amount) + str[:decimalPos] + "." + frac
}

func sign(amount *big.Int) string {
	if amount.Sign() < 0 {
		return "-"
	}
	return ""
}
