package signer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// MaxTypoDistance is the largest edit distance offered as a word suggestion.
const MaxTypoDistance = 2

var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
	bulletListRegex   = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// NormalizeMnemonic lowercases the phrase, strips list numbering, bullets
// and commas, and collapses whitespace.
func NormalizeMnemonic(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// ValidateMnemonic checks word count and that every word is in the BIP39
// English list. The BIP39 checksum is not verified: TON wallets generate
// phrases from the same word list with their own checksum scheme.
func ValidateMnemonic(mnemonic string) error {
	words := strings.Fields(NormalizeMnemonic(mnemonic))
	switch len(words) {
	case 12, 24:
	default:
		return remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{
			"reason": "mnemonic must have 12 or 24 words",
			"words":  strconv.Itoa(len(words)),
		})
	}

	for i, w := range words {
		if _, ok := bip39.GetWordIndex(w); ok {
			continue
		}
		err := remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{
			"reason":   "unknown mnemonic word",
			"position": strconv.Itoa(i + 1),
		})
		if s := SuggestWord(w); s != "" {
			err = remiterr.WithSuggestion(err, "did you mean \""+s+"\"?")
		}
		return err
	}
	return nil
}

// SuggestWord returns the closest BIP39 word within MaxTypoDistance, or "".
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	minDist := math.MaxInt
	var suggestion string

	for _, word := range bip39.GetWordList() {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < minDist {
			minDist = dist
			suggestion = word
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}
