package cli

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/mrz1836/remit/internal/chain"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// maxSymbolDistance bounds "did you mean" suggestions for asset symbols.
const maxSymbolDistance = 2

// findAsset picks an asset by symbol or contract address. An empty query
// selects the native coin, which is always first.
func findAsset(assets []chain.Asset, query string) (chain.Asset, error) {
	if len(assets) == 0 {
		return chain.Asset{}, remiterr.ErrNotSupported
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return assets[0], nil
	}

	for _, a := range assets {
		if strings.EqualFold(a.Symbol, query) || (a.Address != "" && strings.EqualFold(a.Address, query)) {
			return a, nil
		}
	}

	err := remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{
		"asset": query,
		"chain": assets[0].Chain.String(),
	})
	if s := suggestSymbol(assets, query); s != "" {
		return chain.Asset{}, remiterr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", s))
	}
	return chain.Asset{}, remiterr.WithSuggestion(err, "available: "+strings.Join(symbols(assets), ", "))
}

func suggestSymbol(assets []chain.Asset, query string) string {
	query = strings.ToUpper(query)
	best, bestDist := "", maxSymbolDistance+1
	for _, a := range assets {
		if d := levenshtein.ComputeDistance(query, strings.ToUpper(a.Symbol)); d < bestDist {
			best, bestDist = a.Symbol, d
		}
	}
	return best
}

func symbols(assets []chain.Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Symbol
	}
	return out
}
