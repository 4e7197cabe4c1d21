package tron

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// trc20ABI declares the single TRC-20 method the wallet calls.
const trc20ABI = `[{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

// TransferSelector is the 4-byte selector of transfer(address,uint256).
const TransferSelector = "a9059cbb"

//nolint:gochecknoglobals // Parsed once; the ABI is a constant
var transferABI = mustParseABI(trc20ABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parsing TRC-20 ABI: %v", err))
	}
	return parsed
}

// EncodeTransfer returns the call data for transfer(to, amount).
func EncodeTransfer(to Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid transfer amount: %v", amount)
	}
	data, err := transferABI.Pack("transfer", to.EVM(), amount)
	if err != nil {
		return nil, fmt.Errorf("packing transfer call: %w", err)
	}
	return data, nil
}
