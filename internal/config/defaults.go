package config

import (
	"time"

	"github.com/mrz1836/remit/internal/chain/ton"
	"github.com/mrz1836/remit/internal/chain/tron"
)

// Well-known USDT contracts.
const (
	USDTJettonMaster = "EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs"
	USDTTRC20        = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.remit",
		Networks: NetworksConfig{
			TON: NetworkConfig{
				Enabled: true,
				API:     ton.DefaultBaseURL,
				Tokens: []TokenConfig{
					{Symbol: "USDT", Address: USDTJettonMaster, Decimals: 6, Pegged: true},
				},
			},
			TRON: NetworkConfig{
				Enabled: true,
				API:     tron.DefaultBaseURL,
				Tokens: []TokenConfig{
					{Symbol: "USDT", Address: USDTTRC20, Decimals: 6, Pegged: true},
				},
			},
		},
		Relay: RelayConfig{
			URL: "http://127.0.0.1:8787",
		},
		Wizard: WizardConfig{
			DefaultWallet:    "main",
			FiatCurrency:     "usd",
			DecimalSeparator: ".",
			GroupSeparator:   ",",
			SuccessHold:      1500 * time.Millisecond,
			RateInterval:     30 * time.Second,
			ResolveTimeout:   10 * time.Second,
			EstimateTimeout:  15 * time.Second,
		},
		Fees: FeesConfig{
			JettonGasNano:     50_000_000,
			JettonForwardNano: 1,
			TRC20FeeLimitSun:  30_000_000,
		},
		Cache: CacheConfig{
			BalanceMaxAge: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "error",
		},
	}
}
