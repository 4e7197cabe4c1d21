package cli

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mrz1836/remit/internal/balance"
	"github.com/mrz1836/remit/internal/cache"
	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/chain/ton"
	"github.com/mrz1836/remit/internal/chain/tron"
	"github.com/mrz1836/remit/internal/config"
	"github.com/mrz1836/remit/internal/execution"
	"github.com/mrz1836/remit/internal/market"
	"github.com/mrz1836/remit/internal/metrics"
	"github.com/mrz1836/remit/internal/recipient"
	"github.com/mrz1836/remit/internal/relay"
	"github.com/mrz1836/remit/internal/signer"
)

// services are the collaborators of one send command.
type services struct {
	wallet   *signer.Wallet
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	ledger   *recipient.Ledger
	relay    *relay.Client
	balances *balance.Source
	feed     *market.Feed
	engine   *execution.Engine
}

// newServices wires the API clients, balance cache, rate feed and
// execution engine for walletID. onRates runs after every rate refresh.
func newServices(c *config.Config, log *zap.Logger, ks *signer.Keystore, walletID string, onRates func()) (*services, error) {
	if log == nil {
		log = zap.NewNop()
	}
	wallet, err := ks.Metadata(walletID)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	tonClient := ton.NewClient(c.Networks.TON.APIKey, &ton.ClientOptions{BaseURL: c.Networks.TON.API})
	tronClient := tron.NewClient(c.Networks.TRON.APIKey, &tron.ClientOptions{BaseURL: c.Networks.TRON.API})
	msgOpts := c.MessageOptions()
	relayClient := relay.NewClient(c.Relay.URL, c.Relay.APIKey, &relay.ClientOptions{Messages: &msgOpts})

	storage := cache.NewFileStorage(c.CachePath())
	balanceCache, err := storage.Load()
	switch {
	case errors.Is(err, cache.ErrCorruptCache):
		log.Warn("balance cache was corrupt and has been reset", zap.String("path", storage.Path()))
	case err != nil:
		log.Warn("balance cache unavailable", zap.Error(err))
		balanceCache = cache.NewBalanceCache()
	}

	balances := balance.NewSource(balance.Config{
		Readers: map[chain.ID]chain.BalanceReader{
			chain.TON:  tonClient,
			chain.TRON: tronClient,
		},
		Owners:  wallet.Addresses,
		Cache:   balanceCache,
		Storage: storage,
		MaxAge:  c.Cache.BalanceMaxAge,
		Logger:  log,
		Metrics: m,
	})

	assets := append(c.Assets(chain.TON), c.Assets(chain.TRON)...)
	feed := market.NewFeed(market.Config{
		Fetcher:  tonClient,
		Currency: c.Wizard.FiatCurrency,
		Interval: c.Wizard.RateInterval,
		Assets:   assets,
		Fixed:    fixedPrices(assets, c.Wizard.FiatCurrency),
		Logger:   log,
		OnUpdate: onRates,
	})

	engine := execution.NewEngine(execution.Config{
		Balances: balances,
		Signers: &signer.KeystoreProvider{
			Keystore: ks,
			Prompt:   unlockPrompt,
			Logger:   log,
		},
		Broadcaster: relayClient,
		Invalidator: balances,
		Messages:    msgOpts,
		Logger:      log,
		Metrics:     m,
	})

	return &services{
		wallet:   wallet,
		registry: reg,
		metrics:  m,
		ledger:   &recipient.Ledger{TON: tonClient, TRON: tronClient},
		relay:    relayClient,
		balances: balances,
		feed:     feed,
		engine:   engine,
	}, nil
}

// fixedPrices prices pegged tokens at 1 when the fiat currency is USD.
// TronGrid has no price endpoint, so without this TRON USDT has no fiat value.
func fixedPrices(assets []chain.Asset, currency string) map[string]decimal.Decimal {
	if !strings.EqualFold(currency, "usd") {
		return nil
	}
	fixed := make(map[string]decimal.Decimal)
	for _, a := range assets {
		if a.Pegged {
			fixed[a.ID()] = decimal.NewFromInt(1)
		}
	}
	return fixed
}
