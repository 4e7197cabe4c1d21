// Package config provides configuration management for remit.
package config

import (
	"errors"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/fileutil"
	"github.com/mrz1836/remit/internal/message"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Networks NetworksConfig `yaml:"networks"`
	Relay    RelayConfig    `yaml:"relay"`
	Wizard   WizardConfig   `yaml:"wizard"`
	Fees     FeesConfig     `yaml:"fees"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// NetworksConfig defines per-chain network settings.
type NetworksConfig struct {
	TON  NetworkConfig `yaml:"ton"`
	TRON NetworkConfig `yaml:"tron"`
}

// NetworkConfig defines one chain's API endpoint and tracked tokens.
type NetworkConfig struct {
	Enabled bool          `yaml:"enabled"`
	API     string        `yaml:"api"`
	APIKey  string        `yaml:"api_key"`
	Tokens  []TokenConfig `yaml:"tokens"`
}

// TokenConfig defines a jetton or TRC-20 token that can be sent.
type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int    `yaml:"decimals"`
	// Pegged tokens are priced at 1 when the fiat currency is USD.
	Pegged bool `yaml:"pegged"`
}

// RelayConfig defines the wallet backend that emulates and broadcasts transfers.
type RelayConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// WizardConfig defines transfer wizard behavior.
type WizardConfig struct {
	DefaultWallet    string        `yaml:"default_wallet"`
	FiatCurrency     string        `yaml:"fiat_currency"`
	FiatMode         bool          `yaml:"fiat_mode"`
	DecimalSeparator string        `yaml:"decimal_separator"`
	GroupSeparator   string        `yaml:"group_separator"`
	SuccessHold      time.Duration `yaml:"success_hold"`
	RateInterval     time.Duration `yaml:"rate_interval"`
	ResolveTimeout   time.Duration `yaml:"resolve_timeout"`
	EstimateTimeout  time.Duration `yaml:"estimate_timeout"`
}

// FeesConfig defines token transfer fee parameters.
type FeesConfig struct {
	// JettonGasNano is the TON attached to jetton transfers, in nanoton.
	JettonGasNano int64 `yaml:"jetton_gas_nano"`
	// JettonForwardNano is forwarded with the transfer notification.
	JettonForwardNano int64 `yaml:"jetton_forward_nano"`
	// TRC20FeeLimitSun caps energy spend on TRC-20 transfers.
	TRC20FeeLimitSun int64 `yaml:"trc20_fee_limit_sun"`
}

// CacheConfig defines balance cache settings.
type CacheConfig struct {
	BalanceMaxAge time.Duration `yaml:"balance_max_age"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads configuration from the specified file. Missing keys keep
// their defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, remiterr.WithDetails(remiterr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, remiterr.WithCause(remiterr.ErrConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, remiterr.ErrConfigNotFound) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.Write(path, data, 0o600)
}

// Validate checks values that would otherwise fail deep inside the wizard.
func (c *Config) Validate() error {
	invalid := func(field, reason string) error {
		return remiterr.WithDetails(remiterr.ErrConfigInvalid, map[string]string{
			"field":  field,
			"reason": reason,
		})
	}

	if c.Wizard.DecimalSeparator != "." && c.Wizard.DecimalSeparator != "," {
		return invalid("wizard.decimal_separator", "must be \".\" or \",\"")
	}
	if c.Wizard.GroupSeparator == c.Wizard.DecimalSeparator {
		return invalid("wizard.group_separator", "must differ from the decimal separator")
	}
	if c.Wizard.SuccessHold < 0 {
		return invalid("wizard.success_hold", "must not be negative")
	}
	if c.Fees.JettonGasNano < 0 || c.Fees.JettonForwardNano < 0 || c.Fees.TRC20FeeLimitSun < 0 {
		return invalid("fees", "must not be negative")
	}
	for _, net := range []struct {
		name string
		cfg  NetworkConfig
	}{{"ton", c.Networks.TON}, {"tron", c.Networks.TRON}} {
		for _, tok := range net.cfg.Tokens {
			if tok.Symbol == "" || tok.Address == "" {
				return invalid("networks."+net.name+".tokens", "symbol and address are required")
			}
			if tok.Decimals < 0 || tok.Decimals > 36 {
				return invalid("networks."+net.name+".tokens", "decimals out of range")
			}
		}
	}
	return nil
}

// Assets returns the sendable assets of a chain: the native coin followed
// by the configured tokens.
func (c *Config) Assets(id chain.ID) []chain.Asset {
	var net NetworkConfig
	var tokenKind chain.Kind
	switch id {
	case chain.TON:
		net, tokenKind = c.Networks.TON, chain.KindJetton
	case chain.TRON:
		net, tokenKind = c.Networks.TRON, chain.KindStablecoin
	default:
		return nil
	}
	if !net.Enabled {
		return nil
	}

	assets := []chain.Asset{chain.NativeAsset(id)}
	for _, tok := range net.Tokens {
		assets = append(assets, chain.Asset{
			Chain:    id,
			Kind:     tokenKind,
			Address:  tok.Address,
			Decimals: tok.Decimals,
			Symbol:   strings.ToUpper(tok.Symbol),
			Pegged:   tok.Pegged,
		})
	}
	return assets
}

// MessageOptions returns the token transfer parameters.
func (c *Config) MessageOptions() message.Options {
	return message.Options{
		JettonGas:        big.NewInt(c.Fees.JettonGasNano),
		JettonForwardTON: big.NewInt(c.Fees.JettonForwardNano),
		TRC20FeeLimit:    c.Fees.TRC20FeeLimitSun,
	}
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// KeystoreDir returns the directory holding encrypted wallets.
func (c *Config) KeystoreDir() string {
	return filepath.Join(ExpandHome(c.Home), "wallets")
}

// CachePath returns the balance cache file path.
func (c *Config) CachePath() string {
	return filepath.Join(ExpandHome(c.Home), "cache", "balances.json")
}

// LogPath returns the log file path. An empty logging.file logs to
// remit.log under the home directory.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return ExpandHome(c.Logging.File)
	}
	return filepath.Join(ExpandHome(c.Home), "remit.log")
}

// DefaultHome returns the default remit home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".remit"
	}
	return filepath.Join(home, ".remit")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
