package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvHome             = "REMIT_HOME"
	EnvTONAPIKey        = "REMIT_TONAPI_KEY"   // #nosec G101 -- false positive, this is a const name not a credential
	EnvTRONGridKey      = "REMIT_TRONGRID_KEY" // #nosec G101 -- false positive, this is a const name not a credential
	EnvRelayURL         = "REMIT_RELAY_URL"
	EnvRelayKey         = "REMIT_RELAY_KEY" // #nosec G101 -- false positive, this is a const name not a credential
	EnvLogLevel         = "REMIT_LOG_LEVEL"
	EnvFiat             = "REMIT_FIAT"
	EnvFiatMode         = "REMIT_FIAT_MODE"
	EnvDecimalSeparator = "REMIT_DECIMAL_SEPARATOR"
	EnvMetricsAddr      = "REMIT_METRICS_ADDR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvTONAPIKey); v != "" {
		cfg.Networks.TON.APIKey = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvTRONGridKey); v != "" {
		cfg.Networks.TRON.APIKey = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvRelayURL); v != "" {
		if u := SanitizeURL(v); u != "" {
			cfg.Relay.URL = u
		}
	}

	if v := os.Getenv(EnvRelayKey); v != "" {
		cfg.Relay.APIKey = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvFiat); v != "" {
		cfg.Wizard.FiatCurrency = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvFiatMode); v != "" {
		cfg.Wizard.FiatMode = parseBool(v)
	}

	// The group separator flips with the decimal one so the pair stays distinct.
	if v := strings.TrimSpace(os.Getenv(EnvDecimalSeparator)); v == "." || v == "," {
		cfg.Wizard.DecimalSeparator = v
		if v == "," {
			cfg.Wizard.GroupSeparator = "."
		} else {
			cfg.Wizard.GroupSeparator = ","
		}
	}

	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Metrics.Addr = strings.TrimSpace(v)
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL trims copy-paste artifacts from a user-provided URL and
// returns "" unless the result is an absolute http(s) URL.
func SanitizeURL(raw string) string {
	raw = strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return strings.TrimRight(u.String(), "/")
}
