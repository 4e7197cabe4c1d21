package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/remit/internal/amount"
	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/chain/ton"
	"github.com/mrz1836/remit/internal/chain/tron"
	"github.com/mrz1836/remit/internal/output"
	"github.com/mrz1836/remit/internal/wizard"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// preloadTimeout bounds the initial balance and rate fetch.
const preloadTimeout = 10 * time.Second

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	sendWallet      string
	sendChain       string
	sendTo          string
	sendAsset       string
	sendAmount      string
	sendFiat        bool
	sendMax         bool
	sendComment     string
	sendYes         bool
	sendMetricsAddr string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send TON, TRX or a token",
	Long: `Send funds through the transfer wizard. Missing values are prompted for.

The recipient may be a raw or friendly TON address, a TON DNS name such as
alice.ton, or a TRON base58 address. Amounts are typed in the asset unit or,
with --fiat, in the configured fiat currency.

Examples:
  # Send 1.5 TON with a comment
  remit send --chain ton --to alice.ton --amount 1.5 --comment "rent"

  # Send the whole USDT balance on TRON
  remit send --chain tron --to TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t --asset USDT --max

  # Send 20 dollars worth of TON
  remit send --chain ton --to EQ... --amount 20 --fiat`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendWallet, "wallet", "", "wallet name (default from config)")
	sendCmd.Flags().StringVar(&sendChain, "chain", "ton", "network: ton, tron")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address or TON DNS name")
	sendCmd.Flags().StringVar(&sendAsset, "asset", "", "asset symbol or contract address (default: native coin)")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount to send")
	sendCmd.Flags().BoolVar(&sendFiat, "fiat", false, "interpret --amount in the fiat currency")
	sendCmd.Flags().BoolVar(&sendMax, "max", false, "send the entire balance")
	sendCmd.Flags().StringVar(&sendComment, "comment", "", "transfer comment (TON only)")
	sendCmd.Flags().BoolVar(&sendYes, "yes", false, "skip the confirmation prompt")
	sendCmd.Flags().StringVar(&sendMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	sendCmd.MarkFlagsMutuallyExclusive("amount", "max")
}

//nolint:gocognit,gocyclo // CLI flow walks every wizard step in order
func runSend(cmd *cobra.Command, _ []string) error {
	chainID, ok := chain.ParseChainID(sendChain)
	if !ok {
		return remiterr.WithSuggestion(
			remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"chain": sendChain}),
			"use ton or tron",
		)
	}
	asset, err := findAsset(cfg.Assets(chainID), sendAsset)
	if err != nil {
		return err
	}
	if sendAmount != "" {
		decimals := asset.Decimals
		if (cmd.Flags().Changed("fiat") && sendFiat) || (!cmd.Flags().Changed("fiat") && cfg.Wizard.FiatMode) {
			decimals = amount.FiatDecimals
		}
		if err := checkAmountText(sendAmount, decimals); err != nil {
			return err
		}
	}

	walletID := sendWallet
	if walletID == "" {
		walletID = cfg.Wizard.DefaultWallet
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var current atomic.Pointer[wizard.Wizard]
	svc, err := newServices(cfg, logger, newKeystore(), walletID, func() {
		if w := current.Load(); w != nil {
			w.RefreshPrice()
		}
	})
	if err != nil {
		return err
	}

	metricsAddr := sendMetricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.Metrics.Addr
	}
	if metricsAddr != "" {
		shutdown, err := serveMetrics(metricsAddr, svc.registry)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	preload(ctx, svc, asset)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go svc.feed.Run(runCtx)

	w, err := wizard.New(wizard.Config{
		WalletID: walletID,
		Senders:  svc.wallet.Addresses,
		Validators: map[chain.ID]chain.AddressValidator{
			chain.TON:  ton.Validator{},
			chain.TRON: tron.Validator{},
		},
		Resolver:        svc.ledger,
		Estimator:       svc.relay,
		Rates:           svc.feed,
		Balances:        svc.balances,
		Executor:        svc.engine,
		Normalizer:      amount.NewNormalizer(cfg.Wizard.DecimalSeparator, cfg.Wizard.GroupSeparator),
		FiatMode:        cfg.Wizard.FiatMode,
		ResolveTimeout:  cfg.Wizard.ResolveTimeout,
		EstimateTimeout: cfg.Wizard.EstimateTimeout,
		Logger:          logger,
		Metrics:         svc.metrics,
	})
	if err != nil {
		return err
	}
	current.Store(w)
	defer w.Close()

	if err := enterRecipient(ctx, cmd, w, chainID); err != nil {
		return err
	}
	if err := enterAmount(ctx, w, asset, cmd.Flags().Changed("fiat")); err != nil {
		return err
	}

	if _, err := w.WaitFee(ctx); err != nil {
		return err
	}
	intent, err := w.Confirm(ctx)
	if err != nil {
		return err
	}

	snap := w.Snapshot()
	summary := output.NewIntentOutput(intent, snap.Amount.Fiat, strings.ToUpper(cfg.Wizard.FiatCurrency))
	if err := output.WriteIntent(cmd.OutOrStdout(), summary, format); err != nil {
		return err
	}
	if !sendYes && !promptConfirmFn("Send this transfer?") {
		return remiterr.ErrUserCancelled
	}

	if _, err := w.Submit(ctx); err != nil {
		return err
	}
	receipt := w.Snapshot().Receipt
	if receipt == nil {
		return remiterr.ErrGeneral
	}
	return output.WriteReceipt(cmd.OutOrStdout(), receipt, format)
}

// preload warms the balance cache and rate feed concurrently. Failures are
// logged; the wizard fetches again when it needs the values.
func preload(ctx context.Context, svc *services, asset chain.Asset) {
	ctx, cancel := context.WithTimeout(ctx, preloadTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := svc.feed.Refresh(gctx); err != nil {
			logger.Debug("rate preload failed", zap.Error(err))
		}
		return nil
	})
	assets := []chain.Asset{asset}
	if !asset.IsNative() {
		assets = append(assets, asset.FeeAsset())
	}
	for _, a := range assets {
		g.Go(func() error {
			if _, err := svc.balances.Balance(gctx, a); err != nil {
				logger.Debug("balance preload failed", zap.String("asset", a.ID()), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func enterRecipient(ctx context.Context, cmd *cobra.Command, w *wizard.Wizard, chainID chain.ID) error {
	to := sendTo
	if to == "" {
		var err error
		if to, err = promptLineFn(fmt.Sprintf("Recipient (%s address): ", chainID)); err != nil {
			return err
		}
	}

	data, err := w.ResolveRecipient(ctx, chainID, to)
	if err != nil {
		return err
	}
	switch {
	case remiterr.Is(data.Err, remiterr.ErrInvalidAddress):
		return data.Err
	case remiterr.Is(data.Err, remiterr.ErrRecipientUnresolved) && data.Ready:
		output.Warn(cmd.ErrOrStderr(), "%s", remiterr.UserMessage(data.Err))
	}

	comment := sendComment
	if comment == "" && data.MemoRequired {
		if comment, err = promptLineFn("This recipient requires a comment (memo): "); err != nil {
			return err
		}
	}
	if comment != "" {
		if _, err := w.SetComment(comment); err != nil {
			return err
		}
	}
	return w.SubmitRecipient()
}

func enterAmount(ctx context.Context, w *wizard.Wizard, asset chain.Asset, fiatFlagSet bool) error {
	if !asset.IsNative() {
		if err := w.SelectAsset(asset); err != nil {
			return err
		}
	}

	wantFiat := cfg.Wizard.FiatMode
	if fiatFlagSet {
		wantFiat = sendFiat
	}
	state := w.Snapshot().Amount
	if state.FiatMode != wantFiat {
		toggled, err := w.ToggleFiat()
		if err != nil {
			return err
		}
		if toggled.FiatMode != wantFiat {
			return remiterr.WithSuggestion(
				remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"asset": asset.Symbol}),
				"no fiat price is available; enter the amount in "+asset.Symbol,
			)
		}
		state = toggled
	}

	if sendMax {
		maxed, err := w.SetMax(ctx)
		if err != nil {
			return err
		}
		if !maxed.Max {
			return remiterr.ErrPriceUnavailable
		}
		return nil
	}

	text := sendAmount
	if text == "" {
		unit := asset.Symbol
		if state.FiatMode {
			unit = strings.ToUpper(cfg.Wizard.FiatCurrency)
		}
		var err error
		if text, err = promptLineFn(fmt.Sprintf("Amount (%s): ", unit)); err != nil {
			return err
		}
	}
	if err := checkAmountText(text, state.InputDecimals()); err != nil {
		return err
	}
	_, err := w.Input(text)
	return err
}

// checkAmountText rejects zero and any text the wizard would drop as a
// rejected keystroke.
func checkAmountText(text string, decimals int) error {
	canonical, err := amount.NewNormalizer(cfg.Wizard.DecimalSeparator, cfg.Wizard.GroupSeparator).Parse(text, decimals)
	if err != nil {
		return err
	}
	if amount.ParseCanonical(canonical).Sign() <= 0 {
		return remiterr.WithDetails(remiterr.ErrInvalidAmount, map[string]string{"input": text})
	}
	return nil
}

// serveMetrics exposes reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
