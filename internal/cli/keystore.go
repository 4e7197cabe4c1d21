package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrz1836/remit/internal/chain"
	"github.com/mrz1836/remit/internal/output"
	"github.com/mrz1836/remit/internal/signer"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// importTONAddress is the deployed TON wallet contract address.
	importTONAddress string
	// importMnemonicFile reads the recovery phrase from a file instead of a prompt.
	importMnemonicFile string
)

// newKeystore opens the keystore; replaced in tests to lower the scrypt cost.
//
//nolint:gochecknoglobals // Swappable for tests
var newKeystore = func() *signer.Keystore {
	return signer.NewKeystore(cfg.KeystoreDir())
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "Manage encrypted wallets",
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keystoreImportCmd = &cobra.Command{
	Use:   "import <wallet>",
	Short: "Import a recovery phrase into the encrypted keystore",
	Long: `Import a 12 or 24 word recovery phrase. The phrase is encrypted with age
under a password you choose and is only decrypted when a transfer is signed.

The TON wallet address depends on the wallet contract version, so it is
given explicitly. The TRON address is derived from the phrase.

Example:
  remit keystore import main --ton-address EQD...`,
	Args: cobra.ExactArgs(1),
	RunE: runKeystoreImport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keystoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets and their addresses",
	Args:  cobra.NoArgs,
	RunE:  runKeystoreList,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(keystoreCmd)
	keystoreCmd.AddCommand(keystoreImportCmd, keystoreListCmd)

	keystoreImportCmd.Flags().StringVar(&importTONAddress, "ton-address", "", "TON wallet address (required)")
	keystoreImportCmd.Flags().StringVar(&importMnemonicFile, "mnemonic-file", "", "read the recovery phrase from a file")
	_ = keystoreImportCmd.MarkFlagRequired("ton-address")
}

func runKeystoreImport(cmd *cobra.Command, args []string) error {
	id := args[0]
	if err := signer.ValidateWalletID(id); err != nil {
		return err
	}

	mnemonic, err := readMnemonic()
	if err != nil {
		return err
	}
	if err := signer.ValidateMnemonic(mnemonic); err != nil {
		return err
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer clear(password)

	w, err := newKeystore().Import(id, mnemonic, password, importTONAddress)
	if errors.Is(err, signer.ErrWalletExists) {
		return remiterr.WithSuggestion(
			remiterr.WithDetails(remiterr.ErrInvalidInput, map[string]string{"wallet": id}),
			"choose another wallet name",
		)
	}
	if err != nil {
		return err
	}
	logger.Info("wallet imported", zap.String("wallet", id))

	return writeWallets(cmd, []*signer.Wallet{w})
}

func readMnemonic() (string, error) {
	if importMnemonicFile != "" {
		data, err := os.ReadFile(importMnemonicFile) // #nosec G304 -- path supplied by the user
		if err != nil {
			return "", fmt.Errorf("reading mnemonic file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return promptLineFn("Recovery phrase (12 or 24 words): ")
}

func runKeystoreList(cmd *cobra.Command, _ []string) error {
	ks := newKeystore()
	ids, err := ks.List()
	if err != nil {
		return err
	}

	wallets := make([]*signer.Wallet, 0, len(ids))
	for _, id := range ids {
		w, err := ks.Metadata(id)
		if err != nil {
			logger.Warn("skipping unreadable keystore entry", zap.String("wallet", id), zap.Error(err))
			continue
		}
		wallets = append(wallets, w)
	}
	if len(wallets) == 0 && format != output.FormatJSON {
		output.Info(cmd.OutOrStdout(), "No wallets yet. Import one with: remit keystore import <wallet> --ton-address <address>")
		return nil
	}
	return writeWallets(cmd, wallets)
}

func writeWallets(cmd *cobra.Command, wallets []*signer.Wallet) error {
	w := cmd.OutOrStdout()
	if format == output.FormatJSON {
		return output.PrintJSON(w, wallets)
	}

	t := output.NewTable("Wallet", "Chain", "Address")
	for _, wlt := range wallets {
		chains := make([]string, 0, len(wlt.Addresses))
		for id := range wlt.Addresses {
			chains = append(chains, string(id))
		}
		sort.Strings(chains)
		for _, id := range chains {
			t.AddRow(wlt.ID, id, wlt.Addresses[chain.ID(id)])
		}
	}
	return t.Render(w)
}
