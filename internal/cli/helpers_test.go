package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mrz1836/remit/internal/signer"
)

const (
	testMnemonic   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPassword   = "correct horse battery"
	testTONAddress = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	testWorkFactor = 10
)

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, password []byte, line string, confirm bool) {
	t.Helper()
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	origLine := promptLineFn
	origConfirm := promptConfirmFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
		promptLineFn = origLine
		promptConfirmFn = origConfirm
	})
	promptPasswordFn = func(_ string) ([]byte, error) {
		return bytes.Clone(password), nil
	}
	promptNewPasswordFn = func() ([]byte, error) {
		return bytes.Clone(password), nil
	}
	promptLineFn = func(_ string) (string, error) {
		return line, nil
	}
	promptConfirmFn = func(_ string) bool { return confirm }
}

// withFastKeystore lowers the scrypt cost for the duration of the test.
func withFastKeystore(t *testing.T) {
	t.Helper()
	orig := newKeystore
	t.Cleanup(func() { newKeystore = orig })
	newKeystore = func() *signer.Keystore {
		ks := signer.NewKeystore(cfg.KeystoreDir())
		ks.SetWorkFactor(testWorkFactor)
		return ks
	}
}

// resetFlags restores every flag to its default so one command run does
// not leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// runCommand executes the root command with args and returns its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), err
}
