package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrz1836/remit/internal/signer"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

// minPasswordLength is enforced when a keystore password is chosen.
const minPasswordLength = 8

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // Swappable for tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptLineFn        = promptLine
	promptConfirmFn     = promptConfirm
)

//nolint:gochecknoglobals // Shared so buffered input is not lost between prompts
var stdin = bufio.NewReader(os.Stdin)

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // G115: Fd() fits in int on supported platforms
	outln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Choose a keystore password: ")
	if err != nil {
		return nil, err
	}

	if len(password) < minPasswordLength {
		clear(password)
		return nil, remiterr.WithSuggestion(
			remiterr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		)
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		clear(password)
		return nil, err
	}
	defer clear(confirm)

	if string(password) != string(confirm) {
		clear(password)
		return nil, remiterr.WithSuggestion(remiterr.ErrInvalidInput, "passwords do not match")
	}
	return password, nil
}

// promptLine reads one line of visible input.
func promptLine(prompt string) (string, error) {
	out(os.Stderr, "%s", prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", remiterr.WithCause(remiterr.ErrUserCancelled, err)
	}
	return strings.TrimSpace(line), nil
}

// promptConfirm asks a yes/no question; anything but yes is no.
func promptConfirm(prompt string) bool {
	answer, err := promptLineFn(prompt + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// unlockPrompt adapts the password prompt to the signer provider. It runs
// only when the transfer is about to be signed.
func unlockPrompt(_ context.Context, walletID string, _ signer.Purpose) ([]byte, error) {
	return promptPasswordFn(fmt.Sprintf("Password for wallet %q (empty to cancel): ", walletID))
}
