// Package errors provides structured error handling for remit.
// It defines the transfer error taxonomy, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Signer or credential failure
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Insufficient funds
	ExitCancelled  = 6 // User cancelled
)

// RemitError is the structured error type for remit.
type RemitError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *RemitError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *RemitError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for RemitError. Two errors match when their codes match.
func (e *RemitError) Is(target error) bool {
	var t *RemitError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Transfer taxonomy. Each sentinel maps to one user-facing message.
var (
	ErrInvalidAddress = &RemitError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrRecipientUnresolved = &RemitError{
		Code:     "RECIPIENT_UNRESOLVED",
		Message:  "recipient account could not be resolved",
		ExitCode: ExitNotFound,
	}

	ErrInsufficientBalance = &RemitError{
		Code:     "INSUFFICIENT_BALANCE",
		Message:  "insufficient balance for transfer",
		ExitCode: ExitPermission,
	}

	ErrInsufficientSecondaryBalance = &RemitError{
		Code:     "INSUFFICIENT_SECONDARY_BALANCE",
		Message:  "insufficient balance to pay network fees",
		ExitCode: ExitPermission,
	}

	ErrFeeEstimationFailed = &RemitError{
		Code:     "FEE_ESTIMATION_FAILED",
		Message:  "fee estimation failed",
		ExitCode: ExitGeneral,
	}

	ErrSignerUnavailable = &RemitError{
		Code:     "SIGNER_UNAVAILABLE",
		Message:  "signer unavailable",
		ExitCode: ExitAuth,
	}

	ErrUserCancelled = &RemitError{
		Code:     "USER_CANCELLED",
		Message:  "cancelled by user",
		ExitCode: ExitCancelled,
	}

	ErrBroadcastFailed = &RemitError{
		Code:     "BROADCAST_FAILED",
		Message:  "transaction broadcast failed",
		ExitCode: ExitGeneral,
	}
)

// Flow and general errors.
var (
	ErrGeneral = &RemitError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &RemitError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &RemitError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount",
		ExitCode: ExitInput,
	}

	ErrNotFound = &RemitError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrNetworkError = &RemitError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrNotSupported = &RemitError{
		Code:     "NOT_SUPPORTED",
		Message:  "operation not supported for this chain",
		ExitCode: ExitInput,
	}

	ErrUnsupportedKind = &RemitError{
		Code:     "UNSUPPORTED_ASSET_KIND",
		Message:  "unsupported asset kind",
		ExitCode: ExitInput,
	}

	ErrConfigNotFound = &RemitError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &RemitError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	ErrKeystoreNotFound = &RemitError{
		Code:     "KEYSTORE_NOT_FOUND",
		Message:  "keystore not found",
		ExitCode: ExitNotFound,
	}

	ErrDecryptionFailed = &RemitError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong password or corrupted file",
		ExitCode: ExitAuth,
	}

	ErrWizardClosed = &RemitError{
		Code:     "WIZARD_CLOSED",
		Message:  "transfer wizard is closed",
		ExitCode: ExitGeneral,
	}

	ErrInvalidTransition = &RemitError{
		Code:     "INVALID_TRANSITION",
		Message:  "action not allowed in the current step",
		ExitCode: ExitInput,
	}

	ErrNotReady = &RemitError{
		Code:     "RECIPIENT_NOT_READY",
		Message:  "recipient is not ready",
		ExitCode: ExitInput,
	}

	ErrPriceUnavailable = &RemitError{
		Code:       "PRICE_UNAVAILABLE",
		Message:    "no price is known to convert the fiat amount",
		Suggestion: "Enter the amount in the asset or wait for prices to load",
		ExitCode:   ExitInput,
	}

	ErrFeeNotReady = &RemitError{
		Code:     "FEE_NOT_READY",
		Message:  "fee estimate is not available yet",
		ExitCode: ExitInput,
	}

	ErrSuperseded = &RemitError{
		Code:     "SUPERSEDED",
		Message:  "request superseded by a newer one",
		ExitCode: ExitGeneral,
	}
)

// userMessages holds the user-facing text for the transfer taxonomy.
//
//nolint:gochecknoglobals // Read-only lookup table
var userMessages = map[string]string{
	ErrInvalidAddress.Code:               "The address is not valid for this network.",
	ErrRecipientUnresolved.Code:          "Could not look up the recipient. You can still send to a raw address.",
	ErrInsufficientBalance.Code:          "Not enough funds for this amount.",
	ErrInsufficientSecondaryBalance.Code: "Not enough funds to pay the network fee.",
	ErrFeeEstimationFailed.Code:          "Could not estimate the network fee. Change the amount to retry.",
	ErrSignerUnavailable.Code:            "Could not unlock the wallet for signing.",
	ErrUserCancelled.Code:                "",
	ErrBroadcastFailed.Code:              "The transfer could not be sent. Please try again.",
}

// UserMessage returns the user-facing message for an error.
// Cancellation maps to the empty string because it must never be shown as a failure.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := userMessages[Code(err)]; ok {
		return msg
	}
	var se *RemitError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// IsSilent reports whether the error is a user cancellation that must not
// be rendered as an error.
func IsSilent(err error) bool {
	return errors.Is(err, ErrUserCancelled)
}

// New creates a new RemitError with the given code and message.
func New(code, message string) *RemitError {
	return &RemitError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var se *RemitError
	if errors.As(err, &se) {
		return &RemitError{
			Code:       se.Code,
			Message:    fmt.Sprintf("%s: %s", msg, se.Message),
			Details:    se.Details,
			Suggestion: se.Suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &RemitError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a taxonomy error, keeping its code.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var se *RemitError
	if errors.As(err, &se) {
		return &RemitError{
			Code:       se.Code,
			Message:    se.Message,
			Details:    se.Details,
			Suggestion: se.Suggestion,
			Cause:      cause,
			ExitCode:   se.ExitCode,
		}
	}

	return fmt.Errorf("%w: %w", err, cause)
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var se *RemitError
	if errors.As(err, &se) {
		return &RemitError{
			Code:       se.Code,
			Message:    se.Message,
			Details:    details,
			Suggestion: se.Suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &RemitError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var se *RemitError
	if errors.As(err, &se) {
		return &RemitError{
			Code:       se.Code,
			Message:    se.Message,
			Details:    se.Details,
			Suggestion: suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &RemitError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var se *RemitError
	if errors.As(err, &se) {
		return se.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var se *RemitError
	if errors.As(err, &se) {
		return se.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
