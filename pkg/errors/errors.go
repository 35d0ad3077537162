// Package errors provides structured error handling for etenda.
// It defines the domain error kinds, sentinel errors, exit codes, and
// helpers for adding context, details, and suggestions to errors.
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
	ExitInput      = 2 // Invalid input or failed local validation
	ExitAuth       = 3 // Signer declined or decryption failed
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Wallet, provider, or network unavailable
	ExitLedger     = 6 // Ledger rejected the request
	ExitTimeout    = 7 // Outcome unknown, re-query before retrying
)

// Kind is the closed set of error categories surfaced to callers.
type Kind string

// Error kinds.
const (
	KindGeneral             Kind = "general"
	KindValidation          Kind = "validation"
	KindInput               Kind = "input"
	KindNotFound            Kind = "not_found"
	KindUserRejected        Kind = "user_rejected"
	KindNoProvider          Kind = "no_provider"
	KindUnsupportedNetwork  Kind = "unsupported_network"
	KindWalletChanged       Kind = "wallet_changed"
	KindContract            Kind = "contract"
	KindGasEstimationFailed Kind = "gas_estimation_failed"
	KindNonceConflict       Kind = "nonce_conflict"
	KindTimedOut            Kind = "timed_out"
	KindUnknownFailure      Kind = "unknown_failure"
)

// IsDomain reports whether k is one of the classified transaction kinds
// rather than a generic application error.
func (k Kind) IsDomain() bool {
	return k != "" && k != KindGeneral
}

// EtendaError is the structured error type for etenda.
type EtendaError struct {
	Kind       Kind              // Error category
	Code       string            // Machine-readable error code
	Reason     string            // Ledger or local reason code, when the kind carries one
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *EtendaError) Error() string {
	msg := e.Message

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

func (e *EtendaError) Unwrap() error {
	return e.Cause
}

// Is matches on Code, and on Reason when the target names one.
func (e *EtendaError) Is(target error) bool {
	var t *EtendaError
	if !errors.As(target, &t) {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

func (e *EtendaError) clone() *EtendaError {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// Sentinel errors.
var (
	ErrGeneral = &EtendaError{
		Kind:     KindGeneral,
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &EtendaError{
		Kind:     KindInput,
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	// Transaction domain errors.
	ErrValidation = &EtendaError{
		Kind:     KindValidation,
		Code:     "VALIDATION_FAILED",
		Message:  "request failed local validation",
		ExitCode: ExitInput,
	}

	ErrPrecision = &EtendaError{
		Kind:     KindInput,
		Code:     "PRECISION_ERROR",
		Message:  "amount has more than 18 fractional digits",
		ExitCode: ExitInput,
	}

	ErrInvalidDeadlineInput = &EtendaError{
		Kind:     KindInput,
		Code:     "INVALID_DEADLINE_INPUT",
		Message:  "deadline could not be parsed",
		ExitCode: ExitInput,
	}

	ErrTenderNotFound = &EtendaError{
		Kind:     KindNotFound,
		Code:     "TENDER_NOT_FOUND",
		Message:  "tender not found",
		ExitCode: ExitNotFound,
	}

	ErrUserRejected = &EtendaError{
		Kind:     KindUserRejected,
		Code:     "USER_REJECTED",
		Message:  "transaction rejected by signer",
		ExitCode: ExitAuth,
	}

	ErrNoProvider = &EtendaError{
		Kind:     KindNoProvider,
		Code:     "NO_PROVIDER",
		Message:  "no wallet or provider available",
		ExitCode: ExitPermission,
	}

	ErrUnsupportedNetwork = &EtendaError{
		Kind:     KindUnsupportedNetwork,
		Code:     "UNSUPPORTED_NETWORK",
		Message:  "network is not supported",
		ExitCode: ExitPermission,
	}

	ErrWalletChanged = &EtendaError{
		Kind:     KindWalletChanged,
		Code:     "WALLET_CHANGED",
		Message:  "wallet account or network changed before submission",
		ExitCode: ExitPermission,
	}

	ErrContract = &EtendaError{
		Kind:     KindContract,
		Code:     "CONTRACT_ERROR",
		Message:  "ledger rejected the request",
		ExitCode: ExitLedger,
	}

	ErrGasEstimationFailed = &EtendaError{
		Kind:     KindGasEstimationFailed,
		Code:     "GAS_ESTIMATION_FAILED",
		Message:  "gas estimation failed",
		ExitCode: ExitGeneral,
	}

	ErrNonceConflict = &EtendaError{
		Kind:     KindNonceConflict,
		Code:     "NONCE_CONFLICT",
		Message:  "nonce conflict",
		ExitCode: ExitGeneral,
	}

	ErrTimedOut = &EtendaError{
		Kind:     KindTimedOut,
		Code:     "TIMED_OUT",
		Message:  "no inclusion observed before the wait elapsed",
		ExitCode: ExitTimeout,
	}

	ErrUnknownFailure = &EtendaError{
		Kind:     KindUnknownFailure,
		Code:     "UNKNOWN_FAILURE",
		Message:  "unknown failure",
		ExitCode: ExitGeneral,
	}

	// Key and wallet errors.
	ErrKeyNotFound = &EtendaError{
		Kind:     KindGeneral,
		Code:     "KEY_NOT_FOUND",
		Message:  "signing key not found",
		ExitCode: ExitNotFound,
	}

	ErrKeyExists = &EtendaError{
		Kind:     KindGeneral,
		Code:     "KEY_EXISTS",
		Message:  "signing key already exists",
		ExitCode: ExitInput,
	}

	ErrInvalidMnemonic = &EtendaError{
		Kind:     KindInput,
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrDecryptionFailed = &EtendaError{
		Kind:     KindGeneral,
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong password or corrupted file",
		ExitCode: ExitAuth,
	}

	// Chain errors.
	ErrInvalidAddress = &EtendaError{
		Kind:     KindInput,
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &EtendaError{
		Kind:     KindInput,
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	ErrInvalidTenderID = &EtendaError{
		Kind:     KindInput,
		Code:     "INVALID_TENDER_ID",
		Message:  "invalid tender id",
		ExitCode: ExitInput,
	}

	ErrNetworkError = &EtendaError{
		Kind:     KindGeneral,
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrInvalidGasSpeed = &EtendaError{
		Kind:     KindInput,
		Code:     "INVALID_GAS_SPEED",
		Message:  "invalid gas speed",
		ExitCode: ExitInput,
	}

	// Config errors.
	ErrConfigNotFound = &EtendaError{
		Kind:     KindGeneral,
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &EtendaError{
		Kind:     KindGeneral,
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &EtendaError{
		Kind:     KindGeneral,
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
	}
)

// WithReason returns a copy of the sentinel carrying a reason code.
func WithReason(sentinel *EtendaError, reason string) *EtendaError {
	e := sentinel.clone()
	e.Reason = reason
	return e
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ee *EtendaError
	if errors.As(err, &ee) {
		w := ee.clone()
		w.Message = fmt.Sprintf("%s: %s", msg, ee.Message)
		w.Cause = err
		return w
	}

	return &EtendaError{
		Kind:     KindGeneral,
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of the error with cause attached.
func WithCause(err *EtendaError, cause error) *EtendaError {
	c := err.clone()
	c.Cause = cause
	return c
}

// WithDetails adds details to an error. Existing details are kept unless
// overwritten by a key in details.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ee *EtendaError
	if errors.As(err, &ee) {
		c := ee.clone()
		if c.Details == nil {
			c.Details = make(map[string]string, len(details))
		}
		for k, v := range details {
			c.Details[k] = v
		}
		return c
	}

	return &EtendaError{
		Kind:     KindGeneral,
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

	var ee *EtendaError
	if errors.As(err, &ee) {
		c := ee.clone()
		c.Suggestion = suggestion
		return c
	}

	return &EtendaError{
		Kind:       KindGeneral,
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

	var ee *EtendaError
	if errors.As(err, &ee) {
		return ee.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var ee *EtendaError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return "GENERAL_ERROR"
}

// KindOf returns the kind of the outermost EtendaError in the chain.
func KindOf(err error) Kind {
	var ee *EtendaError
	if errors.As(err, &ee) && ee.Kind != "" {
		return ee.Kind
	}
	return KindGeneral
}

// ReasonOf returns the reason code carried by the error, if any.
func ReasonOf(err error) string {
	var ee *EtendaError
	if errors.As(err, &ee) {
		return ee.Reason
	}
	return ""
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
