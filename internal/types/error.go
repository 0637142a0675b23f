package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	// ValidationError covers malformed input and unmet business preconditions.
	// Validation is checked before any ledger call so a doomed action never
	// spends fees.
	ValidationError    ErrorType = "validation_error"
	NotFoundError      ErrorType = "not_found_error"
	AuthorizationError ErrorType = "authorization_error"
	RateLimitError     ErrorType = "rate_limit_error"
	// BlockchainError means a ledger call failed or reverted.
	BlockchainError ErrorType = "blockchain_error"
	ServerError     ErrorType = "server_error"
)

func (t ErrorType) String() string {
	return string(t)
}

// HTTPStatus maps an error type to the status code used by the admin API.
func (t ErrorType) HTTPStatus() int {
	switch t {
	case ValidationError:
		return http.StatusBadRequest
	case AuthorizationError:
		return http.StatusForbidden
	case NotFoundError:
		return http.StatusNotFound
	case RateLimitError:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FailureReason is the fixed classification for failures of mutating ledger
// actions. Raw provider text is matched against known markers exactly once at
// the ledger client boundary; everything downstream consumes this enum.
type FailureReason string

const (
	ReasonUserRejected          FailureReason = "user-rejected"
	ReasonInsufficientFunds     FailureReason = "insufficient-funds"
	ReasonInsufficientAllowance FailureReason = "insufficient-allowance"
	ReasonAlreadyDone           FailureReason = "already-done"
	ReasonPaused                FailureReason = "paused"
	ReasonNetwork               FailureReason = "network"
	ReasonUnknown               FailureReason = "unknown"
)

func (r FailureReason) String() string {
	return string(r)
}

// Error is the internal error carried across component boundaries. Message is
// safe to surface to callers; the wrapped error keeps the raw failure for
// server-side logs only.
type Error struct {
	Type    ErrorType
	Reason  FailureReason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Type)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(errType ErrorType, err error) *Error {
	return &Error{Type: errType, Reason: ReasonUnknown, Err: err, Message: err.Error()}
}

func NewErrorWithMsg(errType ErrorType, msg string) *Error {
	return &Error{Type: errType, Reason: ReasonUnknown, Message: msg}
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Type: ValidationError, Reason: ReasonUnknown, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Type: NotFoundError, Reason: ReasonUnknown, Message: fmt.Sprintf(format, args...)}
}

func NewBlockchainError(reason FailureReason, msg string, err error) *Error {
	return &Error{Type: BlockchainError, Reason: reason, Message: msg, Err: err}
}

// TypeOf extracts the taxonomy type from err, falling back to ServerError for
// anything that did not cross the classification boundary.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ServerError
}

// ReasonOf extracts the failure classification from err.
func ReasonOf(err error) FailureReason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonUnknown
}

func IsValidationError(err error) bool {
	return TypeOf(err) == ValidationError
}

func IsNotFoundError(err error) bool {
	return TypeOf(err) == NotFoundError
}
