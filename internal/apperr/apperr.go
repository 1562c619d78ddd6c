// Package apperr defines the stable error taxonomy carried across the
// engine boundary. Business and authorization failures are represented as
// a typed *Error rather than ad-hoc sentinel values so the transaction
// runtime (internal/txrunner) can tell them apart from transient
// serialization failures without string matching.
package apperr

import (
	"fmt"
	"net/http"
)

// Code is a stable, externally-visible error kind. Values never change
// meaning once shipped; add new ones rather than repurposing existing.
type Code string

const (
	Unauthorized          Code = "UNAUTHORIZED"
	NotFound              Code = "NOT_FOUND"
	Validation            Code = "VALIDATION"
	InsufficientBalance   Code = "INSUFFICIENT_BALANCE"
	InsufficientShares    Code = "INSUFFICIENT_SHARES"
	SlippageExceeded      Code = "SLIPPAGE_EXCEEDED"
	MarketNotOpen         Code = "MARKET_NOT_OPEN"
	OptionAlreadyResolved Code = "OPTION_ALREADY_RESOLVED"
	LockedUntilResolution Code = "LOCKED_UNTIL_RESOLUTION"
	DisputeDeadlinePassed Code = "DISPUTE_DEADLINE_PASSED"
	QueueTimeout          Code = "QUEUE_TIMEOUT"
	Conflict              Code = "CONFLICT"
)

// statusOf maps each Code to the HTTP status an external transport should
// use. The core itself never depends on net/http for error construction;
// this table only informs internal/api.
var statusOf = map[Code]int{
	Unauthorized:          http.StatusUnauthorized,
	NotFound:              http.StatusNotFound,
	Validation:            http.StatusBadRequest,
	InsufficientBalance:   http.StatusBadRequest,
	InsufficientShares:    http.StatusBadRequest,
	SlippageExceeded:      http.StatusBadRequest,
	MarketNotOpen:         http.StatusBadRequest,
	OptionAlreadyResolved: http.StatusBadRequest,
	LockedUntilResolution: http.StatusLocked,
	DisputeDeadlinePassed: http.StatusBadRequest,
	QueueTimeout:          http.StatusGatewayTimeout,
	Conflict:              http.StatusConflict,
}

// Error is the single domain-error type surfaced by every core operation.
// It never retries inside internal/txrunner — only a raw Postgres
// serialization/deadlock error does.
type Error struct {
	Code    Code
	Message string
	// Err, when set, is the underlying cause (e.g. a driver error that
	// was classified as non-retryable). Unwrap exposes it.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status code an HTTP transport should respond
// with for this error's Code.
func (e *Error) HTTPStatus() int {
	if s, ok := statusOf[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs an *Error with the given code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error carrying an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFoundf is a convenience constructor for a NotFound(entity) error.
func NotFoundf(entity, format string, args ...any) *Error {
	return New(NotFound, "%s: %s", entity, fmt.Sprintf(format, args...))
}

// As reports whether err is an *Error and returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

// Is reports whether err is an *Error with the given Code.
func Is(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
