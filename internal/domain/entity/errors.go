package entity

import (
	"errors"
	"fmt"
)

// Code classifies an Error.
type Code string

const (
	CodeEmptyPassphrase      Code = "EMPTY_PASSPHRASE"
	CodeInvalidPathSegment   Code = "INVALID_PATH_SEGMENT"
	CodeInvalidKeyMaterial   Code = "INVALID_KEY_MATERIAL"
	CodeUnsupportedChainKind Code = "UNSUPPORTED_CHAIN_KIND"
	CodeMissingParameters    Code = "MISSING_PARAMETERS"
	CodeFeeEstimationFailed  Code = "FEE_ESTIMATION_FAILED"
	CodeNotImplemented       Code = "NOT_IMPLEMENTED"
	CodeInvalidAddress       Code = "INVALID_ADDRESS"
	CodeInvalidAmount        Code = "INVALID_AMOUNT"
	CodeInsufficientFunds    Code = "INSUFFICIENT_FUNDS"
	CodeSubmissionFailed     Code = "SUBMISSION_FAILED"
)

// Sentinels for errors.Is. Any *Error with the same Code matches.
var (
	ErrEmptyPassphrase      = &Error{Code: CodeEmptyPassphrase}
	ErrInvalidPathSegment   = &Error{Code: CodeInvalidPathSegment}
	ErrInvalidKeyMaterial   = &Error{Code: CodeInvalidKeyMaterial}
	ErrUnsupportedChainKind = &Error{Code: CodeUnsupportedChainKind}
	ErrMissingParameters    = &Error{Code: CodeMissingParameters}
	ErrFeeEstimationFailed  = &Error{Code: CodeFeeEstimationFailed}
	ErrNotImplemented       = &Error{Code: CodeNotImplemented}
	ErrInvalidAddress       = &Error{Code: CodeInvalidAddress}
	ErrInvalidAmount        = &Error{Code: CodeInvalidAmount}
	ErrInsufficientFunds    = &Error{Code: CodeInsufficientFunds}
	ErrSubmissionFailed     = &Error{Code: CodeSubmissionFailed}
)

// Error is the typed error returned by the wallet core.
type Error struct {
	Code Code
	Op   string
	Kind ChainKind // zero when not chain specific
	Err  error
}

// NewError builds an *Error. kind may be zero.
func NewError(code Code, op string, kind ChainKind, err error) *Error {
	return &Error{Code: code, Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s]", e.Code)
	if e.Kind != 0 {
		msg += " " + e.Kind.String()
	}
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UnsupportedKind is the error every exhaustive ChainKind switch returns from its default branch.
func UnsupportedKind(op string, kind ChainKind) error {
	return NewError(CodeUnsupportedChainKind, op, kind, fmt.Errorf("chain kind %s is not supported", kind))
}
