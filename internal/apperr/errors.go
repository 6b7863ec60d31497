// Package apperr defines the error kinds shared by the payment and ledger packages.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrOverflow     = errors.New("amount overflow")
	ErrNotFound     = errors.New("not found")
	ErrGateway      = errors.New("payment gateway error")
	ErrPersistence  = errors.New("persistence error")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a kind plus context. errors.Is(err, kind) reports true for its kind.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Kind.Error() + ": " + e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Kind.Error() + ": " + e.Message
	case e.Err != nil:
		return e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an *Error of the given kind.
func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error of the given kind around err. A nil err yields nil.
func Wrap(kind error, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// GatewayError is an upstream payment-gateway failure. It matches ErrGateway.
type GatewayError struct {
	Code        string
	Message     string
	DeclineCode string
	HTTPStatus  int
	Err         error
}

func (e *GatewayError) Error() string {
	code := e.Code
	if code == "" {
		code = "unknown"
	}
	return fmt.Sprintf("payment gateway error: %s - %s", code, e.Message)
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// KindOf returns the first kind err matches, or ErrInternal.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrOverflow, ErrUnauthorized, ErrNotFound, ErrConflict, ErrGateway, ErrPersistence} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}
