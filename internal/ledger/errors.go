package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so callers can distinguish bad input
// from system problems.
type Kind string

const (
	KindConfig      Kind = "CONFIG"
	KindPeriod      Kind = "PERIOD"
	KindLine        Kind = "LINE"
	KindBalance     Kind = "BALANCE"
	KindIdempotency Kind = "IDEMPOTENCY"
	KindInventory   Kind = "INVENTORY"
	KindNumbering   Kind = "NUMBERING"
	KindLandedCost  Kind = "LANDED_COST"
	KindState       Kind = "STATE"
	KindNotFound    Kind = "NOT_FOUND"
	KindInternal    Kind = "INTERNAL"
)

// Error is the typed error the engine returns across its boundary.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("ledger: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a typed engine error.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a typed engine error.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain, KindInternal when untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the typed error's message without the wrapped cause,
// empty when the error is untyped.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}

// UserFacing reports whether the error kind means "fix your input"
// rather than a system fault.
func UserFacing(err error) bool {
	switch KindOf(err) {
	case KindPeriod, KindLine, KindBalance, KindIdempotency, KindInventory, KindLandedCost, KindState, KindConfig, KindNotFound:
		return true
	}
	return false
}
