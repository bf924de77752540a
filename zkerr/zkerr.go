// Package zkerr defines the error taxonomy from the core's error-handling
// design: one Kind per row of the propagation table, a typed Error that wraps
// an optional cause, and helpers for the distributed boundary's "never leak
// detail to the client" rule.
package zkerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the recognized error categories. Each maps to exactly one
// row of the error-handling design table.
type Kind string

const (
	TransientIO          Kind = "transient_io"
	ConfigInvalid        Kind = "config_invalid"
	PortInUse            Kind = "port_in_use"
	BusDesync            Kind = "bus_desync"
	AsmServiceDead       Kind = "asm_service_dead"
	PlanOverflow         Kind = "plan_overflow"
	WitnessArith         Kind = "witness_arith"
	WorkerDisconnected   Kind = "worker_disconnected"
	InsufficientCapacity Kind = "insufficient_capacity"
	BusyOnServer         Kind = "busy_on_server"
	Internal             Kind = "internal"
)

// Error is the core's typed error. Cause may be nil for errors raised
// directly by this core (e.g. PlanOverflow, BusyOnServer).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind with a message and optional cause.
// When cause is non-nil, it is wrapped with github.com/pkg/errors.WithStack so
// that Internal-kind errors retain a stack trace for the full-context log line
// the coordinator writes before sanitizing the client-visible message.
func New(kind Kind, message string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is supports errors.Is(err, zkerr.Kind) style matching via a sentinel
// wrapper, so callers can write `errors.Is(err, zkerr.BusDesync)`.
func (k Kind) Error() string { return string(k) }

func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	return false
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, defaulting to
// Internal for anything else — matching the propagation policy that
// unrecognized errors never leak detail and are treated as internal.
func KindOf(err error) Kind {
	var zerr *Error
	if errors.As(err, &zerr) {
		return zerr.Kind
	}
	return Internal
}

// Recoverable reports whether the kind is locally recovered per the design
// table (retried, re-queued, or falls back), as opposed to surfaced directly.
func Recoverable(k Kind) bool {
	switch k {
	case TransientIO, AsmServiceDead, WorkerDisconnected:
		return true
	default:
		return false
	}
}
