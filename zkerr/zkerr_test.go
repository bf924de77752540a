package zkerr

import (
	"errors"
	"testing"
)

func TestNew_WrapsCauseWithStack(t *testing.T) {
	// GIVEN a plain cause error
	cause := errors.New("boom")

	// WHEN wrapped as a BusDesync error
	err := New(BusDesync, "frame desynchronized", cause)

	// THEN Unwrap reaches a non-nil cause and KindOf recovers the kind
	if err.Unwrap() == nil {
		t.Fatalf("expected non-nil unwrapped cause")
	}
	if KindOf(err) != BusDesync {
		t.Fatalf("KindOf: got %v, want %v", KindOf(err), BusDesync)
	}
}

func TestKindOf_UnknownErrorDefaultsInternal(t *testing.T) {
	// GIVEN a plain error not produced by this package
	err := errors.New("opaque failure")

	// THEN KindOf reports Internal, never leaking unrecognized detail as a
	// specific recoverable kind
	if got := KindOf(err); got != Internal {
		t.Fatalf("KindOf: got %v, want %v", got, Internal)
	}
}

func TestErrorIs_MatchesKindSentinel(t *testing.T) {
	err := New(InsufficientCapacity, "not enough idle workers", nil)
	if !errors.Is(err, InsufficientCapacity) {
		t.Fatalf("errors.Is did not match Kind sentinel")
	}
	if errors.Is(err, BusyOnServer) {
		t.Fatalf("errors.Is matched wrong Kind sentinel")
	}
}

func TestRecoverable(t *testing.T) {
	cases := map[Kind]bool{
		TransientIO:          true,
		AsmServiceDead:       true,
		WorkerDisconnected:   true,
		ConfigInvalid:        false,
		PlanOverflow:         false,
		InsufficientCapacity: false,
	}
	for k, want := range cases {
		if got := Recoverable(k); got != want {
			t.Errorf("Recoverable(%v): got %v, want %v", k, got, want)
		}
	}
}
