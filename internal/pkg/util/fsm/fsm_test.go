package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
)

var errLocked = errors.New("gate is locked")

func newGate(locked *bool) *fsm.FSM {
	return fsm.NewFSM(
		"closed",
		fsm.Events{
			{Name: "open", Src: []string{"closed"}, Dst: "open"},
			{Name: "touch", Src: []string{"closed", "open"}, Dst: "closed"},
		},
		fsm.Callbacks{
			"before_open": Guard(func(_ context.Context, _ *fsm.Event) error {
				if *locked {
					return errLocked
				}
				return nil
			}),
		},
	)
}

func TestGuardCancelsTransition(t *testing.T) {
	locked := true
	g := newGate(&locked)

	err := Cause(g.Event(context.Background(), "open"))
	if !errors.Is(err, errLocked) {
		t.Fatalf("Event err = %v, want %v", err, errLocked)
	}
	if g.Current() != "closed" {
		t.Errorf("state = %s, want closed", g.Current())
	}

	locked = false
	if err := g.Event(context.Background(), "open"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if g.Current() != "open" {
		t.Errorf("state = %s, want open", g.Current())
	}
}

func TestIgnoreNoTransition(t *testing.T) {
	locked := false
	g := newGate(&locked)

	err := g.Event(context.Background(), "touch")
	if err == nil {
		t.Fatal("expected NoTransitionError from closed -> closed")
	}
	if got := IgnoreNoTransition(err); got != nil {
		t.Errorf("IgnoreNoTransition = %v, want nil", got)
	}

	other := errors.New("boom")
	if got := IgnoreNoTransition(other); got != other {
		t.Errorf("IgnoreNoTransition changed unrelated error: %v", got)
	}
}
