package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// Guard adapts an error-returning check into a looplab callback. A non-nil
// error cancels the transition; use Cause to recover it from FSM.Event.
func Guard(fn func(ctx context.Context, e *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, e *fsm.Event) {
		if err := fn(ctx, e); err != nil {
			e.Cancel(err)
		}
	}
}

// Action adapts an error-returning callback that runs after a transition
// has been committed. The error is surfaced through Event.Err.
func Action(fn func(ctx context.Context, e *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, e *fsm.Event) {
		if err := fn(ctx, e); err != nil {
			e.Err = err
		}
	}
}

// IgnoreNoTransition drops the error looplab returns when an event leaves the
// machine in the state it started from.
func IgnoreNoTransition(err error) error {
	var nt fsm.NoTransitionError
	if errors.As(err, &nt) && nt.Err == nil {
		return nil
	}
	return err
}

// Cause unwraps the error a callback attached to a cancelled or no-op
// transition. Other errors are returned unchanged.
func Cause(err error) error {
	var ce fsm.CanceledError
	if errors.As(err, &ce) && ce.Err != nil {
		return ce.Err
	}
	var nt fsm.NoTransitionError
	if errors.As(err, &nt) && nt.Err != nil {
		return nt.Err
	}
	return err
}
