package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/civichub/civichub/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// events converts domain.Transitions into looplab/fsm EventDesc format. The
// event name is the destination status, so "may the complaint move to X"
// maps onto firing event X. Transitions with the same destination collapse
// into a single EventDesc with multiple source states.
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	grouped := make(map[domain.Status][]string)
	order := make([]domain.Status, 0)

	for _, t := range domain.Transitions {
		if _, exists := grouped[t.Dst]; !exists {
			order = append(order, t.Dst)
		}
		grouped[t.Dst] = append(grouped[t.Dst], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, dst := range order {
		out = append(out, loopfsm.EventDesc{
			Name: string(dst),
			Src:  grouped[dst],
			Dst:  string(dst),
		})
	}
	return out
}

// Validator enforces the canonical complaint lifecycle using looplab/fsm.
// It creates a short-lived FSM instance per Validate call, initialized with
// the complaint's current status. This is necessary because looplab/fsm is
// stateful (it tracks the current state internally).
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Validate checks that next is a canonical status reachable from current.
// Returns a domain.TransitionError when the move is not allowed. The service
// only consults the validator when the current status is canonical, so a
// non-canonical next status is always a violation here.
func (v *Validator) Validate(ctx context.Context, current, next domain.Status) error {
	if !domain.IsCanonical(next) {
		return &domain.TransitionError{Current: current, Next: next}
	}

	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(next)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) {
			return &domain.TransitionError{Current: current, Next: next}
		}
		return err
	}

	return nil
}
