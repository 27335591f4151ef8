package session

import (
	"fmt"

	"stepwise/internal/catalog"
	"stepwise/internal/debounce"
	"stepwise/internal/detection"
	"stepwise/internal/rules"
	"stepwise/internal/services"
	"stepwise/internal/tasks"
)

// State is the progress bookkeeping of one session. It is a plain value so
// clients can hand it back after a reconnect or a hand-off.
type State struct {
	Step     catalog.StepID    `json:"step"`
	Revision int64             `json:"revision"`
	Counters debounce.Counters `json:"counters"`
}

// Initial returns the starting state of variant.
func Initial(variant *tasks.Variant) State {
	return State{Step: variant.Catalog.Initial().ID}
}

// Apply folds out into s. NoChange leaves s untouched, Hold stores the new
// counters and committed outcomes bump the revision. Counters reset only
// when the step actually changes.
func (s State) Apply(out rules.Outcome) State {
	switch out.Kind {
	case rules.Hold:
		s.Counters = out.Counters
	case rules.Advance, rules.AdvanceWithSupplement:
		s.Revision++
		if out.Next != s.Step {
			s.Step = out.Next
			s.Counters = debounce.Counters{}
		} else {
			s.Counters = out.Counters
		}
	}
	return s
}

// Advance evaluates one frame's detections against the rule for st.Step and
// returns the outcome together with the resulting state. It has no side
// effects. A terminal step yields NoChange without consulting the rule.
func Advance(variant *tasks.Variant, st State, dets detection.Set) (rules.Outcome, State, error) {
	if _, err := variant.Catalog.Lookup(st.Step); err != nil {
		return rules.Outcome{}, st, err
	}
	in := rules.Input{Step: st.Step, Detections: dets, Counters: st.Counters}
	if variant.Catalog.IsFinal(st.Step) {
		return rules.Stay(in), st, nil
	}
	rule, ok := variant.Rule(st.Step)
	if !ok {
		return rules.Outcome{}, st, services.Wrap(services.ErrConfiguration, "session", "advance",
			fmt.Sprintf("task %s has no rule for step %d", variant.Name, st.Step), nil)
	}
	out := rule.Evaluate(in)
	if out.Committed() {
		if _, err := variant.Catalog.Lookup(out.Next); err != nil {
			return rules.Outcome{}, st, err
		}
	}
	return out, st.Apply(out), nil
}
