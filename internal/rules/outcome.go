package rules

import (
	"stepwise/internal/catalog"
	"stepwise/internal/debounce"
	"stepwise/internal/detection"
)

// Kind classifies a transition outcome.
type Kind int

const (
	// NoChange means the frame carried no evidence; nothing moves.
	NoChange Kind = iota
	// Hold stays on the step but carries updated debounce counters.
	Hold
	// Advance commits to Next.
	Advance
	// AdvanceWithSupplement commits to Next and attaches Supplement as a
	// one-shot extra instruction. Next may equal the current step.
	AdvanceWithSupplement
)

func (k Kind) String() string {
	switch k {
	case Hold:
		return "hold"
	case Advance:
		return "advance"
	case AdvanceWithSupplement:
		return "advance_with_supplement"
	default:
		return "no_change"
	}
}

// Input is everything a rule may look at for one frame.
type Input struct {
	Step       catalog.StepID
	Detections detection.Set
	Counters   debounce.Counters
}

// Outcome is a rule's decision for one frame. Counters holds the values the
// session must store if it applies the outcome.
type Outcome struct {
	Kind       Kind
	Next       catalog.StepID
	Supplement string
	Counters   debounce.Counters
}

// Committed reports whether the outcome bumps the session revision.
func (o Outcome) Committed() bool {
	return o.Kind == Advance || o.Kind == AdvanceWithSupplement
}

// StepChanged reports whether the outcome moves the session off current.
func (o Outcome) StepChanged(current catalog.StepID) bool {
	return o.Committed() && o.Next != current
}

// Stay is the NoChange outcome for in.
func Stay(in Input) Outcome {
	return Outcome{Kind: NoChange, Next: in.Step, Counters: in.Counters}
}

// HoldWith stays on the current step with updated counters.
func HoldWith(in Input, counters debounce.Counters) Outcome {
	return Outcome{Kind: Hold, Next: in.Step, Counters: counters}
}

// AdvanceTo commits to next with reset counters.
func AdvanceTo(next catalog.StepID) Outcome {
	return Outcome{Kind: Advance, Next: next}
}

// Supplement commits to next and attaches text.
func Supplement(next catalog.StepID, text string, counters debounce.Counters) Outcome {
	return Outcome{Kind: AdvanceWithSupplement, Next: next, Supplement: text, Counters: counters}
}
