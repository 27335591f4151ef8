package rules

import (
	"stepwise/internal/catalog"
	"stepwise/internal/debounce"
	"stepwise/internal/detection"
	"stepwise/internal/geometry"
)

// Rule decides, for one frame, whether the current step is complete.
// Implementations are pure: missing detections resolve to NoChange.
type Rule interface {
	Evaluate(in Input) Outcome
}

// Func adapts a function to Rule.
type Func func(in Input) Outcome

// Evaluate calls f.
func (f Func) Evaluate(in Input) Outcome { return f(in) }

// Table binds each non-terminal step to its rule.
type Table map[catalog.StepID]Rule

// Always advances on every frame regardless of detections.
type Always struct {
	Next catalog.StepID
}

func (r Always) Evaluate(Input) Outcome { return AdvanceTo(r.Next) }

// Presence advances once Class has at least one detection.
type Presence struct {
	Class detection.Class
	Next  catalog.StepID
}

func (r Presence) Evaluate(in Input) Outcome {
	if !in.Detections.Has(r.Class) {
		return Stay(in)
	}
	return AdvanceTo(r.Next)
}

// Exactly advances when Class has exactly Count detections.
type Exactly struct {
	Class detection.Class
	Count int
	Next  catalog.StepID
}

func (r Exactly) Evaluate(in Input) Outcome {
	if in.Detections.Count(r.Class) != r.Count {
		return Stay(in)
	}
	return AdvanceTo(r.Next)
}

// PairPredicate reports whether a candidate box relates correctly to an
// anchor box.
type PairPredicate func(anchor, candidate geometry.BoundingBox) bool

// Pairwise advances when any anchor/candidate pair satisfies Match. Pairs are
// scanned anchor-major in detector order and the first match wins.
type Pairwise struct {
	Anchor    detection.Class
	Candidate detection.Class
	Match     PairPredicate
	Next      catalog.StepID
}

func (r Pairwise) Evaluate(in Input) Outcome {
	anchors := in.Detections.Boxes(r.Anchor)
	candidates := in.Detections.Boxes(r.Candidate)
	if len(anchors) == 0 || len(candidates) == 0 {
		return Stay(in)
	}
	for _, a := range anchors {
		for _, c := range candidates {
			if r.Match(a, c) {
				return AdvanceTo(r.Next)
			}
		}
	}
	return Stay(in)
}

// StackedOn matches a candidate sitting on top of the anchor: its center is
// above the anchor's, horizontally within tolerance of the anchor's width,
// and it is at least minHeightRatio times as tall.
func StackedOn(tolerance, minHeightRatio float64) PairPredicate {
	return func(anchor, candidate geometry.BoundingBox) bool {
		return geometry.IsAbove(candidate, anchor) &&
			geometry.IsHorizontallyCenteredWithin(candidate, anchor, tolerance) &&
			geometry.HeightRatio(candidate, anchor) >= minHeightRatio
	}
}

// AlignedWithin matches a candidate whose center lies inside the anchor and
// within tolerance of the anchor's center on both axes.
func AlignedWithin(tolerance float64) PairPredicate {
	return func(anchor, candidate geometry.BoundingBox) bool {
		return geometry.ContainsCenter(anchor, candidate) &&
			geometry.IsHorizontallyCenteredWithin(candidate, anchor, tolerance) &&
			geometry.IsVerticallyCenteredWithin(candidate, anchor, tolerance)
	}
}

// Aligned is the top-view alignment check: a Candidate centered inside a
// Reference within Tolerance on both axes.
func Aligned(reference, candidate detection.Class, tolerance float64, next catalog.StepID) Pairwise {
	return Pairwise{Anchor: reference, Candidate: candidate, Match: AlignedWithin(tolerance), Next: next}
}

// DualAnchor counts which sides of a Reference box hold a Candidate and feeds
// that count through the debounce Policy. The one-shot Supplement is sent
// without leaving the step.
type DualAnchor struct {
	Reference  detection.Class
	Candidate  detection.Class
	Policy     debounce.Policy
	Supplement string
	Next       catalog.StepID
}

func (r DualAnchor) Evaluate(in Input) Outcome {
	refs := in.Detections.Boxes(r.Reference)
	cands := in.Detections.Boxes(r.Candidate)
	if len(refs) == 0 || len(cands) == 0 {
		return Stay(in)
	}
	counters, verdict := r.Policy.Observe(in.Counters, CountSides(refs, cands))
	switch verdict {
	case debounce.Commit:
		return AdvanceTo(r.Next)
	case debounce.Hint:
		if r.Supplement == "" {
			return HoldWith(in, counters)
		}
		return Supplement(in.Step, r.Supplement, counters)
	default:
		return HoldWith(in, counters)
	}
}

// CountSides returns how many sides (0, 1 or 2) of a reference box contain a
// candidate center. Only candidates whose center falls inside the reference
// are considered; a candidate exactly on the vertical midline counts as
// right. The best reference wins.
func CountSides(refs, cands []geometry.BoundingBox) int {
	best := 0
	for _, ref := range refs {
		mid := geometry.Center(ref).X
		left, right := false, false
		for _, c := range cands {
			if !geometry.ContainsCenter(ref, c) {
				continue
			}
			if geometry.Center(c).X < mid {
				left = true
			} else {
				right = true
			}
		}
		n := 0
		if left {
			n++
		}
		if right {
			n++
		}
		if n > best {
			best = n
		}
		if best == 2 {
			break
		}
	}
	return best
}
