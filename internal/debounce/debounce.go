// Package debounce implements the multi-frame confirmation policy that keeps
// noisy steps from committing on a single favourable frame.
package debounce

// Counters are the per-session confirmation counters. They are plain values
// owned by the session and passed into each evaluation.
type Counters struct {
	One int `json:"framesWithOneConfirmation"`
	Two int `json:"framesWithTwoConfirmations"`
}

// IsZero reports whether both counters are reset.
func (c Counters) IsZero() bool { return c.One == 0 && c.Two == 0 }

// Verdict is what the policy decided for one frame.
type Verdict int

const (
	// Hold keeps the current step; counters may have moved.
	Hold Verdict = iota
	// Commit advances the step. Counters are reset.
	Commit
	// Hint sends the one-shot supplementary instruction without advancing.
	Hint
)

func (v Verdict) String() string {
	switch v {
	case Commit:
		return "commit"
	case Hint:
		return "hint"
	default:
		return "hold"
	}
}

// Policy holds the confirmation thresholds. CommitAbove is exclusive: the
// step commits once the full-confirmation counter exceeds it. HintAt is an
// exact match so the hint fires once per run of partial confirmations.
type Policy struct {
	CommitAbove int
	HintAt      int
}

// DefaultPolicy commits on the fourth consecutive full confirmation and
// hints on the fifth consecutive partial one.
func DefaultPolicy() Policy {
	return Policy{CommitAbove: 3, HintAt: 5}
}

// Observe folds one frame's confirmation count into c. Counts above two are
// treated as full confirmation and negative counts as none.
func (p Policy) Observe(c Counters, count int) (Counters, Verdict) {
	switch {
	case count >= 2:
		c.One = 0
		c.Two++
		if c.Two > p.CommitAbove {
			return Counters{}, Commit
		}
		return c, Hold
	case count == 1:
		c.Two = 0
		c.One++
		if c.One == p.HintAt {
			return c, Hint
		}
		return c, Hold
	default:
		return Counters{}, Hold
	}
}
