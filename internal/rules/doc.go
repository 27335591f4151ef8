// Package rules contains the transition rule families a task variant binds to
// its steps, and the Outcome every rule returns.
//
// Rules never fail. An absent class is the same as an empty one and resolves
// to NoChange, so a detector miss on one frame leaves the session untouched.
// Debounced rules return the counters the session should keep; the session
// applies them only after it accepts the outcome.
package rules
