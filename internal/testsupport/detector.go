package testsupport

import (
	"context"
	"sync"

	"stepwise/internal/detection"
)

// ScriptedDetector returns a fixed sequence of detection sets, one per
// call. After the script runs out the last set repeats.
type ScriptedDetector struct {
	mu    sync.Mutex
	sets  []detection.Set
	calls int
}

// NewScriptedDetector creates a detector that plays sets in order.
func NewScriptedDetector(sets ...detection.Set) *ScriptedDetector {
	return &ScriptedDetector{sets: sets}
}

// Detect returns the next scripted set.
func (d *ScriptedDetector) Detect(ctx context.Context, _ []byte) (detection.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.sets) == 0 {
		return detection.Set{}, nil
	}
	idx := d.calls - 1
	if idx >= len(d.sets) {
		idx = len(d.sets) - 1
	}
	return d.sets[idx], nil
}

// Calls reports how many frames reached the detector.
func (d *ScriptedDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
