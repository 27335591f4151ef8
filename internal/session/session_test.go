package session_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"stepwise/internal/catalog"
	"stepwise/internal/debounce"
	"stepwise/internal/detection"
	"stepwise/internal/geometry"
	"stepwise/internal/rules"
	"stepwise/internal/services"
	"stepwise/internal/session"
	"stepwise/internal/tasks"
)

func box(x1, y1, x2, y2 float64) geometry.BoundingBox {
	return geometry.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2, Score: 0.9}
}

var (
	lampBase      = box(100, 300, 200, 400)
	shortPipe     = box(130, 150, 170, 270)
	tallPipe      = box(130, 110, 170, 270)
	shadeTop      = box(0, 0, 100, 100)
	leftBuckle    = box(10, 40, 20, 60)
	rightBuckle   = box(80, 40, 90, 60)
	centeredBulb  = box(40, 40, 60, 60)
	noDetections  = detection.Set{}
	twoBuckles    = detection.Set{tasks.LampShadeTop: {shadeTop}, tasks.LampBuckle: {leftBuckle, rightBuckle}}
	oneBuckle     = detection.Set{tasks.LampShadeTop: {shadeTop}, tasks.LampBuckle: {leftBuckle}}
	emptyDetector = detection.DetectorFunc(func(context.Context, []byte) (detection.Set, error) {
		return detection.Set{}, nil
	})
)

func newLamp(t *testing.T, opts ...session.Option) *session.Controller {
	t.Helper()
	return session.New(tasks.Lamp(), emptyDetector, opts...)
}

func TestBasePipeShadeScenario(t *testing.T) {
	c := newLamp(t)

	res, err := c.Apply(detection.Set{tasks.LampBase: {lampBase}})
	if err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if res.Outcome.Kind != rules.Advance || res.State.Step != tasks.LampStepPipe || res.State.Revision != 1 {
		t.Fatalf("frame 1: unexpected %+v", res)
	}
	if res.Payload == nil || res.Payload.Image != "pipe.PNG" {
		t.Fatalf("frame 1: expected pipe instruction, got %+v", res.Payload)
	}

	res, err = c.Apply(detection.Set{tasks.LampBase: {lampBase}, tasks.LampPipe: {shortPipe}})
	if err != nil {
		t.Fatalf("frame 2: %v", err)
	}
	if res.Outcome.Kind != rules.NoChange || res.State.Step != tasks.LampStepPipe || res.State.Revision != 1 {
		t.Fatalf("frame 2: unexpected %+v", res)
	}
	if res.Payload != nil {
		t.Fatal("frame 2: no content expected")
	}

	res, err = c.Apply(detection.Set{tasks.LampBase: {lampBase}, tasks.LampPipe: {tallPipe}})
	if err != nil {
		t.Fatalf("frame 3: %v", err)
	}
	if res.Outcome.Kind != rules.Advance || res.State.Step != tasks.LampStepShade || res.State.Revision != 2 {
		t.Fatalf("frame 3: unexpected %+v", res)
	}
}

func TestRevisionIsMonotonic(t *testing.T) {
	c := newLamp(t)
	frames := []detection.Set{
		noDetections,
		{tasks.LampBase: {lampBase}},
		{tasks.LampPipe: {tallPipe}},
		{tasks.LampBase: {lampBase}, tasks.LampPipe: {tallPipe}},
		{tasks.LampShade: {box(0, 0, 50, 50)}},
		oneBuckle, oneBuckle, twoBuckles, twoBuckles, oneBuckle, oneBuckle, oneBuckle, oneBuckle, oneBuckle,
		twoBuckles, twoBuckles, twoBuckles, twoBuckles,
		{tasks.LampBlackCircle: {box(0, 0, 5, 5)}},
		noDetections,
	}
	prev := c.State().Revision
	for i, frame := range frames {
		res, err := c.Apply(frame)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		switch {
		case res.Outcome.Committed() && res.State.Revision != prev+1:
			t.Fatalf("frame %d: committed outcome must bump revision by one (%d -> %d)", i, prev, res.State.Revision)
		case !res.Outcome.Committed() && res.State.Revision != prev:
			t.Fatalf("frame %d: revision moved without a commit", i)
		}
		prev = res.State.Revision
	}
	if c.State().Step != tasks.LampStepLamp {
		t.Fatalf("expected to reach LAMP, at %d", c.State().Step)
	}
}

func TestEmptyFramesAreIdempotent(t *testing.T) {
	variant := tasks.Lamp()
	for _, step := range variant.Catalog.Steps() {
		start := session.State{Step: step.ID, Revision: 3, Counters: debounce.Counters{One: 2}}
		st := start
		for i := 0; i < 10; i++ {
			out, next, err := session.Advance(variant, st, noDetections)
			if err != nil {
				t.Fatalf("%s: %v", step.Name, err)
			}
			if out.Kind != rules.NoChange {
				t.Fatalf("%s: expected no change, got %s", step.Name, out.Kind)
			}
			st = next
		}
		if st != start {
			t.Fatalf("%s: state drifted from %+v to %+v", step.Name, start, st)
		}
	}
}

func TestBuckleDebounceThroughController(t *testing.T) {
	c := newLamp(t)
	if _, err := c.Restore(session.State{Step: tasks.LampStepBuckle, Revision: 4}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	for frame := 1; frame <= 3; frame++ {
		res, err := c.Apply(twoBuckles)
		if err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
		if res.State.Step != tasks.LampStepBuckle || res.State.Counters.Two != frame || res.State.Revision != 4 {
			t.Fatalf("frame %d: unexpected state %+v", frame, res.State)
		}
	}
	res, err := c.Apply(twoBuckles)
	if err != nil {
		t.Fatalf("frame 4: %v", err)
	}
	if res.State.Step != tasks.LampStepBlackCircle || res.State.Revision != 5 || !res.State.Counters.IsZero() {
		t.Fatalf("frame 4: unexpected state %+v", res.State)
	}
}

func TestSecondWireHintSentOnce(t *testing.T) {
	c := newLamp(t)
	if _, err := c.Restore(session.State{Step: tasks.LampStepBuckle}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	hints := 0
	for frame := 1; frame <= 55; frame++ {
		res, err := c.Apply(oneBuckle)
		if err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
		if res.Supplement != "" {
			hints++
			if frame != 5 || res.Supplement != tasks.SecondWireHint {
				t.Fatalf("frame %d: unexpected supplement %q", frame, res.Supplement)
			}
			if res.Payload != nil {
				t.Fatal("supplement must not resend the step instruction")
			}
		}
		if res.State.Step != tasks.LampStepBuckle {
			t.Fatalf("frame %d: left the step", frame)
		}
	}
	if hints != 1 {
		t.Fatalf("expected exactly one hint, got %d", hints)
	}
	if got := c.State(); got.Revision != 1 || got.Counters.One != 55 {
		t.Fatalf("unexpected final state %+v", got)
	}
}

func TestTerminalStepSkipsDetector(t *testing.T) {
	var calls atomic.Int32
	det := detection.DetectorFunc(func(context.Context, []byte) (detection.Set, error) {
		calls.Add(1)
		return detection.Set{tasks.LampShadeTop: {shadeTop}, tasks.LampBulbTop: {centeredBulb}}, nil
	})
	c := session.New(tasks.Lamp(), det)
	if _, err := c.Restore(session.State{Step: tasks.LampStepBulbTop, Revision: 8}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	res, err := c.HandleFrame(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}
	if !res.Done || res.State.Step != tasks.LampStepDone || res.State.Revision != 9 {
		t.Fatalf("unexpected %+v", res)
	}
	for i := 0; i < 3; i++ {
		res, err = c.HandleFrame(context.Background(), []byte("frame"))
		if err != nil {
			t.Fatalf("HandleFrame: %v", err)
		}
		if !res.Done || res.Outcome.Kind != rules.NoChange || res.Payload != nil || res.State.Revision != 9 {
			t.Fatalf("unexpected done result %+v", res)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("detector called %d times, want 1", calls.Load())
	}
}

func TestResumeResetsBookkeeping(t *testing.T) {
	c := newLamp(t)
	if _, err := c.Restore(session.State{Step: tasks.LampStepBuckle, Revision: 7, Counters: debounce.Counters{One: 3}}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	token, step, err := c.Suspend()
	if err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if token == "" || step.ID != tasks.LampStepBuckle {
		t.Fatalf("unexpected suspend result %q %+v", token, step)
	}
	res, err := c.Resume(token, "Pipe")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	want := session.State{Step: tasks.LampStepPipe}
	if res.State != want || c.State() != want {
		t.Fatalf("expected %+v, got %+v", want, res.State)
	}
	if res.Payload == nil || res.Payload.Text != res.Step.Text {
		t.Fatal("resume must send the step instruction")
	}
	if c.Suspended() {
		t.Fatal("session still suspended")
	}
}

func TestResumeErrors(t *testing.T) {
	c := newLamp(t)
	if _, err := c.Resume("nope", "base"); !errors.Is(err, services.ErrNotSuspended) {
		t.Fatalf("expected not suspended, got %v", err)
	}
	token, _, err := c.Suspend()
	if err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if _, _, err := c.Suspend(); !errors.Is(err, services.ErrSuspended) {
		t.Fatalf("expected already suspended, got %v", err)
	}
	if _, err := c.Resume("other", "base"); !errors.Is(err, services.ErrUnknownToken) {
		t.Fatalf("expected unknown token, got %v", err)
	}
	_, err = c.Resume(token, "toaster")
	var unknown *catalog.UnknownStepError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected unknown step, got %v", err)
	}
	if !c.Suspended() {
		t.Fatal("failed resume must keep the session suspended")
	}
	res, err := c.Resume(token, "START")
	if err != nil {
		t.Fatalf("Resume start: %v", err)
	}
	if res.State.Step != tasks.LampStepBase {
		t.Fatalf("start sentinel must restart, got %d", res.State.Step)
	}
}

func TestFramesDiscardedWhileSuspended(t *testing.T) {
	var calls atomic.Int32
	det := detection.DetectorFunc(func(context.Context, []byte) (detection.Set, error) {
		calls.Add(1)
		return detection.Set{tasks.LampBase: {lampBase}}, nil
	})
	c := session.New(tasks.Lamp(), det)
	if _, _, err := c.Suspend(); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	res, err := c.HandleFrame(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}
	if !res.Discarded || res.State != session.Initial(tasks.Lamp()) {
		t.Fatalf("unexpected %+v", res)
	}
	res, err = c.Apply(detection.Set{tasks.LampBase: {lampBase}})
	if err != nil || !res.Discarded {
		t.Fatalf("Apply while suspended: %+v %v", res, err)
	}
	if calls.Load() != 0 {
		t.Fatal("detector must not run while suspended")
	}
}

type rejectAll struct{}

func (rejectAll) Validate([]byte) error {
	return services.Wrap(services.ErrImageTooLarge, "test", "validate", "", nil)
}

func TestFailedFramesLeaveStateUntouched(t *testing.T) {
	c := newLamp(t, session.WithValidator(rejectAll{}))
	before := c.State()
	if _, err := c.HandleFrame(context.Background(), []byte("x")); !errors.Is(err, services.ErrImageTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
	if c.State() != before {
		t.Fatal("state changed after rejected frame")
	}

	failing := detection.DetectorFunc(func(context.Context, []byte) (detection.Set, error) {
		return nil, services.Wrap(services.ErrDetector, "test", "detect", "offline", nil)
	})
	c = session.New(tasks.Lamp(), failing)
	if _, err := c.HandleFrame(context.Background(), []byte("x")); services.StatusFor(err) != services.StatusEngineError {
		t.Fatalf("expected engine error, got %v", err)
	}
	if c.State() != before {
		t.Fatal("state changed after detector failure")
	}
}

func TestRestore(t *testing.T) {
	c := newLamp(t)
	if _, err := c.Restore(session.State{Step: 42}); !errors.Is(err, services.ErrUnknownStep) {
		t.Fatalf("expected unknown step, got %v", err)
	}
	res, err := c.Restore(session.State{Step: tasks.LampStepShade, Revision: 3})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if res.State.Revision != 3 || res.Payload != nil {
		t.Fatalf("unexpected restore result %+v", res)
	}
	res, err = c.Restore(session.State{Step: catalog.Start, Revision: 12})
	if err != nil {
		t.Fatalf("Restore start: %v", err)
	}
	if res.State != session.Initial(tasks.Lamp()) || res.Payload == nil || res.Payload.Image != "base.PNG" {
		t.Fatalf("start sentinel must reset, got %+v", res)
	}
}

func TestRestoreRejectsNegativeCounters(t *testing.T) {
	c := newLamp(t)
	before := c.State()
	for _, counters := range []debounce.Counters{{One: -40, Two: -40}, {One: -1}, {Two: -1}} {
		_, err := c.Restore(session.State{Step: tasks.LampStepBuckle, Counters: counters})
		if !errors.Is(err, services.ErrInvalidInputFormat) {
			t.Fatalf("counters %+v: expected invalid input, got %v", counters, err)
		}
	}
	if c.State() != before {
		t.Fatalf("rejected restore changed state: %+v", c.State())
	}

	if _, err := c.Restore(session.State{Step: tasks.LampStepBuckle, Revision: 2, Counters: debounce.Counters{One: 3}}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	res, err := c.Apply(oneBuckle)
	if err != nil || res.Supplement != "" {
		t.Fatalf("frame 4: unexpected %+v, %v", res, err)
	}
	res, err = c.Apply(oneBuckle)
	if err != nil {
		t.Fatalf("frame 5: %v", err)
	}
	if res.Supplement != tasks.SecondWireHint {
		t.Fatalf("restored counters must hint on the fifth partial frame, got %+v", res)
	}
}

func TestAbandonIgnoresStaleToken(t *testing.T) {
	c := newLamp(t)
	stale, _, err := c.Suspend()
	if err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	c.Restart()
	current, _, err := c.Suspend()
	if err != nil {
		t.Fatalf("second Suspend: %v", err)
	}
	if c.Abandon(stale) {
		t.Fatal("stale token must not abandon the current hand-off")
	}
	if !c.Suspended() {
		t.Fatal("current hand-off was cleared by a stale token")
	}
	if c.Abandon("") {
		t.Fatal("empty token must not abandon")
	}
	if !c.Abandon(current) || c.Suspended() {
		t.Fatal("current token must abandon the hand-off")
	}
	if c.Abandon(current) {
		t.Fatal("abandoning twice must report false")
	}
}

func TestRestartClearsProgress(t *testing.T) {
	c := newLamp(t)
	if _, err := c.Apply(detection.Set{tasks.LampBase: {lampBase}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	res := c.Restart()
	if res.State != session.Initial(tasks.Lamp()) {
		t.Fatalf("unexpected %+v", res.State)
	}
}

func TestSandwichWalkthrough(t *testing.T) {
	c := session.New(tasks.Sandwich(), emptyDetector)
	layers := []detection.Class{
		tasks.SandwichBread, tasks.SandwichHam, tasks.SandwichLettuce,
		tasks.SandwichHalf, tasks.SandwichTomato, tasks.SandwichFull,
	}

	res, err := c.Apply(noDetections)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.State.Step != tasks.SandwichStepBread {
		t.Fatalf("first frame must move to BREAD, got %d", res.State.Step)
	}
	for _, class := range layers {
		twice := detection.Set{class: {box(0, 0, 10, 10), box(20, 0, 30, 10)}}
		res, err = c.Apply(twice)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if res.Outcome.Kind != rules.NoChange {
			t.Fatalf("class %d: two instances must not advance", class)
		}
		res, err = c.Apply(detection.Set{class: {box(0, 0, 10, 10)}})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if res.Outcome.Kind != rules.Advance {
			t.Fatalf("class %d: one instance must advance", class)
		}
	}
	if !res.Done || res.State.Step != tasks.SandwichStepDone || res.State.Revision != 7 {
		t.Fatalf("unexpected final %+v", res)
	}
}

func TestAdvanceRejectsUnknownStep(t *testing.T) {
	_, st, err := session.Advance(tasks.Lamp(), session.State{Step: 77, Revision: 2}, noDetections)
	if !errors.Is(err, services.ErrUnknownStep) {
		t.Fatalf("expected unknown step, got %v", err)
	}
	if st.Revision != 2 {
		t.Fatal("state must be returned unchanged")
	}
}

func TestSnapshot(t *testing.T) {
	c := newLamp(t, session.WithID("abc"))
	token, _, err := c.Suspend()
	if err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	snap := c.Snapshot()
	if snap.ID != "abc" || snap.Task != "lamp" || !snap.Suspended || snap.Token != token || snap.Step.Name != "BASE" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
