package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"stepwise/internal/catalog"
	"stepwise/internal/detection"
	"stepwise/internal/logging"
	"stepwise/internal/rules"
	"stepwise/internal/services"
	"stepwise/internal/tasks"
)

// FrameValidator rejects frames the detector must not see.
type FrameValidator interface {
	Validate(image []byte) error
}

// Result is what the controller reports back for one event.
type Result struct {
	Outcome rules.Outcome
	State   State
	Step    catalog.Step
	// Payload is set when the client should render a new instruction.
	Payload *catalog.Payload
	// Supplement is the one-shot extra instruction, if any.
	Supplement string
	Done       bool
	// Discarded is set for frames dropped while suspended or superseded by
	// a concurrent reset.
	Discarded bool
}

// Snapshot is a read-only view of a controller.
type Snapshot struct {
	ID         string
	Task       string
	State      State
	Step       catalog.Step
	Suspended  bool
	Token      string
	Done       bool
	StartedAt  time.Time
	LastActive time.Time
}

// Controller owns the progress of one session. Frames are serialized; the
// detector is the only call made without the state lock held.
type Controller struct {
	id        string
	variant   *tasks.Variant
	detector  detection.Detector
	validator FrameValidator
	logger    *slog.Logger
	now       func() time.Time

	frameMu sync.Mutex

	mu         sync.Mutex
	state      State
	epoch      uint64
	suspended  bool
	token      string
	startedAt  time.Time
	lastActive time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithValidator installs a frame validator run before detection.
func WithValidator(v FrameValidator) Option {
	return func(c *Controller) { c.validator = v }
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.id = id
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a controller at the variant's initial step.
func New(variant *tasks.Variant, detector detection.Detector, opts ...Option) *Controller {
	c := &Controller{
		id:       uuid.NewString(),
		variant:  variant,
		detector: detector,
		logger:   logging.NewNop(),
		now:      time.Now,
		state:    Initial(variant),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(
		logging.SessionID(c.id),
		logging.Task(variant.Name),
	)
	c.startedAt = c.now()
	c.lastActive = c.startedAt
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Variant returns the task variant the session runs.
func (c *Controller) Variant() *tasks.Variant { return c.variant }

// HandleFrame validates image, runs detection and applies the rule for the
// current step. On any error the state is left unchanged.
func (c *Controller) HandleFrame(ctx context.Context, image []byte) (Result, error) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()

	c.mu.Lock()
	c.lastActive = c.now()
	if c.suspended {
		res := c.resultLocked(rules.Stay(rules.Input{Step: c.state.Step, Counters: c.state.Counters}))
		res.Discarded = true
		c.mu.Unlock()
		c.logger.Debug("frame discarded while suspended", logging.String(logging.FieldEventType, "frame_discarded"))
		return res, nil
	}
	if c.variant.Catalog.IsFinal(c.state.Step) {
		res := c.doneLocked()
		c.mu.Unlock()
		return res, nil
	}
	epoch := c.epoch
	c.mu.Unlock()

	if c.validator != nil {
		if err := c.validator.Validate(image); err != nil {
			return Result{}, err
		}
	}
	if c.detector == nil {
		return Result{}, services.Wrap(services.ErrDetector, "session", "detect", "no detector configured", nil)
	}
	dets, err := c.detector.Detect(ctx, image)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended || c.epoch != epoch {
		res := c.resultLocked(rules.Stay(rules.Input{Step: c.state.Step, Counters: c.state.Counters}))
		res.Discarded = true
		return res, nil
	}
	return c.applyLocked(dets)
}

// Apply evaluates an already detected frame. It shares the suspension and
// terminal rules of HandleFrame.
func (c *Controller) Apply(dets detection.Set) (Result, error) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = c.now()
	if c.suspended {
		res := c.resultLocked(rules.Stay(rules.Input{Step: c.state.Step, Counters: c.state.Counters}))
		res.Discarded = true
		return res, nil
	}
	if c.variant.Catalog.IsFinal(c.state.Step) {
		return c.doneLocked(), nil
	}
	return c.applyLocked(dets)
}

func (c *Controller) applyLocked(dets detection.Set) (Result, error) {
	prev := c.state
	out, next, err := Advance(c.variant, prev, dets)
	if err != nil {
		return Result{}, err
	}
	c.state = next
	res := c.resultLocked(out)
	switch {
	case out.StepChanged(prev.Step):
		payload := res.Step.Payload()
		res.Payload = &payload
		c.logger.Info("step advanced",
			logging.String(logging.FieldEventType, "step_advanced"),
			logging.String("from", c.stepName(prev.Step)),
			logging.Step(res.Step.Name),
			logging.Revision(next.Revision),
		)
	case out.Kind == rules.AdvanceWithSupplement:
		c.logger.Info("supplementary instruction sent",
			logging.String(logging.FieldEventType, "supplement_sent"),
			logging.Step(res.Step.Name),
			logging.Revision(next.Revision),
		)
	}
	res.Supplement = out.Supplement
	res.Done = c.variant.Catalog.IsFinal(next.Step)
	return res, nil
}

// Restart resets the session to the initial step with a fresh revision.
func (c *Controller) Restart() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetLocked(c.variant.Catalog.Initial(), "session restarted")
}

// Restore adopts a state handed back by the client. The Start sentinel
// restarts the session.
func (c *Controller) Restore(st State) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st.Step == catalog.Start {
		return c.resetLocked(c.variant.Catalog.Initial(), "session restarted"), nil
	}
	if _, err := c.variant.Catalog.Lookup(st.Step); err != nil {
		return Result{}, err
	}
	if st.Counters.One < 0 || st.Counters.Two < 0 {
		return Result{}, services.Wrap(services.ErrInvalidInputFormat, "session", "restore", "negative confirmation counters", nil)
	}
	if st.Revision < 0 {
		st.Revision = 0
	}
	c.state = st
	c.epoch++
	c.suspended = false
	c.token = ""
	return c.resultLocked(rules.Outcome{Kind: rules.NoChange, Next: st.Step, Counters: st.Counters}), nil
}

// Suspend hands the session to an external collaborator and returns the
// continuation token. Frames are discarded until Resume.
func (c *Controller) Suspend() (string, catalog.Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended {
		return "", catalog.Step{}, services.Wrap(services.ErrSuspended, "session", "suspend", "hand-off already in progress", nil)
	}
	step, err := c.variant.Catalog.Lookup(c.state.Step)
	if err != nil {
		return "", catalog.Step{}, err
	}
	c.suspended = true
	c.token = uuid.NewString()
	c.logger.Info("hand-off started",
		logging.String(logging.FieldEventType, "handoff_started"),
		logging.Step(step.Name),
	)
	return c.token, step, nil
}

// Resume ends a hand-off at the step named by the collaborator. Progress
// bookkeeping restarts: revision 0 and cleared counters.
func (c *Controller) Resume(token, stepName string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.suspended {
		return Result{}, services.Wrap(services.ErrNotSuspended, "session", "resume", "", nil)
	}
	if token != c.token {
		return Result{}, services.Wrap(services.ErrUnknownToken, "session", "resume", "token mismatch", nil)
	}
	var step catalog.Step
	if catalog.IsStartName(stepName) {
		step = c.variant.Catalog.Initial()
	} else {
		var err error
		step, err = c.variant.Catalog.LookupName(stepName)
		if err != nil {
			return Result{}, err
		}
	}
	res := c.resetLocked(step, "hand-off resumed")
	c.logger.Info("hand-off resumed",
		logging.String(logging.FieldEventType, "handoff_resumed"),
		logging.Step(step.Name),
	)
	return res, nil
}

// Abandon drops the hand-off identified by token without moving the session.
// It reports false when token no longer names the pending hand-off.
func (c *Controller) Abandon(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.suspended || token == "" || token != c.token {
		return false
	}
	c.suspended = false
	c.token = ""
	return true
}

// Suspended reports whether a hand-off is in progress.
func (c *Controller) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

// State returns the current progress state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the controller's observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	step, _ := c.variant.Catalog.Lookup(c.state.Step)
	return Snapshot{
		ID:         c.id,
		Task:       c.variant.Name,
		State:      c.state,
		Step:       step,
		Suspended:  c.suspended,
		Token:      c.token,
		Done:       c.variant.Catalog.IsFinal(c.state.Step),
		StartedAt:  c.startedAt,
		LastActive: c.lastActive,
	}
}

func (c *Controller) resetLocked(step catalog.Step, msg string) Result {
	c.state = State{Step: step.ID}
	c.epoch++
	c.suspended = false
	c.token = ""
	c.lastActive = c.now()
	res := c.resultLocked(rules.Outcome{Kind: rules.NoChange, Next: step.ID})
	payload := step.Payload()
	res.Payload = &payload
	c.logger.Debug(msg, logging.Step(step.Name))
	return res
}

func (c *Controller) doneLocked() Result {
	res := c.resultLocked(rules.Stay(rules.Input{Step: c.state.Step, Counters: c.state.Counters}))
	res.Done = true
	return res
}

func (c *Controller) resultLocked(out rules.Outcome) Result {
	step, _ := c.variant.Catalog.Lookup(c.state.Step)
	return Result{
		Outcome: out,
		State:   c.state,
		Step:    step,
		Done:    c.variant.Catalog.IsFinal(c.state.Step),
	}
}

func (c *Controller) stepName(id catalog.StepID) string {
	step, err := c.variant.Catalog.Lookup(id)
	if err != nil {
		return ""
	}
	return step.Name
}
