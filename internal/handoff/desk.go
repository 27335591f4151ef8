package handoff

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"stepwise/internal/logging"
	"stepwise/internal/services"
)

// Credentials let the client join the side conversation with the remote
// expert.
type Credentials struct {
	MeetingNumber   string `json:"meetingNumber,omitempty"`
	MeetingPassword string `json:"meetingPassword,omitempty"`
	AppKey          string `json:"appKey,omitempty"`
	AppSecret       string `json:"appSecret,omitempty"`
}

// Ticket describes one pending hand-off.
type Ticket struct {
	Token     string      `json:"token"`
	SessionID string      `json:"sessionId"`
	Task      string      `json:"task"`
	Step      string      `json:"step"`
	OpenedAt  time.Time   `json:"openedAt"`
	Reported  string      `json:"reported,omitempty"`
	Join      Credentials `json:"-"`
}

type entry struct {
	ticket    Ticket
	reported  chan struct{}
	cancelled chan struct{}
}

// Desk tracks hand-offs between their start and the expert's report.
type Desk struct {
	creds   Credentials
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]*entry
}

// NewDesk creates a desk. A zero timeout waits until the caller's context
// ends.
func NewDesk(creds Credentials, timeout time.Duration, logger *slog.Logger) *Desk {
	return &Desk{
		creds:   creds,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "handoff"),
		now:     time.Now,
		pending: make(map[string]*entry),
	}
}

// Open registers a hand-off and returns the ticket with join credentials.
func (d *Desk) Open(token, sessionID, task, step string) Ticket {
	ticket := Ticket{
		Token:     token,
		SessionID: sessionID,
		Task:      task,
		Step:      step,
		OpenedAt:  d.now(),
		Join:      d.creds,
	}
	d.mu.Lock()
	d.pending[token] = &entry{
		ticket:    ticket,
		reported:  make(chan struct{}),
		cancelled: make(chan struct{}),
	}
	d.mu.Unlock()
	d.logger.Info("hand-off opened",
		logging.String(logging.FieldEventType, "handoff_opened"),
		logging.SessionID(sessionID),
		logging.Task(task),
		logging.Step(step),
	)
	return ticket
}

// Get returns the pending ticket for token.
func (d *Desk) Get(token string) (Ticket, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[token]
	if !ok {
		return Ticket{}, false
	}
	return e.ticket, true
}

// Report records the step the expert wants the session to resume at. The
// step is checked against the task catalog by the caller. Only the first
// report counts.
func (d *Desk) Report(token, step string) error {
	step = strings.TrimSpace(step)
	if step == "" {
		return services.Wrap(services.ErrUnknownStep, "handoff", "report", "step name required", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[token]
	if !ok {
		return services.Wrap(services.ErrUnknownToken, "handoff", "report", token, nil)
	}
	if e.ticket.Reported != "" {
		return services.Wrap(services.ErrUnknownToken, "handoff", "report", "already reported", nil)
	}
	e.ticket.Reported = step
	close(e.reported)
	return nil
}

// Await blocks until the hand-off is reported, cancelled, ctx ends or the
// desk timeout passes. The ticket is removed on return.
func (d *Desk) Await(ctx context.Context, token string) (string, error) {
	d.mu.Lock()
	e, ok := d.pending[token]
	d.mu.Unlock()
	if !ok {
		return "", services.Wrap(services.ErrUnknownToken, "handoff", "await", token, nil)
	}
	defer d.remove(token)

	var expired <-chan time.Time
	if d.timeout > 0 {
		timer := time.NewTimer(d.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-e.reported:
		d.mu.Lock()
		step := e.ticket.Reported
		d.mu.Unlock()
		return step, nil
	case <-e.cancelled:
		return "", services.Wrap(services.ErrUnknownToken, "handoff", "await", "hand-off cancelled", nil)
	case <-expired:
		logging.WarnWithContext(d.logger, "hand-off timed out", "handoff_timeout",
			logging.SessionID(e.ticket.SessionID),
			logging.Duration("timeout", d.timeout),
			logging.Hint("raise handoff.timeout_seconds or report the step sooner"),
			logging.Impact("session continues at the step it was suspended on"),
		)
		return "", services.Wrap(services.ErrTimeout, "handoff", "await", "no report before timeout", nil)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Cancel drops a pending hand-off and wakes its waiter.
func (d *Desk) Cancel(token string) {
	d.mu.Lock()
	e, ok := d.pending[token]
	if ok {
		delete(d.pending, token)
	}
	d.mu.Unlock()
	if ok {
		close(e.cancelled)
	}
}

// Pending lists open hand-offs, oldest first.
func (d *Desk) Pending() []Ticket {
	d.mu.Lock()
	out := make([]Ticket, 0, len(d.pending))
	for _, e := range d.pending {
		out = append(out, e.ticket)
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].Token < out[j].Token
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

func (d *Desk) remove(token string) {
	d.mu.Lock()
	delete(d.pending, token)
	d.mu.Unlock()
}
