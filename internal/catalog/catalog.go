package catalog

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stepwise/internal/textutil"
)

// suggestThreshold is the minimum name similarity for a "did you mean" hint.
const suggestThreshold = 0.35

// StepID is the stable wire identifier of a step within one task variant.
type StepID int

// Start is the sentinel wire identifier clients send to (re)start a task.
// It never names a catalog entry.
const Start StepID = 0

// StartName is the step name that maps to Start.
const StartName = "start"

// Step is one stage of a guided task.
type Step struct {
	ID    StepID
	Name  string
	Text  string
	Image string
}

// Payload is the instruction a client renders when a step begins.
type Payload struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// DisplayName returns the step name in title case for human-facing output.
func (s Step) DisplayName() string {
	return cases.Title(language.Und).String(strings.ToLower(s.Name))
}

// Payload returns the step's instruction.
func (s Step) Payload() Payload {
	return Payload{Text: s.Text, Image: s.Image}
}

// Catalog is the ordered, immutable list of steps for one task variant.
type Catalog struct {
	task   string
	steps  []Step
	byID   map[StepID]int
	byName map[string]int
}

// foldKey normalizes a step name for lookup. Casers carry state and are not
// shared between goroutines.
func foldKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// New validates steps and builds a catalog. Steps keep the given order; the
// first is the initial step and the last is terminal.
func New(task string, steps []Step) (*Catalog, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, errors.New("catalog: task name required")
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("catalog %s: no steps", task)
	}
	c := &Catalog{
		task:   task,
		steps:  make([]Step, len(steps)),
		byID:   make(map[StepID]int, len(steps)),
		byName: make(map[string]int, len(steps)),
	}
	copy(c.steps, steps)
	for i, step := range c.steps {
		if step.ID == Start {
			return nil, fmt.Errorf("catalog %s: step %q uses reserved id %d", task, step.Name, Start)
		}
		key := foldKey(step.Name)
		if key == "" {
			return nil, fmt.Errorf("catalog %s: step %d has no name", task, step.ID)
		}
		if key == StartName {
			return nil, fmt.Errorf("catalog %s: step name %q is reserved", task, step.Name)
		}
		if _, dup := c.byID[step.ID]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate step id %d", task, step.ID)
		}
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate step name %q", task, step.Name)
		}
		c.byID[step.ID] = i
		c.byName[key] = i
	}
	return c, nil
}

// MustNew is New for statically defined catalogs.
func MustNew(task string, steps []Step) *Catalog {
	c, err := New(task, steps)
	if err != nil {
		panic(err)
	}
	return c
}

// Task returns the task variant name.
func (c *Catalog) Task() string { return c.task }

// Len returns the number of steps.
func (c *Catalog) Len() int { return len(c.steps) }

// Steps returns a copy of the steps in order.
func (c *Catalog) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// Initial returns the first step.
func (c *Catalog) Initial() Step { return c.steps[0] }

// Final returns the terminal step.
func (c *Catalog) Final() Step { return c.steps[len(c.steps)-1] }

// IsFinal reports whether id is the terminal step.
func (c *Catalog) IsFinal(id StepID) bool { return c.Final().ID == id }

// Lookup returns the step with the given wire identifier.
func (c *Catalog) Lookup(id StepID) (Step, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Step{}, &UnknownStepError{Task: c.task, Step: fmt.Sprintf("%d", id)}
	}
	return c.steps[idx], nil
}

// LookupName resolves a step name case-insensitively.
func (c *Catalog) LookupName(name string) (Step, error) {
	idx, ok := c.byName[foldKey(name)]
	if !ok {
		suggestion, _ := textutil.Suggest(name, c.names(), suggestThreshold)
		return Step{}, &UnknownStepError{Task: c.task, Step: name, Suggestion: suggestion}
	}
	return c.steps[idx], nil
}

func (c *Catalog) names() []string {
	out := make([]string, len(c.steps))
	for i, step := range c.steps {
		out[i] = step.Name
	}
	return out
}

// Position returns the zero-based index of id, or -1 when absent.
func (c *Catalog) Position(id StepID) int {
	idx, ok := c.byID[id]
	if !ok {
		return -1
	}
	return idx
}

// Next returns the step after id. The terminal step has no successor.
func (c *Catalog) Next(id StepID) (Step, bool) {
	idx, ok := c.byID[id]
	if !ok || idx+1 >= len(c.steps) {
		return Step{}, false
	}
	return c.steps[idx+1], true
}

// IsStartName reports whether name is the restart sentinel.
func IsStartName(name string) bool {
	return foldKey(name) == StartName
}
