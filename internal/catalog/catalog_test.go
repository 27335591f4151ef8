package catalog_test

import (
	"errors"
	"testing"

	"stepwise/internal/catalog"
	"stepwise/internal/services"
)

func threeSteps() []catalog.Step {
	return []catalog.Step{
		{ID: 1, Name: "BASE", Text: "Put the base on the table.", Image: "base.PNG"},
		{ID: 2, Name: "PIPE", Text: "Screw the pipe on top of the base.", Image: "pipe.PNG"},
		{ID: 3, Name: "SHADE", Text: "Expand the shade.", Image: "shade.PNG"},
	}
}

func TestCatalogOrdering(t *testing.T) {
	c := catalog.MustNew("lamp", threeSteps())
	if c.Task() != "lamp" || c.Len() != 3 {
		t.Fatalf("unexpected catalog %s/%d", c.Task(), c.Len())
	}
	if c.Initial().Name != "BASE" || c.Final().Name != "SHADE" {
		t.Fatalf("unexpected bounds %s..%s", c.Initial().Name, c.Final().Name)
	}
	if !c.IsFinal(3) || c.IsFinal(2) {
		t.Fatal("IsFinal mismatch")
	}
	next, ok := c.Next(1)
	if !ok || next.ID != 2 {
		t.Fatalf("Next(1) = %+v, %v", next, ok)
	}
	if _, ok := c.Next(3); ok {
		t.Fatal("terminal step must have no successor")
	}
	if c.Position(2) != 1 || c.Position(42) != -1 {
		t.Fatal("Position mismatch")
	}
}

func TestStepsReturnsCopy(t *testing.T) {
	c := catalog.MustNew("lamp", threeSteps())
	steps := c.Steps()
	steps[0].Name = "MUTATED"
	if c.Initial().Name != "BASE" {
		t.Fatal("catalog must not be mutated through Steps")
	}
}

func TestLookupUnknownIdentifier(t *testing.T) {
	c := catalog.MustNew("lamp", threeSteps())
	_, err := c.Lookup(99)
	if !errors.Is(err, services.ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %v", err)
	}
	var unknown *catalog.UnknownStepError
	if !errors.As(err, &unknown) || unknown.Task != "lamp" || unknown.Step != "99" {
		t.Fatalf("unexpected error detail %#v", err)
	}
	if unknown.ErrorKind() != "not_found" {
		t.Fatalf("unexpected kind %q", unknown.ErrorKind())
	}
	if services.StatusFor(err) != services.StatusUnknownStep {
		t.Fatalf("unexpected status %q", services.StatusFor(err))
	}
}

func TestLookupNameSuggestsClosestStep(t *testing.T) {
	c := catalog.MustNew("lamp", threeSteps())
	_, err := c.LookupName("shades")
	var unknown *catalog.UnknownStepError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownStepError, got %v", err)
	}
	if unknown.Suggestion != "SHADE" {
		t.Fatalf("expected SHADE suggestion, got %q", unknown.Suggestion)
	}
	if err.Error() != `unknown step "shades" for task lamp (did you mean SHADE?)` {
		t.Fatalf("unexpected message %q", err.Error())
	}

	_, err = c.LookupName("ROOF")
	if !errors.As(err, &unknown) || unknown.Suggestion != "" {
		t.Fatalf("expected no suggestion for ROOF, got %v", err)
	}
}

func TestLookupNameIsCaseInsensitive(t *testing.T) {
	c := catalog.MustNew("lamp", threeSteps())
	for _, name := range []string{"pipe", "PIPE", " Pipe ", "pIpE"} {
		step, err := c.LookupName(name)
		if err != nil {
			t.Fatalf("LookupName(%q): %v", name, err)
		}
		if step.ID != 2 {
			t.Fatalf("LookupName(%q) = %d", name, step.ID)
		}
	}
	if _, err := c.LookupName("bulb"); !errors.Is(err, services.ErrUnknownStep) {
		t.Fatalf("expected unknown step, got %v", err)
	}
}

func TestPayloadAndDisplayName(t *testing.T) {
	step := threeSteps()[1]
	if got := step.Payload(); got.Text != step.Text || got.Image != "pipe.PNG" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if got := step.DisplayName(); got != "Pipe" {
		t.Fatalf("DisplayName = %q", got)
	}
}

func TestNewRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name  string
		task  string
		steps []catalog.Step
	}{
		{name: "no task", task: "", steps: threeSteps()},
		{name: "no steps", task: "lamp"},
		{name: "reserved id", task: "lamp", steps: []catalog.Step{{ID: 0, Name: "BASE"}}},
		{name: "reserved name", task: "lamp", steps: []catalog.Step{{ID: 1, Name: "Start"}}},
		{name: "blank name", task: "lamp", steps: []catalog.Step{{ID: 1, Name: " "}}},
		{name: "duplicate id", task: "lamp", steps: []catalog.Step{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}}},
		{name: "duplicate name", task: "lamp", steps: []catalog.Step{{ID: 1, Name: "A"}, {ID: 2, Name: "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := catalog.New(tt.task, tt.steps); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestIsStartName(t *testing.T) {
	if !catalog.IsStartName(" START ") || catalog.IsStartName("base") {
		t.Fatal("IsStartName mismatch")
	}
}
