package api_test

import (
	"errors"
	"testing"

	"stepwise/internal/api"
	"stepwise/internal/catalog"
	"stepwise/internal/debounce"
	"stepwise/internal/rules"
	"stepwise/internal/services"
	"stepwise/internal/session"
	"stepwise/internal/tasks"
)

type imageMap map[string][]byte

func (m imageMap) Load(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

func TestToStateResolution(t *testing.T) {
	cat := tasks.Lamp().Catalog
	tests := []struct {
		name    string
		tuple   api.StateTuple
		want    catalog.StepID
		wantErr error
	}{
		{"by id", api.StateTuple{StepID: 4, Revision: 7}, tasks.LampStepBuckle, nil},
		{"by name", api.StateTuple{Step: "pipe"}, tasks.LampStepPipe, nil},
		{"start name", api.StateTuple{Step: "START"}, catalog.Start, nil},
		{"empty is start", api.StateTuple{}, catalog.Start, nil},
		{"id wins over name", api.StateTuple{StepID: 2, Step: "BULB"}, tasks.LampStepPipe, nil},
		{"unknown id", api.StateTuple{StepID: 42}, 0, services.ErrUnknownStep},
		{"unknown name", api.StateTuple{Step: "wheel"}, 0, services.ErrUnknownStep},
		{"negative one counter", api.StateTuple{StepID: 4, FramesWithOneConfirmation: -40}, 0, services.ErrInvalidInputFormat},
		{"negative two counter", api.StateTuple{StepID: 4, FramesWithTwoConfirmations: -1}, 0, services.ErrInvalidInputFormat},
		{"negative counters on start", api.StateTuple{Step: "start", FramesWithOneConfirmation: -2}, 0, services.ErrInvalidInputFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := api.ToState(cat, tt.tuple)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToState: %v", err)
			}
			if st.Step != tt.want {
				t.Fatalf("step = %d, want %d", st.Step, tt.want)
			}
		})
	}
}

func TestFromStateCarriesCounters(t *testing.T) {
	cat := tasks.Lamp().Catalog
	tuple := api.FromState(cat, session.State{
		Step:     tasks.LampStepBuckle,
		Revision: 3,
		Counters: debounce.Counters{One: 2},
	})
	if tuple.Step != "BUCKLE" || tuple.StepID != 4 || tuple.Revision != 3 || tuple.FramesWithOneConfirmation != 2 {
		t.Fatalf("unexpected tuple %+v", tuple)
	}
	if start := api.FromState(cat, session.State{}); start.Step != catalog.StartName || start.StepID != 0 {
		t.Fatalf("unexpected start tuple %+v", start)
	}
}

func TestResultItems(t *testing.T) {
	src := imageMap{"pipe.PNG": []byte("png-bytes")}
	payload := &catalog.Payload{Text: "Screw the pipe", Image: "pipe.PNG"}

	items := api.ResultItems(payload, "", src)
	if len(items) != 2 {
		t.Fatalf("expected text and image, got %+v", items)
	}
	if items[0].Type != api.PayloadText || items[0].Text != "Screw the pipe" {
		t.Fatalf("unexpected text item %+v", items[0])
	}
	if items[1].Type != api.PayloadImage || string(items[1].Data) != "png-bytes" {
		t.Fatalf("unexpected image item %+v", items[1])
	}

	missing := api.ResultItems(&catalog.Payload{Text: "x", Image: "gone.PNG"}, "", src)
	if missing[1].Name != "gone.PNG" || missing[1].Data != nil {
		t.Fatalf("missing image should be sent by name, got %+v", missing[1])
	}

	hint := api.ResultItems(nil, tasks.SecondWireHint, src)
	if len(hint) != 1 || hint[0].Text != tasks.SecondWireHint {
		t.Fatalf("expected supplement only, got %+v", hint)
	}
	if api.ResultItems(nil, "", src) != nil {
		t.Fatal("expected no items for an unchanged step")
	}
}

func TestFromErrorStatus(t *testing.T) {
	cat := tasks.Sandwich().Catalog
	st := session.State{Step: tasks.SandwichStepHam, Revision: 2}
	reply := api.FromError(cat, st, services.Wrap(services.ErrImageTooLarge, "imaging", "validate", "", nil))
	if reply.Status != string(services.StatusImageTooLarge) {
		t.Fatalf("unexpected status %q", reply.Status)
	}
	if reply.State.Step != "HAM" || reply.State.Revision != 2 {
		t.Fatalf("state must be reported unchanged, got %+v", reply.State)
	}
}

func TestToDetectionSet(t *testing.T) {
	lamp := tasks.Lamp()
	set, err := api.ToDetectionSet(lamp, []api.Detection{
		{Label: "Base", Box: [4]float64{0, 0, 10, 10}, Score: 0.9},
		{Class: int(tasks.LampPipe), Box: [4]float64{1, 1, 2, 5}, Score: 0.8},
		{Class: int(tasks.LampPipe), Label: "base", Box: [4]float64{2, 2, 3, 3}, Score: 0.7},
	})
	if err != nil {
		t.Fatalf("ToDetectionSet: %v", err)
	}
	if set.Count(tasks.LampBase) != 2 || set.Count(tasks.LampPipe) != 1 {
		t.Fatalf("unexpected set %+v", set)
	}

	if _, err := api.ToDetectionSet(lamp, []api.Detection{{Label: "ham"}}); !errors.Is(err, services.ErrInvalidInputFormat) {
		t.Fatalf("expected invalid input for unknown label, got %v", err)
	}
	if _, err := api.ToDetectionSet(lamp, []api.Detection{{Box: [4]float64{0, 0, 1, 1}}}); !errors.Is(err, services.ErrInvalidInputFormat) {
		t.Fatalf("expected invalid input for missing class, got %v", err)
	}
}

func TestFromVariant(t *testing.T) {
	detail := api.FromVariant(tasks.Sandwich())
	if len(detail.Steps) != 8 || detail.Steps[0].Name != "NOTHING" || !detail.Steps[7].Final {
		t.Fatalf("unexpected steps %+v", detail.Steps)
	}
	if detail.Steps[1].DisplayName != "Bread" {
		t.Fatalf("unexpected display name %q", detail.Steps[1].DisplayName)
	}
	if len(detail.Classes) != 6 || detail.Classes[0].Name != "tomato" || detail.Classes[5].ID != 9 {
		t.Fatalf("unexpected classes %+v", detail.Classes)
	}
	summary := api.SummarizeVariant(tasks.Lamp())
	if summary.Steps != 9 || summary.Initial != "BASE" || summary.Final != "DONE" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestFromEvaluationIncludesNewInstruction(t *testing.T) {
	v := tasks.Sandwich()
	before := session.State{Step: tasks.SandwichStepNothing}
	out := rules.AdvanceTo(tasks.SandwichStepBread)
	after := before.Apply(out)

	resp := api.FromEvaluation(v, before, out, after)
	if resp.Outcome != "advance" || resp.State.Step != "BREAD" || resp.State.Revision != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Results) != 2 || resp.Results[0].Text != "Now put a piece of bread on the table." {
		t.Fatalf("expected instruction results, got %+v", resp.Results)
	}

	stay := rules.Stay(rules.Input{Step: tasks.SandwichStepHam})
	resp = api.FromEvaluation(v, session.State{Step: tasks.SandwichStepHam}, stay, session.State{Step: tasks.SandwichStepHam})
	if resp.Outcome != "no_change" || len(resp.Results) != 0 {
		t.Fatalf("expected quiet no_change, got %+v", resp)
	}
}
