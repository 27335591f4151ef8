package api

import (
	"fmt"
	"strings"
	"time"

	"stepwise/internal/catalog"
	"stepwise/internal/debounce"
	"stepwise/internal/detection"
	"stepwise/internal/geometry"
	"stepwise/internal/handoff"
	"stepwise/internal/rules"
	"stepwise/internal/services"
	"stepwise/internal/session"
	"stepwise/internal/tasks"
)

// ImageSource loads instruction image bytes by file name.
type ImageSource interface {
	Load(name string) ([]byte, error)
}

// FromState converts a session state to its wire tuple.
func FromState(cat *catalog.Catalog, st session.State) StateTuple {
	tuple := StateTuple{
		StepID:                     int(st.Step),
		Revision:                   st.Revision,
		FramesWithOneConfirmation:  st.Counters.One,
		FramesWithTwoConfirmations: st.Counters.Two,
	}
	if st.Step == catalog.Start {
		tuple.Step = catalog.StartName
	} else if step, err := cat.Lookup(st.Step); err == nil {
		tuple.Step = step.Name
	}
	return tuple
}

// ToState resolves a wire tuple against cat. StepID takes precedence; a
// zero StepID falls back to the step name, where "start" (or nothing at
// all) is the start sentinel.
func ToState(cat *catalog.Catalog, tuple StateTuple) (session.State, error) {
	if tuple.FramesWithOneConfirmation < 0 || tuple.FramesWithTwoConfirmations < 0 {
		return session.State{}, services.Wrap(services.ErrInvalidInputFormat, "api", "state",
			fmt.Sprintf("negative confirmation counters (%d, %d)", tuple.FramesWithOneConfirmation, tuple.FramesWithTwoConfirmations), nil)
	}
	st := session.State{
		Revision: tuple.Revision,
		Counters: debounce.Counters{
			One: tuple.FramesWithOneConfirmation,
			Two: tuple.FramesWithTwoConfirmations,
		},
	}
	switch {
	case tuple.StepID != 0:
		step, err := cat.Lookup(catalog.StepID(tuple.StepID))
		if err != nil {
			return session.State{}, err
		}
		st.Step = step.ID
	case strings.TrimSpace(tuple.Step) == "" || catalog.IsStartName(tuple.Step):
		return session.State{Step: catalog.Start}, nil
	default:
		step, err := cat.LookupName(tuple.Step)
		if err != nil {
			return session.State{}, err
		}
		st.Step = step.ID
	}
	if st.Revision < 0 {
		st.Revision = 0
	}
	return st, nil
}

// ResultItems renders the content items for an instruction payload and an
// optional supplement. Images missing from src are sent by name only.
func ResultItems(payload *catalog.Payload, supplement string, src ImageSource) []ResultItem {
	var items []ResultItem
	if payload != nil {
		items = append(items, ResultItem{Type: PayloadText, Text: payload.Text})
		if payload.Image != "" {
			item := ResultItem{Type: PayloadImage, Name: payload.Image}
			if src != nil {
				if data, err := src.Load(payload.Image); err == nil {
					item.Data = data
				}
			}
			items = append(items, item)
		}
	}
	if supplement != "" {
		items = append(items, ResultItem{Type: PayloadText, Text: supplement})
	}
	return items
}

// FromResult converts a controller result into the client reply.
func FromResult(cat *catalog.Catalog, res session.Result, src ImageSource) ToClient {
	return ToClient{
		Status:    string(services.StatusSuccess),
		Results:   ResultItems(res.Payload, res.Supplement, src),
		State:     FromState(cat, res.State),
		Done:      res.Done,
		Discarded: res.Discarded,
	}
}

// FromError converts a failed request into the client reply. The state is
// the session's unchanged state.
func FromError(cat *catalog.Catalog, st session.State, err error) ToClient {
	return ToClient{
		Status: string(services.StatusFor(err)),
		Error:  err.Error(),
		State:  FromState(cat, st),
	}
}

// FromTicket converts a pending hand-off.
func FromTicket(t handoff.Ticket) HandoffTicket {
	return HandoffTicket{
		Token:     t.Token,
		SessionID: t.SessionID,
		Task:      t.Task,
		Step:      t.Step,
		OpenedAt:  formatTime(t.OpenedAt),
		Reported:  t.Reported,
	}
}

// FromTickets converts pending hand-offs, keeping order.
func FromTickets(tickets []handoff.Ticket) []HandoffTicket {
	out := make([]HandoffTicket, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, FromTicket(t))
	}
	return out
}

// HandoffInfoFor builds the hand-off reply including join credentials.
func HandoffInfoFor(t handoff.Ticket) *HandoffInfo {
	return &HandoffInfo{
		Token:           t.Token,
		Step:            t.Step,
		MeetingNumber:   t.Join.MeetingNumber,
		MeetingPassword: t.Join.MeetingPassword,
		AppKey:          t.Join.AppKey,
		AppSecret:       t.Join.AppSecret,
	}
}

// FromSnapshot converts a session snapshot.
func FromSnapshot(cat *catalog.Catalog, snap session.Snapshot) SessionInfo {
	return SessionInfo{
		ID:         snap.ID,
		Task:       snap.Task,
		State:      FromState(cat, snap.State),
		Suspended:  snap.Suspended,
		Done:       snap.Done,
		StartedAt:  formatTime(snap.StartedAt),
		LastActive: formatTime(snap.LastActive),
	}
}

// FromStep converts a catalog step.
func FromStep(cat *catalog.Catalog, step catalog.Step) StepInfo {
	return StepInfo{
		ID:          int(step.ID),
		Name:        step.Name,
		DisplayName: step.DisplayName(),
		Text:        step.Text,
		Image:       step.Image,
		Final:       cat.IsFinal(step.ID),
	}
}

// FromVariant converts a task variant to its full view.
func FromVariant(v *tasks.Variant) TaskDetail {
	detail := TaskDetail{Name: v.Name}
	for _, step := range v.Catalog.Steps() {
		detail.Steps = append(detail.Steps, FromStep(v.Catalog, step))
	}
	for _, name := range v.ClassNames() {
		class, _ := v.ClassByName(name)
		detail.Classes = append(detail.Classes, ClassInfo{ID: int(class), Name: name})
	}
	return detail
}

// SummarizeVariant converts a task variant to its list view.
func SummarizeVariant(v *tasks.Variant) TaskSummary {
	return TaskSummary{
		Name:    v.Name,
		Steps:   v.Catalog.Len(),
		Initial: v.Catalog.Initial().Name,
		Final:   v.Catalog.Final().Name,
	}
}

// ToDetectionSet resolves request detections against the variant's labels.
func ToDetectionSet(v *tasks.Variant, dets []Detection) (detection.Set, error) {
	set := make(detection.Set)
	for i, d := range dets {
		class := detection.Class(d.Class)
		if label := strings.TrimSpace(d.Label); label != "" {
			resolved, ok := v.ClassByName(label)
			if !ok {
				return nil, services.Wrap(services.ErrInvalidInputFormat, "api", "detections",
					fmt.Sprintf("detection %d: unknown label %q for task %s", i, label, v.Name), nil)
			}
			class = resolved
		}
		if class <= 0 {
			return nil, services.Wrap(services.ErrInvalidInputFormat, "api", "detections",
				fmt.Sprintf("detection %d: class or label required", i), nil)
		}
		set[class] = append(set[class], geometry.BoundingBox{
			X1: d.Box[0], Y1: d.Box[1], X2: d.Box[2], Y2: d.Box[3], Score: d.Score,
		})
	}
	return set, nil
}

// FromEvaluation converts a stateless evaluation.
func FromEvaluation(v *tasks.Variant, before session.State, out rules.Outcome, after session.State) EvaluateResponse {
	resp := EvaluateResponse{
		Outcome:    out.Kind.String(),
		State:      FromState(v.Catalog, after),
		Supplement: out.Supplement,
		Done:       v.Catalog.IsFinal(after.Step),
	}
	if out.StepChanged(before.Step) {
		if step, err := v.Catalog.Lookup(after.Step); err == nil {
			payload := step.Payload()
			resp.Results = ResultItems(&payload, "", nil)
		}
	}
	if out.Supplement != "" {
		resp.Results = append(resp.Results, ResultItem{Type: PayloadText, Text: out.Supplement})
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
