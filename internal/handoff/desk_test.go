package handoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"stepwise/internal/logging"
	"stepwise/internal/services"
)

func newTestDesk(timeout time.Duration) *Desk {
	return NewDesk(Credentials{MeetingNumber: "123", AppKey: "key"}, timeout, logging.NewNop())
}

func TestOpenReportAwait(t *testing.T) {
	d := newTestDesk(0)
	ticket := d.Open("tok", "sess", "lamp", "BUCKLE")
	if ticket.Join.MeetingNumber != "123" || ticket.OpenedAt.IsZero() {
		t.Fatalf("unexpected ticket %+v", ticket)
	}
	if got := d.Pending(); len(got) != 1 || got[0].Token != "tok" {
		t.Fatalf("unexpected pending %+v", got)
	}

	done := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		step, err := d.Await(context.Background(), "tok")
		done <- step
		errs <- err
	}()

	if err := d.Report("tok", " pipe "); err != nil {
		t.Fatalf("Report: %v", err)
	}
	select {
	case step := <-done:
		if err := <-errs; err != nil {
			t.Fatalf("Await: %v", err)
		}
		if step != "pipe" {
			t.Fatalf("unexpected step %q", step)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not return")
	}
	if len(d.Pending()) != 0 {
		t.Fatal("ticket must be removed after await")
	}
}

func TestReportBeforeAwait(t *testing.T) {
	d := newTestDesk(0)
	d.Open("tok", "sess", "lamp", "BASE")
	if err := d.Report("tok", "shade"); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if err := d.Report("tok", "bulb"); !errors.Is(err, services.ErrUnknownToken) {
		t.Fatalf("second report must fail, got %v", err)
	}
	step, err := d.Await(context.Background(), "tok")
	if err != nil || step != "shade" {
		t.Fatalf("Await = %q, %v", step, err)
	}
}

func TestReportValidation(t *testing.T) {
	d := newTestDesk(0)
	if err := d.Report("missing", "base"); !errors.Is(err, services.ErrUnknownToken) {
		t.Fatalf("expected unknown token, got %v", err)
	}
	d.Open("tok", "sess", "lamp", "BASE")
	if err := d.Report("tok", "  "); !errors.Is(err, services.ErrUnknownStep) {
		t.Fatalf("expected unknown step, got %v", err)
	}
}

func TestAwaitTimeout(t *testing.T) {
	d := newTestDesk(20 * time.Millisecond)
	d.Open("tok", "sess", "lamp", "BASE")
	_, err := d.Await(context.Background(), "tok")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if _, ok := d.Get("tok"); ok {
		t.Fatal("timed out ticket must be removed")
	}
}

func TestAwaitContextAndCancel(t *testing.T) {
	d := newTestDesk(0)
	d.Open("a", "sess", "lamp", "BASE")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Await(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}

	d.Open("b", "sess", "lamp", "BASE")
	errs := make(chan error, 1)
	go func() {
		_, err := d.Await(context.Background(), "b")
		errs <- err
	}()
	for {
		if _, ok := d.Get("b"); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	d.Cancel("b")
	select {
	case err := <-errs:
		if !errors.Is(err, services.ErrUnknownToken) {
			t.Fatalf("expected cancellation error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not wake on cancel")
	}
	if _, err := d.Await(context.Background(), "b"); !errors.Is(err, services.ErrUnknownToken) {
		t.Fatalf("cancelled token must be unknown, got %v", err)
	}
}

func TestPendingOrder(t *testing.T) {
	d := newTestDesk(0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	d.now = func() time.Time {
		tick++
		return base.Add(time.Duration(-tick) * time.Minute)
	}
	d.Open("first", "s1", "lamp", "BASE")
	d.Open("second", "s2", "lamp", "PIPE")
	got := d.Pending()
	if len(got) != 2 || got[0].Token != "second" || got[1].Token != "first" {
		t.Fatalf("expected oldest first, got %+v", got)
	}
}
