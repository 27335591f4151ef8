package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"stepwise/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrDetector, "detector", "detect", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrDetector) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"detector", "detect", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrDetector) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestStatusForMapping(t *testing.T) {
	cases := []struct {
		err  error
		want services.Status
	}{
		{nil, services.StatusSuccess},
		{services.Wrap(services.ErrInvalidInputFormat, "imaging", "inspect", "not an image", nil), services.StatusWrongInputFormat},
		{fmt.Errorf("frame: %w", services.ErrImageTooLarge), services.StatusImageTooLarge},
		{services.ErrUnknownStep, services.StatusUnknownStep},
		{errors.New("io"), services.StatusEngineError},
	}
	for _, tc := range cases {
		if got := services.StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
