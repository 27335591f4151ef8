package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInputFormat = errors.New("invalid input format")
	ErrImageTooLarge      = errors.New("image too large")
	ErrUnknownStep        = errors.New("unknown step")
	ErrUnknownTask        = errors.New("unknown task")
	ErrSuspended          = errors.New("session suspended")
	ErrNotSuspended       = errors.New("session not suspended")
	ErrUnknownToken       = errors.New("unknown hand-off token")
	ErrDetector           = errors.New("detector error")
	ErrConfiguration      = errors.New("configuration error")
	ErrTimeout            = errors.New("timeout")
)

// Status is the wire-level outcome reported to clients for one request.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusWrongInputFormat Status = "wrong_input_format"
	StatusImageTooLarge    Status = "image_too_large"
	StatusUnknownStep      Status = "unknown_step"
	StatusEngineError      Status = "engine_error"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later status classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrDetector
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StatusFor maps a frame failure to the status sent back to the client.
func StatusFor(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrInvalidInputFormat):
		return StatusWrongInputFormat
	case errors.Is(err, ErrImageTooLarge):
		return StatusImageTooLarge
	case errors.Is(err, ErrUnknownStep):
		return StatusUnknownStep
	default:
		return StatusEngineError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
