package catalog

import (
	"fmt"

	"stepwise/internal/services"
)

// UnknownStepError reports a step identifier or name that is not part of a
// task's catalog. It always signals a protocol mismatch between peers.
type UnknownStepError struct {
	Task       string
	Step       string
	Suggestion string
}

func (e *UnknownStepError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown step %q for task %s (did you mean %s?)", e.Step, e.Task, e.Suggestion)
	}
	return fmt.Sprintf("unknown step %q for task %s", e.Step, e.Task)
}

// Unwrap lets errors.Is match services.ErrUnknownStep.
func (e *UnknownStepError) Unwrap() error { return services.ErrUnknownStep }

// ErrorKind classifies the error for status mapping.
func (e *UnknownStepError) ErrorKind() string { return "not_found" }
