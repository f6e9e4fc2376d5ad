package domain

import (
	"errors"
	"fmt"
)

// Errors raised by time operations and tool invocation.
// Callers classify failures with errors.Is.
var (
	ErrUnknownTimezone   = errors.New("unknown timezone")
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrUnknownTool       = errors.New("unknown tool")
	ErrMissingArgument   = errors.New("missing required argument")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// TimezoneError describes a zone name that the timezone database rejected.
type TimezoneError struct {
	Name string
	Err  error
}

func (e *TimezoneError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Invalid timezone: %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("Invalid timezone: %s", e.Name)
}

func (e *TimezoneError) Is(target error) bool { return target == ErrUnknownTimezone }

func (e *TimezoneError) Unwrap() error { return e.Err }

// ArgumentError names the tool argument that failed validation.
type ArgumentError struct {
	Argument string
	Err      error // ErrMissingArgument or ErrInvalidArgument
}

func (e *ArgumentError) Error() string {
	if errors.Is(e.Err, ErrInvalidArgument) {
		return fmt.Sprintf("invalid argument %q: must be a string", e.Argument)
	}
	return fmt.Sprintf("Missing required argument: %s", e.Argument)
}

func (e *ArgumentError) Unwrap() error { return e.Err }
