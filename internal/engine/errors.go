package engine

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownClass     = errors.New("unknown doodle class")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrNotFound         = errors.New("doodle not found")
)

// ValidationError reports a value that a doodle refused. Callers are expected to
// skip the offending update and carry on.
type ValidationError struct {
	Class     string
	Parameter string
	Value     any
	Reason    string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("invalid value %v for %s: %s", e.Value, e.Parameter, e.Reason)
	}
	return fmt.Sprintf("%s: invalid value %v for %s: %s", e.Class, e.Value, e.Parameter, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
