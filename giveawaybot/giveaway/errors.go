package giveaway

import (
	"errors"
	"fmt"
)

// Error taxonomy: validation errors and ErrNotFound are reported
// privately to the user and change no state; persistence errors abort
// the operation (no retry, state is re-read on the next one); rendering
// failures never surface here, the announcer logs and swallows them.

var (
	ErrNotFound        = errors.New("giveaway not found")
	ErrAlreadyEnrolled = errors.New("you are already participating in this giveaway")
	ErrNoParticipants  = errors.New("cannot end giveaway with winners - no participants")
)

// ValidationError rejects operator input from the setup form.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a document store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
