package taskview

import (
	"errors"
	"fmt"
)

var (
	// ErrTitleRequired is returned when a task form has a blank title.
	ErrTitleRequired = errors.New("task title is required")

	// ErrAssigneeNotValidated is returned when an assignee was selected but
	// could not be confirmed in the directory. No write is issued.
	ErrAssigneeNotValidated = errors.New("user could not be validated")

	// ErrNoAssignee is returned by bulk assignment without a selected user.
	ErrNoAssignee = errors.New("no user selected")

	// ErrNoSelection is returned by bulk operations without selected tasks.
	ErrNoSelection = errors.New("no tasks selected")

	// ErrTaskNotFound is returned when a task id is not in the current view.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned for a dialog action that is not
	// allowed in the dialog's current state.
	ErrInvalidTransition = errors.New("invalid dialog transition")

	// ErrClosed is returned by a View after Close.
	ErrClosed = errors.New("view closed")
)

// BatchError reports a bulk operation that stopped at its first failure.
// Writes applied before the failure are not rolled back.
type BatchError struct {
	Op      string
	ID      string
	Applied int
	Total   int
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s task %s: %v (%d of %d applied)", e.Op, e.ID, e.Err, e.Applied, e.Total)
}

func (e *BatchError) Unwrap() error { return e.Err }
