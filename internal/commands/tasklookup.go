package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"intranet/internal/backend/connector"
	"intranet/internal/exitcode"
	"intranet/internal/service"
	"intranet/internal/taskview"
)

// findTask returns the task with the given id from the current list.
func findTask(ctx context.Context, app *App, id string) (service.Task, error) {
	tasks, err := app.Tasks.List(ctx)
	if err != nil {
		return service.Task{}, err
	}
	i := slices.IndexFunc(tasks, func(t service.Task) bool { return t.ID.String() == id })
	if i < 0 {
		return service.Task{}, fmt.Errorf("%w: %s", taskview.ErrTaskNotFound, id)
	}
	return tasks[i], nil
}

// reportError prints err and returns the matching exit code.
func reportError(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, taskview.ErrAssigneeNotValidated):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.ValidationError
	case errors.Is(err, taskview.ErrTitleRequired),
		errors.Is(err, taskview.ErrNoSelection),
		errors.Is(err, taskview.ErrNoAssignee),
		errors.Is(err, taskview.ErrTaskNotFound):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, connector.ErrUnauthorized):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

// assignees turns an --assign value into the picker selection.
func assignees(email string) []service.CandidateUser {
	if email == "" {
		return nil
	}
	return []service.CandidateUser{{Mail: email}}
}
