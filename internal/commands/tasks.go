package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"intranet/internal/config"
	"intranet/internal/exitcode"
	"intranet/internal/output"
	"intranet/internal/taskview"
)

func init() {
	Register(&TasksCmd{})
}

// TasksCmd implements the tasks command.
// Handles both `intranet` (no args) and `intranet tasks [search...]`.
type TasksCmd struct {
	priority string
	now      func() time.Time
}

// SetPriority sets the priority filter (for testing).
func (c *TasksCmd) SetPriority(p string) {
	c.priority = p
}

// SetNow fixes the clock used for overdue marks (for testing).
func (c *TasksCmd) SetNow(now time.Time) {
	c.now = func() time.Time { return now }
}

func (c *TasksCmd) Name() string       { return "tasks" }
func (c *TasksCmd) Aliases() []string  { return []string{"list", "ls"} }
func (c *TasksCmd) Synopsis() string   { return "List tasks" }
func (c *TasksCmd) Usage() string      { return "intranet tasks [--priority <all|high|medium|low>] [search...]" }
func (c *TasksCmd) NeedsBackend() bool { return true }

func (c *TasksCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.priority, "priority", "all", "")
	fs.StringVar(&c.priority, "p", "all", "")
}

func (c *TasksCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	filter, err := taskview.ParsePriorityFilter(c.priority)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	tasks, err := app.Tasks.List(ctx)
	if err != nil {
		return reportError(errOut, err)
	}

	shown := taskview.FilterTasks(tasks, strings.Join(args, " "), filter)
	if len(shown) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	now := time.Now()
	if c.now != nil {
		now = c.now()
	}
	output.FormatTaskHeader(out)
	for _, t := range shown {
		output.FormatTask(out, t, now)
	}
	return exitcode.Success
}
