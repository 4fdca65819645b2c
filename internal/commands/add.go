package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"intranet/internal/config"
	"intranet/internal/exitcode"
	"intranet/internal/service"
	"intranet/internal/taskview"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	priority    string
	assign      string
}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Create a task" }
func (c *AddCmd) Usage() string      { return "intranet add [-d <text>] [--priority <p>] [--assign <email>] <title...>" }
func (c *AddCmd) NeedsBackend() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.assign, "assign", "", "")
}

// SetAssign sets the assignee email (for testing).
func (c *AddCmd) SetAssign(email string) {
	c.assign = email
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	form := taskview.NewForm()
	form.Title = title
	form.Description = c.description
	form.Assignees = assignees(c.assign)
	if c.priority != "" {
		p, err := service.ParsePriority(c.priority)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		form.Priority = p
	}

	task, err := app.Tasks.Create(ctx, form)
	if err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok %s\n", task.ID)
	}
	return exitcode.Success
}
