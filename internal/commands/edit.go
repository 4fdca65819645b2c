package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"intranet/internal/config"
	"intranet/internal/exitcode"
	"intranet/internal/taskview"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Title and description default to
// the stored values. The assignee is written on every edit: without
// --assign it is cleared.
type EditCmd struct {
	title       string
	description string
	assign      string
	flags       map[string]bool
}

func (c *EditCmd) Name() string       { return "edit" }
func (c *EditCmd) Aliases() []string  { return nil }
func (c *EditCmd) Synopsis() string   { return "Edit a task" }
func (c *EditCmd) Usage() string      { return "intranet edit [--title <t>] [-d <text>] [--assign <email>] <id>" }
func (c *EditCmd) NeedsBackend() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.flags = make(map[string]bool)
	fs.Func("title", "", c.setter("title", &c.title))
	fs.Func("description", "", c.setter("description", &c.description))
	fs.Func("d", "", c.setter("description", &c.description))
	fs.StringVar(&c.assign, "assign", "", "")
}

// Set assigns a flag value as if given on the command line (for testing).
func (c *EditCmd) Set(name, value string) {
	if c.flags == nil {
		c.flags = make(map[string]bool)
	}
	switch name {
	case "title":
		c.title = value
	case "description":
		c.description = value
	case "assign":
		c.assign = value
		return
	}
	c.flags[name] = true
}

func (c *EditCmd) setter(name string, dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		c.flags[name] = true
		return nil
	}
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: exactly one task id required")
		return exitcode.UserError
	}
	id := args[0]

	task, err := findTask(ctx, app, id)
	if err != nil {
		return reportError(errOut, err)
	}

	form := taskview.NewForm()
	form.Title = task.Title
	form.Description = task.Description
	if c.flags["title"] {
		form.Title = c.title
	}
	if c.flags["description"] {
		form.Description = c.description
	}
	form.Assignees = assignees(c.assign)

	if _, err := app.Tasks.Update(ctx, id, form); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
