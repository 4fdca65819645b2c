package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"intranet/internal/config"
	"intranet/internal/exitcode"
)

func init() {
	Register(&AssignCmd{})
}

// AssignCmd implements the assign command.
type AssignCmd struct {
	to string
}

// SetTo sets the assignee email (for testing).
func (c *AssignCmd) SetTo(email string) {
	c.to = email
}

func (c *AssignCmd) Name() string       { return "assign" }
func (c *AssignCmd) Aliases() []string  { return nil }
func (c *AssignCmd) Synopsis() string   { return "Assign tasks to a person" }
func (c *AssignCmd) Usage() string      { return "intranet assign --to <email> <ids...>" }
func (c *AssignCmd) NeedsBackend() bool { return true }

func (c *AssignCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.to, "to", "", "")
}

func (c *AssignCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	ids, err := ParseTaskRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if c.to == "" {
		fmt.Fprintln(errOut, "error: assignee required (--to <email>)")
		return exitcode.UserError
	}

	n, err := app.Tasks.Assign(ctx, ids, assignees(c.to))
	if err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok %d assigned\n", n)
	}
	return exitcode.Success
}
