package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"intranet/internal/config"
	"intranet/internal/directory"
	"intranet/internal/exitcode"
	"intranet/internal/output"
)

func init() {
	Register(&PeopleCmd{})
}

// PeopleCmd implements the people command.
type PeopleCmd struct{}

func (c *PeopleCmd) Name() string       { return "people" }
func (c *PeopleCmd) Aliases() []string  { return []string{"users"} }
func (c *PeopleCmd) Synopsis() string   { return "Search the directory" }
func (c *PeopleCmd) Usage() string      { return "intranet people <query...>" }
func (c *PeopleCmd) NeedsBackend() bool { return true }

func (c *PeopleCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PeopleCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	query := strings.TrimSpace(strings.Join(args, " "))
	if len([]rune(query)) < directory.MinSearchLength {
		fmt.Fprintf(errOut, "error: query must be at least %d characters\n", directory.MinSearchLength)
		return exitcode.UserError
	}

	users, err := app.People.Search(ctx, query)
	if err != nil {
		return reportError(errOut, err)
	}
	if len(users) == 0 {
		return empty(cfg, out, "no people found")
	}
	for _, u := range users {
		output.FormatUser(out, u)
	}
	return exitcode.Success
}
