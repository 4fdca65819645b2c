package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"intranet/internal/config"
	"intranet/internal/exitcode"
)

func init() {
	Register(&HelpCmd{registry: DefaultRegistry})
}

// HelpCmd implements the help command. It lists the usage of every
// command in its registry.
type HelpCmd struct {
	registry *Registry
}

// NewHelpCmd creates a help command over registry.
func NewHelpCmd(registry *Registry) *HelpCmd {
	return &HelpCmd{registry: registry}
}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "intranet help" }
func (c *HelpCmd) NeedsBackend() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	fmt.Fprintln(out, "Usage:")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  intranet\tList tasks\n")
	for _, cmd := range c.registry.All() {
		usage := cmd.Usage()
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			usage += "  (alias: " + strings.Join(aliases, ", ") + ")"
		}
		fmt.Fprintf(tw, "  %s\t%s\n", usage, cmd.Synopsis())
	}
	tw.Flush()

	fmt.Fprint(out, helpFooter)
	return exitcode.Success
}

const helpFooter = `
Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Exit codes:
  0 ok, 1 usage error, 2 auth or config error, 3 backend error,
  4 assignee not found in the directory
`
