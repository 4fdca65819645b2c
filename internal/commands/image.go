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
	Register(&ImageCmd{})
}

// ImageCmd implements the image command: it prints the resolved form of
// an image reference.
type ImageCmd struct {
	fallback string
}

func (c *ImageCmd) Name() string       { return "image" }
func (c *ImageCmd) Aliases() []string  { return nil }
func (c *ImageCmd) Synopsis() string   { return "Resolve an image reference" }
func (c *ImageCmd) Usage() string      { return "intranet image [--fallback <ref>] [ref]" }
func (c *ImageCmd) NeedsBackend() bool { return false }

func (c *ImageCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.fallback, "fallback", "", "")
}

func (c *ImageCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintln(errOut, "error: at most one image reference allowed")
		return exitcode.UserError
	}
	ref := ""
	if len(args) == 1 {
		ref = args[0]
	}
	fmt.Fprintln(out, Images(cfg).Resolve(ref, c.fallback))
	return exitcode.Success
}
