package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"intranet/internal/config"
	"intranet/internal/exitcode"
	"intranet/internal/output"
	"intranet/internal/service"
	"intranet/internal/webparts"
)

func init() {
	Register(&NewsCmd{})
	Register(&CarouselCmd{})
	Register(&EventsCmd{})
	Register(&HeroCmd{})
	Register(&TrendingCmd{})
}

// NewsCmd implements the news command.
type NewsCmd struct {
	category    string
	max         int
	getInvolved bool
}

func (c *NewsCmd) Name() string      { return "news" }
func (c *NewsCmd) Aliases() []string { return nil }
func (c *NewsCmd) Synopsis() string  { return "Show news" }
func (c *NewsCmd) Usage() string {
	return "intranet news [--category <name>] [--max <n>] [--get-involved [tag]]"
}
func (c *NewsCmd) NeedsBackend() bool { return true }

func (c *NewsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.IntVar(&c.max, "max", 0, "")
	fs.BoolVar(&c.getInvolved, "get-involved", false, "")
}

func (c *NewsCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	if c.max < 0 {
		fmt.Fprintf(errOut, "error: invalid max: %d\n", c.max)
		return exitcode.UserError
	}

	if c.getInvolved {
		item, err := app.Feeds.GetInvolved(ctx, strings.Join(args, " "))
		if err != nil {
			return reportError(errOut, err)
		}
		if item == nil {
			return empty(cfg, out, "no news found")
		}
		output.FormatNews(out, *item)
		return exitcode.Success
	}

	var (
		items []service.News
		err   error
	)
	if c.category != "" {
		items, err = app.Feeds.NewsByCategory(ctx, c.category, c.max)
	} else {
		items, err = app.Feeds.NewsList(ctx, c.max)
	}
	if err != nil {
		return reportError(errOut, err)
	}
	if len(items) == 0 {
		return empty(cfg, out, "no news found")
	}
	for _, n := range items {
		output.FormatNews(out, n)
	}
	return exitcode.Success
}

// CarouselCmd implements the carousel command.
type CarouselCmd struct {
	max int
}

func (c *CarouselCmd) Name() string       { return "carousel" }
func (c *CarouselCmd) Aliases() []string  { return nil }
func (c *CarouselCmd) Synopsis() string   { return "Show the most viewed stories" }
func (c *CarouselCmd) Usage() string      { return "intranet carousel [--max <n>]" }
func (c *CarouselCmd) NeedsBackend() bool { return true }

func (c *CarouselCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.max, "max", 0, "")
}

func (c *CarouselCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	items, err := app.Feeds.Carousel(ctx, c.max)
	if err != nil {
		return reportError(errOut, err)
	}
	if len(items) == 0 {
		return empty(cfg, out, "no stories found")
	}
	for _, n := range items {
		output.FormatCarouselItem(out, n)
	}
	return exitcode.Success
}

// EventsCmd implements the events command.
type EventsCmd struct {
	all bool
}

func (c *EventsCmd) Name() string       { return "events" }
func (c *EventsCmd) Aliases() []string  { return nil }
func (c *EventsCmd) Synopsis() string   { return "Show upcoming events" }
func (c *EventsCmd) Usage() string      { return "intranet events [--all]" }
func (c *EventsCmd) NeedsBackend() bool { return true }

func (c *EventsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
}

func (c *EventsCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	events, err := app.Feeds.Events(ctx)
	if err != nil {
		return reportError(errOut, err)
	}
	if !c.all {
		events = webparts.Upcoming(events)
	}
	if len(events) == 0 {
		return empty(cfg, out, "no events found")
	}
	for _, e := range events {
		output.FormatEvent(out, e)
	}
	return exitcode.Success
}

// HeroCmd implements the hero command.
type HeroCmd struct {
	layer string
}

func (c *HeroCmd) Name() string       { return "hero" }
func (c *HeroCmd) Aliases() []string  { return nil }
func (c *HeroCmd) Synopsis() string   { return "Show the hero section" }
func (c *HeroCmd) Usage() string      { return "intranet hero [--layer <tile-type>]" }
func (c *HeroCmd) NeedsBackend() bool { return true }

func (c *HeroCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.layer, "layer", "", "")
}

func (c *HeroCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	if c.layer != "" {
		item, err := app.Feeds.HeroLayer(ctx, c.layer)
		if err != nil {
			return reportError(errOut, err)
		}
		if item == nil {
			return empty(cfg, out, "no hero content found")
		}
		output.FormatHero(out, webparts.HeroLayout{Main: item})
		return exitcode.Success
	}

	layout, err := app.Feeds.Hero(ctx, 0)
	if err != nil {
		return reportError(errOut, err)
	}
	if layout.Main == nil && len(layout.Tiles) == 0 {
		return empty(cfg, out, "no hero content found")
	}
	output.FormatHero(out, layout)
	return exitcode.Success
}

// TrendingCmd implements the trending command.
type TrendingCmd struct {
	max int
}

func (c *TrendingCmd) Name() string       { return "trending" }
func (c *TrendingCmd) Aliases() []string  { return nil }
func (c *TrendingCmd) Synopsis() string   { return "Show trending content" }
func (c *TrendingCmd) Usage() string      { return "intranet trending [--max <n>]" }
func (c *TrendingCmd) NeedsBackend() bool { return true }

func (c *TrendingCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.max, "max", 0, "")
}

func (c *TrendingCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	cards, err := app.Feeds.Trending(ctx, c.max)
	if err != nil {
		return reportError(errOut, err)
	}
	if len(cards) == 0 {
		return empty(cfg, out, "nothing trending")
	}
	for _, card := range cards {
		output.FormatTrending(out, card)
	}
	return exitcode.Success
}

func empty(cfg *config.Config, out io.Writer, msg string) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, msg)
	}
	return exitcode.Success
}
