package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"intranet/internal/config"
	"intranet/internal/exitcode"
	"intranet/internal/httpapi"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string       { return "serve" }
func (c *ServeCmd) Aliases() []string  { return nil }
func (c *ServeCmd) Synopsis() string   { return "Serve the JSON API" }
func (c *ServeCmd) Usage() string      { return "intranet serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsBackend() bool { return true }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int {
	addr := c.addr
	if addr == "" {
		addr = cfg.Serve.Addr
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(errOut, "error: listen on %s: %v\n", addr, err)
		return exitcode.UserError
	}

	api := httpapi.New(app.Tasks, app.Feeds, app.People, app.Images, app.Logger)
	server := &http.Server{
		Handler:           api.Handler(cfg.Serve.AllowedOrigins),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	app.Logger.Info("serving", zap.String("addr", listener.Addr().String()))
	if !cfg.Quiet {
		fmt.Fprintf(out, "listening on %s\n", listener.Addr())
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Warn("shutdown", zap.Error(err))
		}
	}
	return exitcode.Success
}
