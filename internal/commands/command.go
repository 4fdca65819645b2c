// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"go.uber.org/zap"

	"intranet/internal/config"
	"intranet/internal/directory"
	"intranet/internal/imageref"
	"intranet/internal/listclient"
	"intranet/internal/querycache"
	"intranet/internal/service"
	"intranet/internal/taskview"
	"intranet/internal/webparts"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsBackend returns true if the command talks to the list backend.
	// Commands like help, version, image, login and logout return false.
	NeedsBackend() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided.
	// app is nil if NeedsBackend() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, app *App, args []string, out, errOut io.Writer) int
}

// App holds the services built on one backend for a single invocation.
type App struct {
	Cache  *querycache.Cache
	Tasks  *taskview.Service
	People *directory.Validator
	Feeds  *webparts.Feeds
	Images imageref.Resolver
	Logger *zap.Logger
}

// NewApp wires the cache, list clients and services over backend.
func NewApp(backend service.Backend, cfg *config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := querycache.New(CacheConfig(cfg), logger)
	images := Images(cfg)
	people := directory.NewValidator(listclient.NewUsers(backend, logger), cache, logger)
	return &App{
		Cache:  cache,
		Tasks:  taskview.NewService(listclient.NewTasks(backend, logger), people, cache, logger),
		People: people,
		Feeds:  webparts.New(backend, cache, images, logger),
		Images: images,
		Logger: logger,
	}
}

// Close waits for background cache fetches to settle.
func (a *App) Close() {
	a.Cache.Wait()
}

// CacheConfig derives the query cache settings from cfg: task and people
// queries use the task window, content feeds the content window.
func CacheConfig(cfg *config.Config) querycache.Config {
	qc := querycache.DefaultConfig()
	for ns := range qc.StaleTimes {
		qc.StaleTimes[ns] = cfg.Cache.ContentStaleTime
	}
	qc.StaleTimes[querycache.NamespaceTasks] = cfg.Cache.TaskStaleTime
	qc.StaleTimes[querycache.NamespaceSearchUsers] = cfg.Cache.TaskStaleTime
	qc.DefaultStaleTime = cfg.Cache.ContentStaleTime
	qc.Retry = cfg.Cache.Retry
	qc.RetryDelay = cfg.Cache.RetryDelay
	return qc
}

// Images returns the image resolver configured by cfg.
func Images(cfg *config.Config) imageref.Resolver {
	return imageref.Resolver{
		AssetsRoot: cfg.Images.AssetsRoot,
		BrandColor: cfg.Images.BrandColor,
		Label:      cfg.Images.Label,
	}
}
