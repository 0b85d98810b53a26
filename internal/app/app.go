// Package app is the composition root: it loads the pipeline definition,
// wires the stage environment, and runs the graph.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/shipline/internal/artifact"
	"github.com/vk/shipline/internal/config"
	"github.com/vk/shipline/internal/ctxlog"
	"github.com/vk/shipline/internal/remote"
	"github.com/vk/shipline/internal/stages"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	model  *config.Model

	// Optional overrides, primarily for tests; nil fields are wired from
	// the model in Run.
	remoteSvc remote.Service
	store     artifact.Store
	builder   stages.Builder
	packager  stages.Packager
	registrar stages.Registrar
	registry  *stages.Registry
}

// Option overrides one of the app's collaborators.
type Option func(*App)

// WithRemoteService replaces the HTTP release service client.
func WithRemoteService(svc remote.Service) Option {
	return func(a *App) { a.remoteSvc = svc }
}

// WithStore replaces the artifact store.
func WithStore(store artifact.Store) Option {
	return func(a *App) { a.store = store }
}

// WithBuilder replaces the external build invoker.
func WithBuilder(b stages.Builder) Option {
	return func(a *App) { a.builder = b }
}

// WithPackager replaces the external archiver invoker.
func WithPackager(p stages.Packager) Option {
	return func(a *App) { a.packager = p }
}

// WithRegistrar replaces the registry publish command.
func WithRegistrar(r stages.Registrar) Option {
	return func(a *App) { a.registrar = r }
}

// WithStageRegistry replaces the built-in stage type registry.
func WithStageRegistry(r *stages.Registry) Option {
	return func(a *App) { a.registry = r }
}

// NewApp is the constructor for the main application. It loads and
// validates the pipeline definition; a failure to do so is a fatal startup
// error and panics (recovered at the entrypoint for a clean message).
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline definition: %w", err))
	}
	logger.Debug("Pipeline definition loaded and translated into unified model.")

	a := &App{
		outW:   outW,
		logger: logger,
		model:  model,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Model returns the loaded pipeline model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
