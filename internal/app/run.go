package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/shipline/internal/artifact"
	"github.com/vk/shipline/internal/buildstep"
	"github.com/vk/shipline/internal/ctxlog"
	"github.com/vk/shipline/internal/matrix"
	"github.com/vk/shipline/internal/packstep"
	"github.com/vk/shipline/internal/pipeline"
	"github.com/vk/shipline/internal/remote"
	"github.com/vk/shipline/internal/report"
	"github.com/vk/shipline/internal/stages"
)

// Run executes the release pipeline described by the loaded model.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	cells := matrix.Expand(a.model.Matrix)
	a.logger.Debug("Matrix expanded.", "cell_count", len(cells))

	env, cleanup := a.buildEnv(appConfig)
	defer cleanup()

	reg := a.registry
	if reg == nil {
		reg = stages.Core()
	}
	specs, err := stages.BuildSpecs(env, reg, cells)
	if err != nil {
		return err
	}

	graph, err := pipeline.Build(ctx, specs)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	if appConfig.DryRun {
		fmt.Fprint(a.outW, a.renderPlan(graph, cells))
		return nil
	}

	a.logger.Info("🚀 Starting pipeline run...", "tag", appConfig.Tag, "cells", len(cells))
	exec := pipeline.NewExecutor(graph, appConfig.WorkerCount)
	result, runErr := exec.Run(ctx)
	a.logger.Info("🏁 Pipeline run finished.", "run_id", result.RunID, "success", result.Succeeded())

	fmt.Fprint(a.outW, report.Render(result, env.Recorder))

	if runErr != nil {
		return fmt.Errorf("pipeline failed: %w", runErr)
	}
	return nil
}

// buildEnv assembles the stage environment, honoring any overrides that
// were injected through options.
func (a *App) buildEnv(appConfig *Config) (*stages.Env, func()) {
	cleanup := func() {}

	svc := a.remoteSvc
	if svc == nil {
		client := remote.NewClient(a.model.Remote.BaseURL,
			remote.WithRetryMaxAttempts(a.model.Remote.RetryAttempts),
			remote.WithRetryBackoff(a.model.Remote.RetryWait, 0),
			remote.WithTimeout(a.model.Remote.Timeout),
			remote.WithAuthToken(appConfig.AuthToken),
		)
		cleanup = func() { _ = client.Close() }
		svc = client
	}

	store := a.store
	if store == nil {
		if a.model.Remote.ArtifactStore == "remote" {
			store = artifact.NewRemote(svc)
		} else {
			store = artifact.NewMemory()
		}
	}

	builder := a.builder
	if builder == nil {
		builder = buildstep.New(buildstep.Config{
			Command:   a.model.Build.Command,
			BaseFlags: a.model.Build.BaseFlags,
			Features:  a.model.Build.Features,
			OutputDir: a.model.Build.OutputDir,
			Binary:    a.model.Pipeline.Binary,
			Timeout:   a.model.Build.Timeout,
		})
	}

	packager := a.packager
	if packager == nil {
		packager = packstep.New(packstep.Config{
			Binary: a.model.Pipeline.Binary,
			Tag:    appConfig.Tag,
			Arch:   a.model.Pipeline.Arch,
			OutDir: a.model.Build.OutputDir,
		})
	}

	registrar := a.registrar
	if registrar == nil {
		registrar = stages.NewCommandRegistrar(a.model.Registry)
	}

	return &stages.Env{
		Model:     a.model,
		Tag:       appConfig.Tag,
		Remote:    svc,
		Store:     store,
		Builder:   builder,
		Packager:  packager,
		Registrar: registrar,
		Recorder:  report.NewRecorder(),
	}, cleanup
}

// renderPlan lists the nodes a run would schedule, without executing any.
func (a *App) renderPlan(graph *pipeline.Graph, cells []*matrix.Cell) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Planned pipeline: %d nodes, %d matrix cells\n", len(graph.Nodes), len(cells))
	for _, id := range graph.SortedIDs() {
		fmt.Fprintf(&sb, "  %s\n", id)
	}
	return sb.String()
}
