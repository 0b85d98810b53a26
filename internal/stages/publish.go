package stages

import (
	"context"
	"fmt"

	"github.com/vk/shipline/internal/config"
	"github.com/vk/shipline/internal/ctxlog"
	"github.com/vk/shipline/internal/matrix"
	"github.com/vk/shipline/internal/packstep"
	"github.com/vk/shipline/internal/pipeline"
)

// publishStage is the per-cell stage sequence of the matrix group:
// fetch the shared upload URL, build, package, upload. A failure aborts
// the rest of this cell's sequence only; sibling cells are scheduled
// independently and keep running.
func publishStage(env *Env, _ *config.StageGroup, cell *matrix.Cell) pipeline.HandlerFunc {
	return func(ctx context.Context, node *pipeline.Node) error {
		logger := ctxlog.FromContext(ctx).With("stage", node.ID)
		logger.Info("▶️ Publishing cell", "cell", cell.ID())

		var (
			uploadURL  string
			binaryPath string
			asset      *packstep.Asset
		)

		sequence := []matrix.Stage{
			{
				Name: "fetch-upload-url",
				Run: func(ctx context.Context, _ *matrix.Cell) error {
					payload, err := env.Store.Get(ctx, UploadURLKey)
					if err != nil {
						return err
					}
					uploadURL = string(payload)
					return nil
				},
			},
			{
				Name: "build",
				Run: func(ctx context.Context, c *matrix.Cell) error {
					var err error
					binaryPath, err = env.Builder.Build(ctx, c)
					return err
				},
			},
			{
				Name: "package",
				Run: func(ctx context.Context, c *matrix.Cell) error {
					var err error
					asset, err = env.Packager.Package(ctx, c, binaryPath)
					return err
				},
			},
			{
				Name: "upload-asset",
				Run: func(ctx context.Context, _ *matrix.Cell) error {
					return env.Remote.UploadAsset(ctx, uploadURL,
						asset.ArchivePath, asset.Name, asset.ContentType)
				},
			},
		}

		result := matrix.RunCell(ctx, cell, sequence)
		for _, outcome := range result.Stages {
			env.Recorder.Record(node.ID, outcome.Name, outcome.Err)
		}
		if err := result.Err(); err != nil {
			return fmt.Errorf("publish: %w", err)
		}

		logger.Info("✅ Cell published", "asset", asset.Name)
		return nil
	}
}
