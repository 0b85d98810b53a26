package stages

import (
	"context"
	"fmt"

	"github.com/vk/shipline/internal/config"
	"github.com/vk/shipline/internal/ctxlog"
	"github.com/vk/shipline/internal/matrix"
	"github.com/vk/shipline/internal/pipeline"
)

// releaseStage creates the hosted release record and publishes its upload
// URL as a shared artifact. It runs exactly once per pipeline run, strictly
// before every publish cell.
func releaseStage(env *Env, _ *config.StageGroup, _ *matrix.Cell) pipeline.HandlerFunc {
	return func(ctx context.Context, node *pipeline.Node) error {
		logger := ctxlog.FromContext(ctx).With("stage", node.ID)
		logger.Info("▶️ Creating release", "tag", env.Tag)

		record, err := env.Remote.CreateRelease(ctx, env.Tag,
			env.Model.Pipeline.Draft, env.Model.Pipeline.Prerelease)
		if err != nil {
			env.Recorder.Record(node.ID, "create-release", err)
			return err
		}
		env.Recorder.Record(node.ID, "create-release", nil)

		if err := env.Store.Put(ctx, UploadURLKey, []byte(record.UploadURL)); err != nil {
			err = fmt.Errorf("publish upload url: %w", err)
			env.Recorder.Record(node.ID, "publish-upload-url", err)
			return err
		}
		env.Recorder.Record(node.ID, "publish-upload-url", nil)

		logger.Info("✅ Release created", "tag", record.Tag, "prerelease", record.Prerelease)
		return nil
	}
}
