package stages

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/vk/shipline/internal/config"
	"github.com/vk/shipline/internal/ctxlog"
	"github.com/vk/shipline/internal/matrix"
	"github.com/vk/shipline/internal/pipeline"
)

var commandContext = exec.CommandContext

const defaultRegistryTimeout = 10 * time.Minute

// registryStage publishes the package to the language registry. It is
// gated behind every publish cell: if any cell failed it is skipped, so a
// broken platform never ships a registry release.
func registryStage(env *Env, _ *config.StageGroup, _ *matrix.Cell) pipeline.HandlerFunc {
	return func(ctx context.Context, node *pipeline.Node) error {
		logger := ctxlog.FromContext(ctx).With("stage", node.ID)
		logger.Info("▶️ Publishing to package registry")

		err := env.Registrar.PublishPackage(ctx)
		env.Recorder.Record(node.ID, "registry-publish", err)
		if err != nil {
			return err
		}

		logger.Info("✅ Registry publish finished")
		return nil
	}
}

// CommandRegistrar publishes by invoking an external registry command,
// e.g. `cargo publish`. Command failures are deterministic and are not
// retried.
type CommandRegistrar struct {
	cfg config.RegistrySettings
}

// NewCommandRegistrar constructs a registrar from the model's settings.
func NewCommandRegistrar(cfg config.RegistrySettings) *CommandRegistrar {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRegistryTimeout
	}
	return &CommandRegistrar{cfg: cfg}
}

// PublishPackage runs the configured registry publish command.
func (r *CommandRegistrar) PublishPackage(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := commandContext(ctx, r.cfg.Command, r.cfg.Args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("registry publish %s: %w: %s", r.cfg.Command, err, out)
	}
	return nil
}
