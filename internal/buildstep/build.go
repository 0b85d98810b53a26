// Package buildstep invokes the external compiler for one matrix cell.
// Compiler failures are almost always deterministic and source-level, so
// they are never retried; a failed build is fatal to the owning cell only.
package buildstep

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/shipline/internal/ctxlog"
	"github.com/vk/shipline/internal/matrix"
)

var commandContext = exec.CommandContext

const defaultTimeout = 15 * time.Minute

// Error is the non-retried failure kind for external build invocations.
type Error struct {
	Cell string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("build %s: %v", e.Cell, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Config captures the external build invocation.
type Config struct {
	Command   string   // compiler command, e.g. "cargo"
	BaseFlags []string // fixed flags, e.g. --release --no-default-features
	Features  []string // fixed feature set compiled into every cell
	OutputDir string   // root output directory; every cell builds into its own subdirectory
	Binary    string   // produced binary name
	Timeout   time.Duration
}

// Builder runs the external build for individual cells.
type Builder struct {
	cfg Config
}

// New constructs a Builder, applying defaults for unset fields.
func New(cfg Config) *Builder {
	if cfg.Command == "" {
		cfg.Command = "cargo"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Builder{cfg: cfg}
}

// FeatureSet derives the feature flags for a cell: the fixed feature set
// extended by the cell's engine when one is declared. The result is
// deterministic for a given cell.
func (b *Builder) FeatureSet(cell *matrix.Cell) []string {
	features := make([]string, 0, len(b.cfg.Features)+1)
	features = append(features, b.cfg.Features...)
	if engine, ok := cell.Value("engine"); ok {
		features = append(features, engine)
	}
	return features
}

// Build invokes the external compiler for the cell and returns the path of
// the produced binary. Any non-zero exit surfaces as *Error.
//
// Each cell is directed into its own target directory: concurrent cells
// compile with different feature sets, and a shared output path would let
// one cell archive a binary its sibling just overwrote.
func (b *Builder) Build(ctx context.Context, cell *matrix.Cell) (string, error) {
	logger := ctxlog.FromContext(ctx).With("cell", cell.ID())

	cellDir := filepath.Join(b.cfg.OutputDir, cell.ID())
	args := append([]string{"build"}, b.cfg.BaseFlags...)
	args = append(args, "--features", strings.Join(b.FeatureSet(cell), " "))
	args = append(args, "--target-dir", cellDir)

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	logger.Debug("Invoking external build.", "command", b.cfg.Command, "args", args)
	cmd := commandContext(ctx, b.cfg.Command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &Error{Cell: cell.ID(), Err: fmt.Errorf("%s %s: %w: %s",
			b.cfg.Command, strings.Join(args, " "), err, firstLine(out))}
	}

	binary := filepath.Join(cellDir, b.cfg.Binary)
	logger.Debug("External build finished.", "binary", binary)
	return binary, nil
}

// firstLine trims command output down to something fit for an error message.
func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
