// Package packstep archives a built binary into a single distributable
// asset. Archiving strategy is selected per platform from a closed dispatch
// table: adding a platform means adding one table entry. Failures are fatal
// to the owning cell and never retried.
package packstep

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/shipline/internal/ctxlog"
	"github.com/vk/shipline/internal/matrix"
)

var (
	commandContext = exec.CommandContext
	lookPath       = exec.LookPath
)

const defaultTimeout = 5 * time.Minute

// Error is the non-retried failure kind for archiving.
type Error struct {
	Cell string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("package %s: %v", e.Cell, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Asset is a packaged binary ready to be attached to a release record.
type Asset struct {
	Cell        *matrix.Cell
	ArchivePath string
	Name        string
	ContentType string
}

// archiver describes one platform's external archiving tool invocation.
type archiver struct {
	tool string
	args func(archivePath, binaryPath string) []string
}

// archivers is the closed per-platform dispatch table.
var archivers = map[string]archiver{
	"windows": {
		tool: "7z",
		args: func(archivePath, binaryPath string) []string {
			return []string{"a", archivePath, binaryPath}
		},
	},
	"linux": {
		tool: "zip",
		args: func(archivePath, binaryPath string) []string {
			return []string{"-j", archivePath, binaryPath}
		},
	},
	"macos": {
		tool: "zip",
		args: func(archivePath, binaryPath string) []string {
			return []string{"-j", archivePath, binaryPath}
		},
	},
}

// SupportedOS reports whether the platform has an archiving strategy.
func SupportedOS(os string) bool {
	_, ok := archivers[os]
	return ok
}

// AssetName derives the asset file name from the cell's dimensions. It is a
// pure function: the same inputs always yield the same name.
// Form: <binary>-<tag>-<os>[-<engine>]-<arch>.zip
func AssetName(binary, tag string, cell *matrix.Cell, arch string) string {
	osLabel, _ := cell.Value("os")
	parts := []string{binary, tag, osLabel}
	if engine, ok := cell.Value("engine"); ok {
		parts = append(parts, engine)
	}
	parts = append(parts, arch)
	return strings.Join(parts, "-") + ".zip"
}

// Config captures the packaging inputs shared by every cell.
type Config struct {
	Binary  string // binary name used in asset names
	Tag     string // release tag used in asset names
	Arch    string // architecture label used in asset names
	OutDir  string // directory archives are written to
	Timeout time.Duration
}

// Packager archives built binaries for individual cells.
type Packager struct {
	cfg Config
}

// New constructs a Packager, applying defaults for unset fields.
func New(cfg Config) *Packager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Packager{cfg: cfg}
}

// Package archives the cell's built binary into a single compressed asset.
func (p *Packager) Package(ctx context.Context, cell *matrix.Cell, binaryPath string) (*Asset, error) {
	logger := ctxlog.FromContext(ctx).With("cell", cell.ID())

	osLabel, ok := cell.Value("os")
	if !ok {
		return nil, &Error{Cell: cell.ID(), Err: fmt.Errorf("cell has no os dimension")}
	}
	arch, ok := archivers[osLabel]
	if !ok {
		return nil, &Error{Cell: cell.ID(), Err: fmt.Errorf("no archiver for platform %q", osLabel)}
	}
	if _, err := lookPath(arch.tool); err != nil {
		return nil, &Error{Cell: cell.ID(), Err: fmt.Errorf("archiver %q not found: %w", arch.tool, err)}
	}
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, &Error{Cell: cell.ID(), Err: fmt.Errorf("binary missing: %w", err)}
	}

	name := AssetName(p.cfg.Binary, p.cfg.Tag, cell, p.cfg.Arch)
	archivePath := filepath.Join(p.cfg.OutDir, name)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	logger.Debug("Invoking archiver.", "tool", arch.tool, "archive", archivePath)
	cmd := commandContext(ctx, arch.tool, arch.args(archivePath, binaryPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, &Error{Cell: cell.ID(), Err: fmt.Errorf("%s failed: %w: %s", arch.tool, err, out)}
	}

	return &Asset{
		Cell:        cell,
		ArchivePath: archivePath,
		Name:        name,
		ContentType: "application/zip",
	}, nil
}
