// Package hcldef is the HCL implementation of config.Loader: it parses a
// pipeline definition file and translates it into the agnostic model.
package hcldef

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shipline/internal/config"
	"github.com/vk/shipline/internal/ctxlog"
	"github.com/vk/shipline/internal/matrix"
	"github.com/vk/shipline/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL pipeline definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the pipeline definition file, applies defaults, and validates
// the resulting model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, config.Errorf("failed to parse %s: %s", path, diags.Error())
	}

	var root schema.PipelineConfig
	if diags := gohcl.DecodeBody(hclFile.Body, evalContext(), &root); diags.HasErrors() {
		return nil, config.Errorf("failed to decode %s: %s", path, diags.Error())
	}

	model, err := translate(&root)
	if err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Pipeline definition loaded.",
		"stages", len(model.Stages), "dimensions", len(model.Matrix))
	return model, nil
}

// evalContext exposes process environment variables to the definition file
// as the `env` object, so endpoints and tokens need not be hardcoded:
//
//	base_url = env.SHIPLINE_API
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			vars[key] = cty.StringVal(value)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

// translate converts the HCL schema into the agnostic model, filling in
// defaults for everything the file leaves unset.
func translate(root *schema.PipelineConfig) (*config.Model, error) {
	if root.Pipeline == nil {
		return nil, config.Errorf("missing pipeline block")
	}
	if root.Remote == nil {
		return nil, config.Errorf("missing remote block")
	}

	model := &config.Model{
		Pipeline: config.PipelineSettings{
			Binary:     root.Pipeline.Binary,
			Arch:       "x86_64",
			Prerelease: true,
		},
		Build: config.BuildSettings{
			Command:   "cargo",
			BaseFlags: []string{"--release", "--no-default-features"},
			Features:  []string{"bin", "manifest", "lattice"},
			OutputDir: "target/release",
		},
		Remote: config.RemoteSettings{
			BaseURL:       root.Remote.BaseURL,
			RetryAttempts: 3,
			ArtifactStore: "memory",
		},
		Registry: config.RegistrySettings{
			Command: "cargo",
			Args:    []string{"publish", "--no-verify"},
		},
	}

	if root.Pipeline.Arch != "" {
		model.Pipeline.Arch = root.Pipeline.Arch
	}
	if root.Pipeline.Draft != nil {
		model.Pipeline.Draft = *root.Pipeline.Draft
	}
	if root.Pipeline.Prerelease != nil {
		model.Pipeline.Prerelease = *root.Pipeline.Prerelease
	}

	if b := root.Build; b != nil {
		if b.Command != "" {
			model.Build.Command = b.Command
		}
		if b.BaseFlags != nil {
			model.Build.BaseFlags = b.BaseFlags
		}
		if b.Features != nil {
			model.Build.Features = b.Features
		}
		if b.Output != "" {
			model.Build.OutputDir = b.Output
		}
		d, err := parseDuration("build timeout", b.Timeout)
		if err != nil {
			return nil, err
		}
		model.Build.Timeout = d
	}

	if root.Remote.RetryAttempts != nil {
		if *root.Remote.RetryAttempts < 0 {
			return nil, config.Errorf("remote retry_attempts must not be negative")
		}
		model.Remote.RetryAttempts = *root.Remote.RetryAttempts
	}
	if root.Remote.ArtifactStore != "" {
		model.Remote.ArtifactStore = root.Remote.ArtifactStore
	}
	d, err := parseDuration("remote retry_wait", root.Remote.RetryWait)
	if err != nil {
		return nil, err
	}
	model.Remote.RetryWait = d
	d, err = parseDuration("remote timeout", root.Remote.Timeout)
	if err != nil {
		return nil, err
	}
	model.Remote.Timeout = d

	if r := root.Registry; r != nil {
		if r.Command != "" {
			model.Registry.Command = r.Command
		}
		if r.Args != nil {
			model.Registry.Args = r.Args
		}
		d, err := parseDuration("registry timeout", r.Timeout)
		if err != nil {
			return nil, err
		}
		model.Registry.Timeout = d
	}

	if root.Matrix != nil {
		for _, dim := range root.Matrix.Dimensions {
			model.Matrix = append(model.Matrix, matrix.Dimension{
				Name:   dim.Name,
				Values: dim.Values,
			})
		}
	}

	for _, s := range root.Stages {
		model.Stages = append(model.Stages, &config.StageGroup{
			Type:      s.Type,
			Name:      s.Name,
			Matrix:    s.Matrix,
			DependsOn: s.DependsOn,
		})
	}

	return model, nil
}

// parseDuration parses an optional duration string from the definition file.
func parseDuration(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, config.Errorf("%s: invalid duration %q", field, raw)
	}
	if d < 0 {
		return 0, config.Errorf("%s: negative duration %q", field, raw)
	}
	return d, nil
}
