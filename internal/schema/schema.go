// Package schema holds the HCL block structures of a pipeline definition
// file. These are the raw decode targets; the format-agnostic model lives
// in internal/config.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// Pipeline is the top-level `pipeline` block: what is being released.
type Pipeline struct {
	Binary     string `hcl:"binary"`
	Arch       string `hcl:"arch,optional"`
	Draft      *bool  `hcl:"draft,optional"`
	Prerelease *bool  `hcl:"prerelease,optional"`
}

// Build is the `build` block: the external compiler invocation.
type Build struct {
	Command   string   `hcl:"command,optional"`
	BaseFlags []string `hcl:"base_flags,optional"`
	Features  []string `hcl:"features,optional"`
	Output    string   `hcl:"output,optional"`
	Timeout   string   `hcl:"timeout,optional"`
}

// Remote is the `remote` block: the hosting platform's API endpoint and
// the retry policy for calls against it.
type Remote struct {
	BaseURL       string `hcl:"base_url"`
	RetryAttempts *int   `hcl:"retry_attempts,optional"`
	RetryWait     string `hcl:"retry_wait,optional"`
	Timeout       string `hcl:"timeout,optional"`
	ArtifactStore string `hcl:"artifact_store,optional"`
}

// Registry is the `registry` block: the final publish to a language
// package registry, invoked as an external command.
type Registry struct {
	Command string   `hcl:"command,optional"`
	Args    []string `hcl:"args,optional"`
	Timeout string   `hcl:"timeout,optional"`
}

// Dimension is one `dimension` block inside `matrix`.
type Dimension struct {
	Name   string   `hcl:"name,label"`
	Values []string `hcl:"values"`
}

// Matrix is the `matrix` block listing the build dimensions in declaration
// order. Declaration order is significant: it fixes cell expansion order.
type Matrix struct {
	Dimensions []*Dimension `hcl:"dimension,block"`
}

// Stage is a `stage` block. The two labels are the stage type (which picks
// the registered handler) and the instance name.
type Stage struct {
	Type      string   `hcl:"stage_type,label"`
	Name      string   `hcl:"stage_name,label"`
	Matrix    bool     `hcl:"matrix,optional"`
	DependsOn []string `hcl:"depends_on,optional"`
}

// PipelineConfig is the top-level structure of a pipeline definition file.
type PipelineConfig struct {
	Pipeline *Pipeline `hcl:"pipeline,block"`
	Build    *Build    `hcl:"build,block"`
	Remote   *Remote   `hcl:"remote,block"`
	Registry *Registry `hcl:"registry,block"`
	Matrix   *Matrix   `hcl:"matrix,block"`
	Stages   []*Stage  `hcl:"stage,block"`
	Body     hcl.Body  `hcl:",remain"`
}
