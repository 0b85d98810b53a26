package config

import (
	"time"

	"github.com/vk/shipline/internal/matrix"
)

// Model is the unified, format-agnostic representation of a pipeline
// definition: what to release, how to build it, where to upload it, and
// the stage graph to run.
type Model struct {
	Pipeline PipelineSettings
	Build    BuildSettings
	Remote   RemoteSettings
	Registry RegistrySettings
	Matrix   []matrix.Dimension
	Stages   []*StageGroup
}

// PipelineSettings identifies the released binary and the release state it
// is created in. Releases are only ever created; finalization is an
// explicit external action outside this tool.
type PipelineSettings struct {
	Binary     string
	Arch       string
	Draft      bool
	Prerelease bool
}

// BuildSettings captures the external compiler invocation.
type BuildSettings struct {
	Command   string
	BaseFlags []string
	Features  []string
	OutputDir string
	Timeout   time.Duration
}

// RemoteSettings captures the hosting platform endpoint and retry policy.
type RemoteSettings struct {
	BaseURL       string
	RetryAttempts int
	RetryWait     time.Duration
	Timeout       time.Duration
	ArtifactStore string // "memory" or "remote"
}

// RegistrySettings captures the final package-registry publish command.
type RegistrySettings struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// StageGroup is one declared stage: either a single execution unit or,
// when Matrix is set, a group fanned out over every matrix cell.
type StageGroup struct {
	Type      string
	Name      string
	Matrix    bool
	DependsOn []string
}

// ID returns the stage group's unique identifier, e.g. "release.create".
func (s *StageGroup) ID() string { return s.Type + "." + s.Name }
