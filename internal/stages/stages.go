// Package stages wires the pipeline's stage types to their handlers: the
// release-creation stage, the matrix publish stage, and the final
// package-registry publish. Stage types declared in the definition file
// are resolved against the registry at graph construction, so an unknown
// type is a configuration error, not a runtime one.
package stages

import (
	"context"

	"github.com/vk/shipline/internal/artifact"
	"github.com/vk/shipline/internal/config"
	"github.com/vk/shipline/internal/matrix"
	"github.com/vk/shipline/internal/packstep"
	"github.com/vk/shipline/internal/pipeline"
	"github.com/vk/shipline/internal/remote"
	"github.com/vk/shipline/internal/report"
)

// UploadURLKey is the artifact name under which the release stage
// publishes the upload URL for every downstream cell to fetch.
const UploadURLKey = "release-upload-url"

// Builder produces a local binary for one matrix cell.
type Builder interface {
	Build(ctx context.Context, cell *matrix.Cell) (string, error)
}

// Packager archives a built binary into a release asset.
type Packager interface {
	Package(ctx context.Context, cell *matrix.Cell, binaryPath string) (*packstep.Asset, error)
}

// Registrar publishes the package to the language registry.
type Registrar interface {
	PublishPackage(ctx context.Context) error
}

// Env carries the collaborators every stage handler may need.
type Env struct {
	Model     *config.Model
	Tag       string
	Remote    remote.Service
	Store     artifact.Store
	Builder   Builder
	Packager  Packager
	Registrar Registrar
	Recorder  *report.Recorder
}

// Factory builds the handler for one node of a stage group. Cell is nil
// for non-matrix groups.
type Factory func(env *Env, group *config.StageGroup, cell *matrix.Cell) pipeline.HandlerFunc

// Registry maps stage types to handler factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a stage type to its handler factory.
func (r *Registry) Register(stageType string, f Factory) {
	r.factories[stageType] = f
}

// Core returns a registry with the built-in stage types registered.
func Core() *Registry {
	r := NewRegistry()
	r.Register("release", releaseStage)
	r.Register("publish", publishStage)
	r.Register("registry", registryStage)
	return r
}

// BuildSpecs expands the model's stage groups into node specs: matrix
// groups fan out into one node per cell, everything else maps one-to-one.
func BuildSpecs(env *Env, reg *Registry, cells []*matrix.Cell) ([]pipeline.NodeSpec, error) {
	var specs []pipeline.NodeSpec
	for _, group := range env.Model.Stages {
		factory, ok := reg.factories[group.Type]
		if !ok {
			return nil, config.Errorf("unknown stage type %q", group.Type)
		}
		if !group.Matrix {
			specs = append(specs, pipeline.NodeSpec{
				ID:              group.ID(),
				Group:           group.ID(),
				DependsOnGroups: group.DependsOn,
				Run:             factory(env, group, nil),
			})
			continue
		}
		if len(cells) == 0 {
			return nil, config.Errorf("matrix stage %q declared but the matrix expands to no cells", group.ID())
		}
		for _, cell := range cells {
			specs = append(specs, pipeline.NodeSpec{
				ID:              group.ID() + "[" + cell.ID() + "]",
				Group:           group.ID(),
				Cell:            cell,
				DependsOnGroups: group.DependsOn,
				Run:             factory(env, group, cell),
			})
		}
	}
	return specs, nil
}
