package config

// knownOS is the closed set of platforms a cell may target. It mirrors the
// per-platform archiver dispatch table.
var knownOS = map[string]struct{}{
	"linux":   {},
	"macos":   {},
	"windows": {},
}

// Validate checks the model for errors that must surface before any stage
// runs. Graph-level checks (cycles, undeclared dependencies) happen again
// at construction; duplicating the cheap ones here keeps failures early
// and messages close to the definition file.
func (m *Model) Validate() error {
	if m.Pipeline.Binary == "" {
		return Errorf("pipeline block must set binary")
	}
	if m.Remote.BaseURL == "" {
		return Errorf("remote block must set base_url")
	}
	switch m.Remote.ArtifactStore {
	case "memory", "remote":
	default:
		return Errorf("remote artifact_store must be \"memory\" or \"remote\", got %q", m.Remote.ArtifactStore)
	}

	seenDims := make(map[string]struct{}, len(m.Matrix))
	for _, dim := range m.Matrix {
		if dim.Name == "" {
			return Errorf("matrix dimension with empty name")
		}
		if _, dup := seenDims[dim.Name]; dup {
			return Errorf("duplicate matrix dimension %q", dim.Name)
		}
		seenDims[dim.Name] = struct{}{}
		if len(dim.Values) == 0 {
			return Errorf("matrix dimension %q has no values", dim.Name)
		}
		if dim.Name == "os" {
			for _, v := range dim.Values {
				if _, ok := knownOS[v]; !ok {
					return Errorf("unknown os %q in matrix (want linux, macos or windows)", v)
				}
			}
		}
	}

	if len(m.Stages) == 0 {
		return Errorf("no stages declared")
	}
	seenStages := make(map[string]struct{}, len(m.Stages))
	hasMatrixStage := false
	for _, s := range m.Stages {
		if s.Type == "" || s.Name == "" {
			return Errorf("stage with empty type or name")
		}
		if _, dup := seenStages[s.ID()]; dup {
			return Errorf("duplicate stage %q", s.ID())
		}
		seenStages[s.ID()] = struct{}{}
		if s.Matrix {
			hasMatrixStage = true
		}
	}
	for _, s := range m.Stages {
		for _, dep := range s.DependsOn {
			if _, ok := seenStages[dep]; !ok {
				return Errorf("stage %q depends on undeclared stage %q", s.ID(), dep)
			}
			if dep == s.ID() {
				return Errorf("stage %q depends on itself", s.ID())
			}
		}
	}

	if hasMatrixStage {
		if len(m.Matrix) == 0 {
			return Errorf("matrix stage declared but no matrix dimensions defined")
		}
		if _, ok := seenDims["os"]; !ok {
			return Errorf("matrix stages require an os dimension")
		}
	}
	return nil
}
