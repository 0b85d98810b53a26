package config

import "context"

// Loader turns a pipeline definition file into the format-agnostic Model.
// The concrete HCL implementation lives in internal/hcldef; keeping the
// interface here lets the app stay agnostic to the definition format.
type Loader interface {
	Load(ctx context.Context, path string) (*Model, error)
}
