// Package config defines the format-agnostic pipeline definition model,
// its validation rules, and the Loader interface concrete formats
// implement. Configuration problems are a distinct, construction-time
// failure kind: they are reported before anything executes.
package config
