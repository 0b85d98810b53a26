package config

import "fmt"

// Error is a pipeline configuration error: a malformed definition, an
// undeclared dependency, a dependency cycle. It is always raised at load
// or graph-construction time, never during execution.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "pipeline configuration: " + e.Reason }

// Errorf builds a configuration Error from a format string.
func Errorf(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}
