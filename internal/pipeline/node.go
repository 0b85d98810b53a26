package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/vk/shipline/internal/matrix"
)

// Status is the lifecycle state of a node.
type Status int32

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// HandlerFunc is the work a node performs when all of its dependencies
// have succeeded.
type HandlerFunc func(ctx context.Context, node *Node) error

// NodeSpec declares one execution unit before graph construction: either a
// whole stage group, or a single matrix cell of one.
type NodeSpec struct {
	ID              string
	Group           string
	Cell            *matrix.Cell
	DependsOnGroups []string
	Run             HandlerFunc
}

// Node is a single vertex of the built graph.
type Node struct {
	ID    string
	Group string
	Cell  *matrix.Cell

	run        HandlerFunc
	deps       map[string]*Node
	dependents map[string]*Node

	// depCount reaches zero when every dependency has succeeded.
	depCount atomic.Int32
	state    atomic.Int32
	// err is written once by the worker or skip pass that moves the node
	// to a terminal state, and read only after the run completes.
	err error
}

// Status returns the node's current lifecycle state.
func (n *Node) Status() Status { return Status(n.state.Load()) }

// Err returns the node's terminal error, if any. Only meaningful after the
// executor has finished.
func (n *Node) Err() error { return n.err }

// CellID returns the cell identifier for matrix nodes, or "" otherwise.
func (n *Node) CellID() string {
	if n.Cell == nil {
		return ""
	}
	return n.Cell.ID()
}
