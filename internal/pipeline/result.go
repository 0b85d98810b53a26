package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/shipline/internal/ctxlog"
)

// ErrSkipped marks nodes that were never attempted because an upstream
// dependency failed. It is a symptom, not a root cause.
var ErrSkipped = errors.New("skipped due to upstream failure")

// NodeResult is the terminal outcome of a single node.
type NodeResult struct {
	ID     string
	Group  string
	Cell   string
	Status Status
	Err    error
}

// RunResult is the outcome of a whole pipeline run: one entry per node,
// in deterministic (lexicographic) order.
type RunResult struct {
	RunID string
	Nodes []NodeResult
}

// Succeeded reports overall success: the logical AND over all nodes.
func (r *RunResult) Succeeded() bool {
	for _, n := range r.Nodes {
		if n.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// collect assembles the run result and the root-cause error after all
// nodes have terminated.
func (e *Executor) collect(ctx context.Context) (*RunResult, error) {
	logger := ctxlog.FromContext(ctx)

	result := &RunResult{RunID: uuid.NewString()}
	var failedNodes []string
	var rootCause error

	for _, id := range e.graph.SortedIDs() {
		node := e.graph.Nodes[id]
		result.Nodes = append(result.Nodes, NodeResult{
			ID:     node.ID,
			Group:  node.Group,
			Cell:   node.CellID(),
			Status: node.Status(),
			Err:    node.err,
		})
		if node.Status() != StatusFailed {
			continue
		}
		logger.Error("Node failed execution.", "nodeID", node.ID, "error", node.err)
		// A skipped or canceled node is a symptom; only real failures can
		// be the root cause.
		if node.err != nil && !errors.Is(node.err, ErrSkipped) && !errors.Is(node.err, context.Canceled) {
			failedNodes = append(failedNodes, node.ID)
			if rootCause == nil {
				rootCause = node.err
			}
		}
	}

	if rootCause != nil {
		return result, fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCause)
	}
	if !result.Succeeded() {
		return result, fmt.Errorf("execution incomplete: %d of %d nodes did not succeed",
			countNotSucceeded(result.Nodes), len(result.Nodes))
	}
	return result, nil
}

func countNotSucceeded(nodes []NodeResult) int {
	n := 0
	for _, node := range nodes {
		if node.Status != StatusSucceeded {
			n++
		}
	}
	return n
}
