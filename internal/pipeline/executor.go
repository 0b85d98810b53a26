package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/shipline/internal/ctxlog"
)

const defaultWorkers = 4

// Executor runs a built graph with a bounded worker pool. Sibling nodes
// execute concurrently with no ordering between them; a node failure marks
// its transitive dependents skipped but never aborts unrelated branches,
// so one failing matrix cell cannot prevent its siblings from finishing.
type Executor struct {
	graph      *Graph
	numWorkers int
	wg         sync.WaitGroup
}

// NewExecutor creates an executor for the graph.
func NewExecutor(graph *Graph, workers int) *Executor {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Executor{graph: graph, numWorkers: workers}
}

// Run executes the entire graph concurrently and returns the collected
// run result. The returned error is the root cause of the first real
// failure, or nil when every node succeeded.
func (e *Executor) Run(ctx context.Context) (*RunResult, error) {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *Node, len(e.graph.Nodes))

	logger.Debug("Initializing executor, finding root nodes.")
	rootCount := 0
	for _, node := range e.graph.Nodes {
		if node.depCount.Load() == 0 {
			readyChan <- node
			rootCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	logger.Info("Waiting for all nodes to complete...")
	e.wg.Wait()
	close(readyChan)
	logger.Info("All nodes completed.")

	return e.collect(ctx)
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)

	for node := range readyChan {
		nodeLogger := logger.With("nodeID", node.ID)

		if ctx.Err() != nil {
			if node.state.CompareAndSwap(int32(StatusPending), int32(StatusSkipped)) {
				nodeLogger.Warn("Run canceled, abandoning node.")
				node.err = fmt.Errorf("%w: %w", ErrSkipped, context.Cause(ctx))
				e.skipDependents(ctx, node)
				e.wg.Done()
			}
			continue
		}

		// A node can land in the ready channel after a skip pass already
		// retired it; the state swap makes sure it runs at most once.
		if !node.state.CompareAndSwap(int32(StatusPending), int32(StatusRunning)) {
			continue
		}

		nodeLogger.Debug("Worker picked up node for execution.")
		err := node.run(ctx, node)
		if err != nil {
			nodeLogger.Error("Node execution failed.", "error", err)
			node.err = err
			node.state.Store(int32(StatusFailed))
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		nodeLogger.Debug("Node execution succeeded.")
		node.state.Store(int32(StatusSucceeded))

		for _, dependent := range node.dependents {
			if dependent.depCount.Add(-1) == 0 {
				nodeLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

// skipDependents recursively marks all downstream nodes as skipped and
// settles their WaitGroup slots. Nodes already terminal are left alone.
func (e *Executor) skipDependents(ctx context.Context, node *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.dependents {
		if dependent.state.CompareAndSwap(int32(StatusPending), int32(StatusSkipped)) {
			logger.Warn("Skipping dependent node due to upstream failure.",
				"nodeID", dependent.ID, "dependency", node.ID)
			dependent.err = fmt.Errorf("%w of %q", ErrSkipped, node.ID)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		}
	}
}
