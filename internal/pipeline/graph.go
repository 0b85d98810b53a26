// Package pipeline builds and executes the release pipeline's dependency
// graph: a forward DAG of stage groups, with matrix groups fanned out into
// one node per cell. A node starts only after every node in its declared
// dependency set succeeded; a failure marks all transitive dependents
// skipped without disturbing independent branches.
package pipeline

import (
	"context"
	"sort"

	"github.com/vk/shipline/internal/config"
	"github.com/vk/shipline/internal/ctxlog"
)

// Graph is the validated dependency graph, ready for execution.
type Graph struct {
	Nodes map[string]*Node
	// groups indexes nodes by stage group, in spec order, for fan-in links.
	groups map[string][]*Node
}

// Build constructs a complete, validated dependency graph from node specs.
// All structural problems (duplicate IDs, undeclared dependencies, cycles)
// are configuration errors raised here, never at runtime.
func Build(ctx context.Context, specs []NodeSpec) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")

	graph := &Graph{
		Nodes:  make(map[string]*Node, len(specs)),
		groups: make(map[string][]*Node),
	}

	// First pass: create all nodes.
	for _, spec := range specs {
		if _, exists := graph.Nodes[spec.ID]; exists {
			return nil, config.Errorf("duplicate node %q", spec.ID)
		}
		node := &Node{
			ID:         spec.ID,
			Group:      spec.Group,
			Cell:       spec.Cell,
			run:        spec.Run,
			deps:       make(map[string]*Node),
			dependents: make(map[string]*Node),
		}
		graph.Nodes[spec.ID] = node
		graph.groups[spec.Group] = append(graph.groups[spec.Group], node)
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: link dependencies. A dependency on a group links the
	// node to every node of that group, so matrix groups fan in.
	for _, spec := range specs {
		node := graph.Nodes[spec.ID]
		for _, depGroup := range spec.DependsOnGroups {
			if depGroup == spec.Group {
				return nil, config.Errorf("stage %q depends on itself", spec.Group)
			}
			upstream, ok := graph.groups[depGroup]
			if !ok {
				return nil, config.Errorf("stage %q depends on undeclared stage %q", spec.Group, depGroup)
			}
			for _, dep := range upstream {
				if _, linked := node.deps[dep.ID]; linked {
					continue
				}
				node.deps[dep.ID] = dep
				dep.dependents[node.ID] = node
			}
		}
	}
	logger.Debug("Build: Node linking complete.")

	// Third pass: initialize counters.
	for _, node := range graph.Nodes {
		node.depCount.Store(int32(len(node.deps)))
	}

	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: Cycle detection passed.")
	return graph, nil
}

// detectCycles checks for circular dependencies in the graph using DFS.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.deps {
			if visiting[dep.ID] {
				return config.Errorf("dependency cycle involving %q", dep.ID)
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, node := range g.Nodes {
		if !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}

// SortedIDs returns all node IDs in lexicographic order, for deterministic
// reporting and planning output.
func (g *Graph) SortedIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
