// Package matrix expands labeled build dimensions into independent
// execution cells and runs a cell's stage sequence strictly in order.
package matrix

import (
	"strings"
)

// Dimension is one axis of the build matrix, e.g. os or engine.
type Dimension struct {
	Name   string
	Values []string
}

// Cell is one combination of dimension values. Cells are immutable once
// expanded; each cell owns its own stage execution state.
type Cell struct {
	order  []string
	labels map[string]string
}

// Value returns the cell's value for the named dimension.
func (c *Cell) Value(dimension string) (string, bool) {
	v, ok := c.labels[dimension]
	return v, ok
}

// ID returns the cell's unique identifier: the dimension values joined by
// hyphens in dimension declaration order, e.g. "linux-wasm3".
func (c *Cell) ID() string {
	parts := make([]string, 0, len(c.order))
	for _, dim := range c.order {
		parts = append(parts, c.labels[dim])
	}
	return strings.Join(parts, "-")
}

func (c *Cell) String() string { return c.ID() }

// with returns a copy of the cell extended by one dimension value.
func (c *Cell) with(dimension, value string) *Cell {
	next := &Cell{
		order:  make([]string, 0, len(c.order)+1),
		labels: make(map[string]string, len(c.labels)+1),
	}
	next.order = append(next.order, c.order...)
	next.order = append(next.order, dimension)
	for k, v := range c.labels {
		next.labels[k] = v
	}
	next.labels[dimension] = value
	return next
}

// Expand produces the full Cartesian product of the given dimensions as
// execution cells. Ordering is deterministic: the first declared dimension
// varies slowest. An empty dimension yields zero cells; no dimensions at
// all yields none either.
func Expand(dimensions []Dimension) []*Cell {
	if len(dimensions) == 0 {
		return nil
	}
	cells := []*Cell{{labels: make(map[string]string)}}
	for _, dim := range dimensions {
		next := make([]*Cell, 0, len(cells)*len(dim.Values))
		for _, cell := range cells {
			for _, value := range dim.Values {
				next = append(next, cell.with(dim.Name, value))
			}
		}
		cells = next
	}
	return cells
}
