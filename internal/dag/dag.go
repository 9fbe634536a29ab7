// SPDX-License-Identifier: MPL-2.0

// Package dag orders modules for the CLI host. Declared dependencies load
// before their dependents; among modules that are ready at the same time,
// specifications come first, then implementations, then regular modules,
// then insertion order.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is the sentinel error wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle detected")

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the nodes left with unresolved edges. Not all of them
		// need to be on the cycle itself.
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// An edge from A to B means A must load before B.
	Graph struct {
		adjacency map[string][]string
		// nodes keeps insertion order for deterministic output.
		nodes []string
		index map[string]int
		rank  map[string]int
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		index:     make(map[string]int),
		rank:      make(map[string]int),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

// SetRank adds name if needed and sets its tie-break rank. Lower ranks are
// emitted first among nodes that are ready together. The default rank is 0.
func (g *Graph) SetRank(name string, rank int) {
	g.AddNode(name)
	g.rank[name] = rank
}

// AddEdge adds a directed edge from -> to, meaning "from" must load before "to".
// Both nodes are implicitly added if they don't exist. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.adjacency[from], to) {
		return
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Has reports whether name is a node of the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns a valid order using Kahn's algorithm, picking the
// ready node with the lowest (rank, insertion index) at every step.
// Returns a *CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	var ready []string
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			ready = append(ready, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		i := g.next(ready)
		node := ready[i]
		ready = slices.Delete(ready, i, i+1)
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				ready = append(ready, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}
	return result, nil
}

// next returns the index in ready of the node to emit next.
func (g *Graph) next(ready []string) int {
	best := 0
	for i := 1; i < len(ready); i++ {
		a, b := ready[i], ready[best]
		if ra, rb := g.rank[a], g.rank[b]; ra != rb {
			if ra < rb {
				best = i
			}
			continue
		}
		if g.index[a] < g.index[b] {
			best = i
		}
	}
	return best
}
