// Copyright 2024 rg0now. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dag

// New returns an empty graph ready for AddNode/AddEdge calls.
func New() *Graph {
	return &Graph{byLabel: map[string]int{}, edges: map[string]map[string]bool{}}
}

// Roots returns the nodes of g with no incoming edge: for a circuit's firing-order graph these are
// the nodes that consume no other node's output within a tick (sources, and delays, whose feedback
// edge is left out of that graph), so a tick can fire them without waiting on anything else.
func (g *Graph) Roots() []string {
	roots := make([]string, 0, len(g.Nodes))

	for _, candidate := range g.Nodes {
		isRoot := true
		for _, other := range g.Nodes {
			if g.HasEdge(other, candidate) {
				isRoot = false
				break
			}
		}
		if isRoot {
			roots = append(roots, candidate)
		}
	}
	return roots
}
