// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dag implements a small directed graph of string-labelled nodes
// with a deterministic topological sort. An edge from -> to means that
// from must come before to in the order.
package dag

import (
	"fmt"
	"sort"
)

type Graph struct {
	Nodes   []string
	byLabel map[string]int
	edges   map[string]map[string]bool
}

func (g *Graph) AddNode(label string) bool {
	if _, ok := g.byLabel[label]; ok {
		return false
	}
	g.byLabel[label] = len(g.Nodes)
	g.Nodes = append(g.Nodes, label)
	g.edges[label] = map[string]bool{}
	return true
}

func (g *Graph) HasNode(label string) bool {
	_, ok := g.byLabel[label]
	return ok
}

func (g *Graph) AddEdge(from, to string) {
	g.edges[from][to] = true
}

func (g *Graph) DelEdge(from, to string) {
	delete(g.edges[from], to)
}

func (g *Graph) HasEdge(from, to string) bool {
	return g.edges[from] != nil && g.edges[from][to]
}

func (g *Graph) Edges(from string) []string {
	edges := make([]string, 0, 16)
	for k := range g.edges[from] {
		edges = append(edges, k)
	}
	sort.Slice(edges, func(i, j int) bool { return g.byLabel[edges[i]] < g.byLabel[edges[j]] })
	return edges
}

// TopoSort returns the nodes of g in a topological order (every edge from->to has from appear
// before to), using Kahn's algorithm with node-insertion order as the tie-break so the result is
// deterministic across runs. It returns an error if g contains a cycle.
func (g *Graph) TopoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n] = 0
	}
	for _, n := range g.Nodes {
		for to := range g.edges[n] {
			indegree[to]++
		}
	}

	ready := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		for _, to := range g.Edges(n) {
			indegree[to]--
			if indegree[to] == 0 {
				ready = append(ready, to)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, fmt.Errorf("dag: graph contains a cycle not broken by a delay edge")
	}
	return order, nil
}
