// Package visualize renders a circuit's dataflow graph as a diagram, for inspecting the shape a
// Builder produced without tracing through the topological firing order by hand.
package visualize

import (
	"fmt"

	"github.com/emicklei/dot"

	"go.l7mp.io/dbsp/pkg/circuit"
)

// Graph is the visualization-ready view of a circuit: one node per operator plus one node per
// declared source and sink, and the edges between them.
type Graph struct {
	Name  string
	Nodes []Node
	Edges []Edge
}

// Node is a single vertex in the rendered graph: either a circuit operator, a declared source, or
// a declared sink.
type Node struct {
	ID      string
	Label   string
	Kind    string // "source", "sink", "delay", or the operator's OpType string
	IsDelay bool
}

// Edge is a directed connection between two Node IDs. Feedback marks the edge closing a delay's
// loop, i.e. the connection from a delay's feedback producer back into the delay itself.
type Edge struct {
	From     string
	To       string
	Feedback bool
}

func nodeID(id int) string { return fmt.Sprintf("n%d", id) }

// BuildGraph constructs a visualization graph from a finalized circuit.
func BuildGraph(name string, c *circuit.Circuit) *Graph {
	nodeViews, _, sinks := c.Inspect()

	g := &Graph{Name: name}

	for _, v := range nodeViews {
		kind := v.OpType
		if v.OpType == "" {
			kind = "source"
		}
		if v.IsDelay {
			kind = "delay"
		}
		g.Nodes = append(g.Nodes, Node{ID: nodeID(v.ID), Label: v.Label, Kind: kind, IsDelay: v.IsDelay})
	}

	for _, v := range nodeViews {
		for i, from := range v.Inputs {
			// A delay's own input is its feedback producer; every other input edge feeds
			// the node computing this tick's output.
			feedback := v.IsDelay && i == 0
			g.Edges = append(g.Edges, Edge{From: nodeID(from), To: nodeID(v.ID), Feedback: feedback})
		}
	}

	for _, s := range sinks {
		sinkID := "sink:" + s.Name
		g.Nodes = append(g.Nodes, Node{ID: sinkID, Label: s.Name, Kind: "sink"})
		g.Edges = append(g.Edges, Edge{From: nodeID(s.NodeID), To: sinkID})
	}

	return g
}

// BuildDotGraph creates a dot.Graph from the visualization graph. This unified graph can then be
// rendered in different formats (DOT, Mermaid, etc.).
func BuildDotGraph(g *Graph) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "LR")
	graph.Attr("label", g.Name)
	graph.Attr("labelloc", "t")
	graph.Attr("fontsize", "16")

	nodes := make(map[string]dot.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		dn := graph.Node(n.ID).
			Attr("label", n.Label).
			Attr("fontname", "helvetica")

		switch n.Kind {
		case "source":
			dn.Attr("shape", "ellipse").Attr("style", "filled").Attr("fillcolor", "lightgreen")
		case "sink":
			dn.Attr("shape", "ellipse").Attr("style", "filled").Attr("fillcolor", "lightyellow")
		case "delay":
			dn.Attr("shape", "box").Attr("style", "filled,rounded").Attr("fillcolor", "lightpink").Attr("color", "darkred").Attr("penwidth", "2")
		case "bilinear":
			dn.Attr("shape", "box").Attr("style", "filled,rounded").Attr("fillcolor", "lightblue").Attr("color", "darkblue")
		case "nonlinear":
			dn.Attr("shape", "box").Attr("style", "filled,rounded").Attr("fillcolor", "lavender").Attr("color", "purple")
		default:
			dn.Attr("shape", "box").Attr("style", "filled,rounded").Attr("fillcolor", "white").Attr("color", "gray")
		}
		nodes[n.ID] = dn
	}

	for _, e := range g.Edges {
		edge := graph.Edge(nodes[e.From], nodes[e.To]).Attr("fontname", "helvetica").Attr("fontsize", "10")
		if e.Feedback {
			edge.Attr("style", "dashed").Attr("color", "darkred").Attr("label", "z⁻¹")
		}
	}

	return graph
}
