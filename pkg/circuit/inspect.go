package circuit

// NodeView is a read-only description of one circuit node, exported for callers (package
// visualize) that need to render the graph without reaching into the builder's internal node type.
type NodeView struct {
	ID      int
	Label   string
	OpType  string // "" for a source node
	Arity   int
	Inputs  []int // producing node IDs, in operator input order
	IsDelay bool
}

// Inspect returns a view of every node in the circuit, in firing order, plus the source and sink
// name-to-node-ID mappings. It is read-only: mutating the returned slices has no effect on c.
func (c *Circuit) Inspect() (nodes []NodeView, sources map[string]int, sinks []SinkView) {
	nodes = make([]NodeView, 0, len(c.nodes))
	for _, id := range c.firingOrder {
		n := c.nodes[id]
		v := NodeView{ID: n.id, Label: n.label(), IsDelay: n.isDelay}
		if !n.isSource {
			v.OpType = n.op.OpType().String()
			v.Arity = n.op.Arity()
		}
		for _, in := range n.inputs {
			v.Inputs = append(v.Inputs, in.source)
		}
		nodes = append(nodes, v)
	}

	sources = make(map[string]int, len(c.sources))
	for name, s := range c.sources {
		sources[name] = s.source
	}

	sinks = make([]SinkView, 0, len(c.sinkOrder))
	for _, name := range c.sinkOrder {
		sinks = append(sinks, SinkView{Name: name, NodeID: c.sinks[name].source})
	}
	return nodes, sources, sinks
}

// SinkView names a declared sink and the node ID feeding it.
type SinkView struct {
	Name   string
	NodeID int
}
