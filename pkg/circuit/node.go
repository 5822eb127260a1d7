package circuit

import "go.l7mp.io/dbsp/pkg/dbsp"

// node is one vertex of the circuit graph. Every node owns exactly one output Stream; fan-out to
// several consumers is represented by several nodes holding the same input Stream, not by a node
// with several outputs.
type node struct {
	id       int
	op       dbsp.Operator // nil for a pure source node
	inputs   []*Stream
	output   *Stream
	isSource bool
	isDelay  bool
	srcName  string // set when isSource
}

func (n *node) label() string {
	if n.isSource {
		return "source:" + n.srcName
	}
	return n.op.Name()
}
