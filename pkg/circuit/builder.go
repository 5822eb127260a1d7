package circuit

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"go.l7mp.io/dbsp/internal/dag"
	"go.l7mp.io/dbsp/pkg/dbsp"
	"go.l7mp.io/dbsp/pkg/metrics"
)

// Builder assembles a circuit graph one node at a time. It is the construction API described by
// the external interface: create-circuit, add-source, add-operator, add-sink, add-delay,
// add-nested, finalize. A Builder is single-use; call Finalize to obtain an executable Circuit.
type Builder struct {
	nodes     []*node
	sources   map[string]*Stream
	sinks     map[string]*Stream
	sinkOrder []string
	pending   map[int]bool // delay node id -> feedback input not yet connected
	err       error        // first construction error, sticky so chained calls short-circuit
	log       logr.Logger
	metrics   *metrics.Registry
}

// NewBuilder returns an empty circuit builder.
func NewBuilder() *Builder {
	return &Builder{
		sources: map[string]*Stream{},
		sinks:   map[string]*Stream{},
		pending: map[int]bool{},
		log:     logr.Discard(),
	}
}

// WithLogger attaches a logger the finalized Circuit uses to report tick failures. The default,
// if this is never called, discards everything.
func (b *Builder) WithLogger(l logr.Logger) *Builder {
	b.log = l
	return b
}

// WithMetrics attaches a metrics.Registry the finalized Circuit uses to record tick duration,
// tick errors and per-source input batch size. The default, if this is never called, is nil and
// Tick records nothing.
func (b *Builder) WithMetrics(m *metrics.Registry) *Builder {
	b.metrics = m
	return b
}

func (b *Builder) fail(op string, cause error) {
	if b.err == nil {
		b.err = newConstructionError(op, cause)
	}
}

func (b *Builder) addNode(n *node) *Stream {
	n.id = len(b.nodes)
	b.nodes = append(b.nodes, n)
	out := &Stream{id: n.id, name: n.label(), source: n.id}
	n.output = out
	return out
}

// AddSource declares an input stream the environment feeds on every tick via Circuit.Tick. typ
// is an opaque tag used only to catch accidental cross-wiring at AddOperator time; pass
// "" to skip the check for this stream.
func (b *Builder) AddSource(name, typ string) (*Stream, error) {
	if b.err != nil {
		return nil, b.err
	}
	if _, ok := b.sources[name]; ok {
		b.fail("add-source", fmt.Errorf("duplicate source name %q", name))
		return nil, b.err
	}
	n := &node{isSource: true, srcName: name}
	out := b.addNode(n)
	out.name = "source:" + name
	out.typ = typ
	b.sources[name] = out
	return out, nil
}

// AddOperator wires op's inputs to the given streams, in order, and returns a new stream carrying
// op's output. It is a construction error for len(inputs) to disagree with op.Arity(), or for two
// inputs to carry distinct non-empty type tags where op expects a single homogeneous type (joins
// and binary operators are exempt, since their two inputs are legitimately heterogeneous).
func (b *Builder) AddOperator(op dbsp.Operator, inputs ...*Stream) (*Stream, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(inputs) != op.Arity() {
		b.fail("add-operator", fmt.Errorf("operator %s expects %d inputs, got %d", op.Name(), op.Arity(), len(inputs)))
		return nil, b.err
	}
	for _, in := range inputs {
		if in == nil {
			b.fail("add-operator", fmt.Errorf("operator %s: nil input stream", op.Name()))
			return nil, b.err
		}
	}
	if op.OpType() != dbsp.OpTypeBilinear {
		typ := ""
		for _, in := range inputs {
			if in.typ == "" {
				continue
			}
			if typ != "" && in.typ != typ {
				b.fail("add-operator", fmt.Errorf("operator %s: input type %q does not match %q", op.Name(), in.typ, typ))
				return nil, b.err
			}
			typ = in.typ
		}
	}
	_, isDelay := op.(*dbsp.DelayOp)
	n := &node{op: op, inputs: append([]*Stream{}, inputs...), isDelay: isDelay}
	out := b.addNode(n)
	out.name = op.Name()
	return out, nil
}

// DelayHandle is the not-yet-closed feedback loop returned by AddDelay. Output is usable
// immediately as any other stream's input; Close must be called exactly once, with the stream
// that should feed the delay's state for the next tick, before Finalize.
type DelayHandle struct {
	Output *Stream
	nodeID int
	b      *Builder
}

// Close connects producer as the value latched into the delay at the end of every tick. producer
// is typically downstream of Output itself, closing the feedback loop the delay exists to break.
func (h *DelayHandle) Close(producer *Stream) error {
	if producer == nil {
		h.b.fail("add-delay", fmt.Errorf("delay %d: nil feedback producer", h.nodeID))
		return h.b.err
	}
	h.b.nodes[h.nodeID].inputs[0] = producer
	delete(h.b.pending, h.nodeID)
	return nil
}

// AddDelay introduces a unit delay (z⁻¹) node. It is the only construction primitive that may
// close a cycle in the circuit graph: the returned handle's Output stream may be consumed by
// downstream nodes before its feedback producer is known, as long as Close is called before
// Finalize.
func (b *Builder) AddDelay() (*DelayHandle, error) {
	if b.err != nil {
		return nil, b.err
	}
	op := dbsp.NewDelay()
	stub := &Stream{source: -1, name: "delay-feedback-stub"}
	n := &node{op: op, inputs: []*Stream{stub}, isDelay: true}
	out := b.addNode(n)
	out.name = op.Name()
	b.pending[n.id] = true
	return &DelayHandle{Output: out, nodeID: n.id, b: b}, nil
}

// AddNested embeds op, a fixed-point subcircuit operator (as returned by nested.Embed), lifted
// into the outer circuit via δ₀ on the given input streams. See package nested for the adapter semantics; this method exists on
// Builder only to keep the construction API's vocabulary (add-source, add-operator, add-sink,
// add-delay, add-nested, finalize) in one place. Callers that need a nested circuit use
// nested.Embed directly, which returns a dbsp.Operator suitable for AddOperator.
func (b *Builder) AddNested(op dbsp.Operator, inputs ...*Stream) (*Stream, error) {
	return b.AddOperator(op, inputs...)
}

// AddSink declares stream as an output delivered to the environment every tick, under name. It is
// a construction error to reuse a sink name.
func (b *Builder) AddSink(name string, s *Stream) error {
	if b.err != nil {
		return b.err
	}
	if s == nil {
		b.fail("add-sink", fmt.Errorf("sink %q: nil stream", name))
		return b.err
	}
	if _, ok := b.sinks[name]; ok {
		b.fail("add-sink", fmt.Errorf("duplicate sink name %q", name))
		return b.err
	}
	b.sinks[name] = s
	b.sinkOrder = append(b.sinkOrder, name)
	return nil
}

// Finalize validates the graph (no dangling delay feedback, no cycle that isn't broken by a
// delay) and returns an executable Circuit. The Builder must not be used again afterwards.
func (b *Builder) Finalize() (*Circuit, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.nodes) == 0 {
		return nil, newConstructionError("finalize", fmt.Errorf("circuit has no nodes"))
	}
	for id := range b.pending {
		return nil, newConstructionError("finalize", fmt.Errorf("delay node %d: feedback input never connected", id))
	}
	for _, n := range b.nodes {
		for i, in := range n.inputs {
			if in.source == -1 {
				return nil, newConstructionError("finalize", fmt.Errorf("node %s: input %d is a dangling stream", n.label(), i))
			}
		}
	}

	g := dag.New()
	for _, n := range b.nodes {
		g.AddNode(nodeKey(n.id))
	}
	for _, n := range b.nodes {
		if n.isDelay {
			// The feedback producer only needs to be ready before the end-of-tick
			// latch, not before this node computes its own (previous-tick) output, so
			// this edge is excluded from the firing order.
			continue
		}
		for _, in := range n.inputs {
			g.AddEdge(nodeKey(in.source), nodeKey(n.id))
		}
	}
	order, err := g.TopoSort()
	if err != nil {
		return nil, newConstructionError("finalize", err)
	}

	firingOrder := make([]int, 0, len(order))
	for _, key := range order {
		firingOrder = append(firingOrder, nodeIndex(key))
	}

	var delayIDs []int
	for _, n := range b.nodes {
		if n.isDelay {
			delayIDs = append(delayIDs, n.id)
		}
	}

	return &Circuit{
		id:          uuid.New(),
		nodes:       b.nodes,
		firingOrder: firingOrder,
		delayIDs:    delayIDs,
		sources:     b.sources,
		sinks:       b.sinks,
		sinkOrder:   b.sinkOrder,
		log:         b.log,
		metrics:     b.metrics,
	}, nil
}

func nodeKey(id int) string    { return fmt.Sprintf("n%d", id) }
func nodeIndex(key string) int { var i int; fmt.Sscanf(key, "n%d", &i); return i }
