package circuit

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"go.l7mp.io/dbsp/pkg/dbsp"
	"go.l7mp.io/dbsp/pkg/metrics"
	"go.l7mp.io/dbsp/pkg/zset"
)

// Circuit is an executable, finalized dataflow graph. It has no construction-time mutability left
// and is safe to call Tick on repeatedly; state lives inside the stateful operators wired into it.
type Circuit struct {
	id          uuid.UUID
	nodes       []*node
	firingOrder []int
	delayIDs    []int
	sources     map[string]*Stream
	sinks       map[string]*Stream
	sinkOrder   []string
	log         logr.Logger
	metrics     *metrics.Registry
}

// ID returns the circuit's identity, assigned once at Finalize and stable for the circuit's
// lifetime. It has no structural meaning (two circuits built from identical Builder calls get
// different IDs); it exists so logs and metrics from a running worker can be correlated back to
// one circuit instance.
func (c *Circuit) ID() uuid.UUID { return c.id }

// Tick executes the four-step scheduling algorithm for one logical clock step: populate sources,
// fire every operator once in the precomputed topological order, latch every delay's feedback
// input as its state for the next tick, and deliver the sink outputs for this tick.
func (c *Circuit) Tick(inputs map[string]*zset.ZSet) (result map[string]*zset.ZSet, err error) {
	if c.metrics != nil {
		start := time.Now()
		defer func() {
			kind := ""
			if ce, ok := err.(*Error); ok {
				kind = ce.Kind.String()
			}
			c.metrics.ObserveTick(start, kind)
		}()
		for _, delta := range inputs {
			c.metrics.InputBatchSize.Observe(float64(delta.TotalSize()))
		}
	}

	for name := range inputs {
		if _, ok := c.sources[name]; !ok {
			return nil, newInputError("tick", fmt.Errorf("unknown source %q", name))
		}
	}

	values := make(map[int]*zset.ZSet, len(c.nodes))
	for _, id := range c.firingOrder {
		n := c.nodes[id]
		switch {
		case n.isSource:
			delta, ok := inputs[n.srcName]
			if !ok {
				delta = zset.New()
			}
			values[id] = delta
		case n.isDelay:
			values[id] = n.op.(*dbsp.DelayOp).Peek()
		default:
			ins := make([]*zset.ZSet, len(n.inputs))
			for i, in := range n.inputs {
				v, ok := values[in.source]
				if !ok {
					return nil, newInvariantViolation("tick", fmt.Errorf("node %s: input from node %d not computed before use", n.label(), in.source))
				}
				ins[i] = v
			}
			out, err := n.op.Process(ins...)
			if err != nil {
				kind := KindInvariantViolation
				if ce, ok := err.(*Error); ok {
					kind = ce.Kind
				}
				wrapped := NewError(kind, "tick", fmt.Errorf("node %s: %w", n.label(), err))
				c.log.Error(wrapped, "tick failed", "node", n.label(), "circuit", c.id)
				return nil, wrapped
			}
			values[id] = out
		}
	}

	for _, id := range c.delayIDs {
		n := c.nodes[id]
		feedback, ok := values[n.inputs[0].source]
		if !ok {
			return nil, newInvariantViolation("tick", fmt.Errorf("delay node %d: feedback producer not computed this tick", id))
		}
		if err := n.op.(*dbsp.DelayOp).Latch(feedback); err != nil {
			return nil, newInvariantViolation("tick", err)
		}
	}

	outputs := make(map[string]*zset.ZSet, len(c.sinkOrder))
	for _, name := range c.sinkOrder {
		stream := c.sinks[name]
		v, ok := values[stream.source]
		if !ok {
			return nil, newInvariantViolation("tick", fmt.Errorf("sink %q: producer not computed this tick", name))
		}
		outputs[name] = v
	}
	return outputs, nil
}

// Sources returns the declared source names, for callers assembling a Tick input map.
func (c *Circuit) Sources() []string {
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	return names
}

// Sinks returns the declared sink names, in declaration order.
func (c *Circuit) Sinks() []string { return append([]string{}, c.sinkOrder...) }

func (c *Circuit) statefulOps() []dbsp.Stateful {
	var out []dbsp.Stateful
	for _, id := range c.firingOrder {
		n := c.nodes[id]
		if n.op == nil {
			continue
		}
		if s, ok := n.op.(dbsp.Stateful); ok {
			out = append(out, s)
		}
	}
	return out
}

// ExportState walks every Stateful operator in firing order and returns their encoded states as a
// single ordered slice, suitable for a caller (typically package snapshot, or an enclosing nested
// circuit's own Stateful implementation) to bundle into one blob. The order is deterministic for a
// given circuit structure, per the circuit's topological firing order.
func (c *Circuit) ExportState() ([][]byte, error) {
	ops := c.statefulOps()
	states := make([][]byte, len(ops))
	for i, op := range ops {
		data, err := op.ExportState()
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		states[i] = data
	}
	return states, nil
}

// ImportState restores every Stateful operator's state from a slice previously returned by
// ExportState on a circuit with the same StructuralHash. It is a state-mismatch error to pass a
// slice of the wrong length.
func (c *Circuit) ImportState(states [][]byte) error {
	ops := c.statefulOps()
	if len(states) != len(ops) {
		return NewError(KindStateMismatch, "import-state", fmt.Errorf("expected %d stateful operator states, got %d", len(ops), len(states)))
	}
	for i, op := range ops {
		if err := op.ImportState(states[i]); err != nil {
			return NewError(KindStateMismatch, "import-state", err)
		}
	}
	return nil
}

// ResetState clears every Stateful operator back to its zero-tick state.
func (c *Circuit) ResetState() {
	for _, op := range c.statefulOps() {
		op.Reset()
	}
}

// StructuralHash returns a value identifying the shape of the circuit (node count, firing order,
// operator names and arities). Package snapshot uses it to reject a restore against a
// structurally different circuit.
func (c *Circuit) StructuralHash() uint64 {
	h := fmt.Sprintf("n=%d", len(c.nodes))
	for _, id := range c.firingOrder {
		n := c.nodes[id]
		if n.isSource {
			h += fmt.Sprintf("|src:%s", n.srcName)
			continue
		}
		h += fmt.Sprintf("|%s:%d", n.op.Name(), n.op.Arity())
	}
	return xxhash.Sum64String(h)
}
