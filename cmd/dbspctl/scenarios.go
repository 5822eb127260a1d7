package main

import (
	"fmt"

	"go.l7mp.io/dbsp/pkg/circuit"
	"go.l7mp.io/dbsp/pkg/dbsp"
	"go.l7mp.io/dbsp/pkg/nested"
	"go.l7mp.io/dbsp/pkg/zset"
)

// scenario bundles a runnable circuit with the inputs that demonstrate it, so "run" and "graph"
// can both refer to it by name without rebuilding the wiring twice.
type scenario struct {
	name        string
	description string
	build       func() (*circuit.Circuit, error)
	sourceName  string
	ticks       []*zset.ZSet
}

func scenarios() []scenario {
	return []scenario{
		{
			name:        "running-total",
			description: "integrates a stream of counts through a delay/add feedback loop",
			build:       buildRunningTotal,
			sourceName:  "in",
			ticks: []*zset.ZSet{
				oneDoc("id", int64(1)),
				oneDoc("id", int64(2)),
				oneDoc("id", int64(3)),
			},
		},
		{
			name:        "transitive-closure",
			description: "computes the transitive closure of an edge relation via a nested fixed point",
			build:       buildClosureDemo,
			sourceName:  "delta",
			ticks: []*zset.ZSet{
				edgesOf(edgeDoc(1, 2), edgeDoc(2, 3), edgeDoc(3, 4)),
				edgesOf(edgeDoc(4, 5)),
			},
		},
	}
}

func findScenario(name string) (scenario, error) {
	for _, s := range scenarios() {
		if s.name == name {
			return s, nil
		}
	}
	return scenario{}, fmt.Errorf("unknown scenario %q", name)
}

func oneDoc(key string, value any) *zset.ZSet {
	z := zset.New()
	if err := z.AddMutate(zset.Document{key: value}, 1); err != nil {
		panic(err)
	}
	return z
}

func edgeDoc(from, to int64) zset.Document { return zset.Document{"from": from, "to": to} }

func edgesOf(docs ...zset.Document) *zset.ZSet {
	z := zset.New()
	for _, d := range docs {
		if err := z.AddMutate(d, 1); err != nil {
			panic(err)
		}
	}
	return z
}

// buildRunningTotal wires in -> (+) -> out, with out's own previous value fed back through a
// delay, so the sink accumulates a running total of every count ever received.
func buildRunningTotal() (*circuit.Circuit, error) {
	b := circuit.NewBuilder()
	in, err := b.AddSource("in", "")
	if err != nil {
		return nil, err
	}
	handle, err := b.AddDelay()
	if err != nil {
		return nil, err
	}
	total, err := b.AddOperator(dbsp.NewAdd(), in, handle.Output)
	if err != nil {
		return nil, err
	}
	if err := handle.Close(total); err != nil {
		return nil, err
	}
	if err := b.AddSink("total", total); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// hopJoin extends a frontier of (from,to) pairs by one more edge from the accumulated edge set.
type hopJoin struct{}

func (hopJoin) Evaluate(doc zset.Document) ([]zset.Document, error) {
	prev, ok := doc["prev"].(zset.Document)
	if !ok {
		return nil, nil
	}
	e, ok := doc["e"].(zset.Document)
	if !ok {
		return nil, nil
	}
	if prev["to"] != e["from"] {
		return nil, nil
	}
	return []zset.Document{{"from": prev["from"], "to": e["to"]}}, nil
}
func (hopJoin) String() string { return "hop(prev.to = e.from)" }

// hopLeftKey and hopRightKey extract the join key hopJoin matches on, so BinaryJoinOp can index
// both sides of the frontier/edge join instead of pairing every frontier entry against every
// edge.
type hopLeftKey struct{}

func (hopLeftKey) Extract(doc zset.Document) (any, error) { return doc["to"], nil }
func (hopLeftKey) String() string                         { return "prev.to" }

type hopRightKey struct{}

func (hopRightKey) Extract(doc zset.Document) (any, error) { return doc["from"], nil }
func (hopRightKey) String() string                         { return "e.from" }

func buildClosureInner() (*circuit.Circuit, error) {
	b := circuit.NewBuilder()
	delta, err := b.AddSource("delta", "")
	if err != nil {
		return nil, err
	}
	edges, err := b.AddOperator(dbsp.NewIntegrator(), delta)
	if err != nil {
		return nil, err
	}
	handle, err := b.AddDelay()
	if err != nil {
		return nil, err
	}
	prev := handle.Output
	hop, err := b.AddOperator(dbsp.NewBinaryJoin(hopJoin{}, []string{"prev", "e"}, hopLeftKey{}, hopRightKey{}), prev, edges)
	if err != nil {
		return nil, err
	}
	candidate, err := b.AddOperator(dbsp.NewAdd(), edges, hop)
	if err != nil {
		return nil, err
	}
	next, err := b.AddOperator(dbsp.NewDistinct(), candidate)
	if err != nil {
		return nil, err
	}
	step, err := b.AddOperator(dbsp.NewSubtract(), next, prev)
	if err != nil {
		return nil, err
	}
	if err := handle.Close(next); err != nil {
		return nil, err
	}
	if err := b.AddSink("step", step); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// buildClosureDemo embeds buildClosureInner as a nested fixed point behind a single-source,
// single-sink outer circuit, so it can be driven through Circuit.Tick like any other scenario.
func buildClosureDemo() (*circuit.Circuit, error) {
	inner, err := buildClosureInner()
	if err != nil {
		return nil, err
	}
	op, err := nested.Embed("closure", nested.Spec{
		Inner:           inner,
		DeltaSource:     "delta",
		ResultSink:      "step",
		TerminationSink: "step",
	})
	if err != nil {
		return nil, err
	}

	b := circuit.NewBuilder()
	delta, err := b.AddSource("delta", "")
	if err != nil {
		return nil, err
	}
	out, err := b.AddOperator(op, delta)
	if err != nil {
		return nil, err
	}
	if err := b.AddSink("closure", out); err != nil {
		return nil, err
	}
	return b.Finalize()
}
