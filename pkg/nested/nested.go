// Package nested implements the fixed-point construction for embedding a subcircuit inside an
// outer circuit: the δ₀ lift adapter feeds the outer delta into the inner circuit only on the
// first iteration, the ∫ integrate adapter sums the inner circuit's per-iteration delta output
// back into a single outer value, and a configurable iteration cap bounds divergent loops.
package nested

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/vmihailenco/msgpack/v5"

	"go.l7mp.io/dbsp/pkg/circuit"
	"go.l7mp.io/dbsp/pkg/dbsp"
	"go.l7mp.io/dbsp/pkg/metrics"
	"go.l7mp.io/dbsp/pkg/zset"
)

// DefaultIterationCap matches the engine-wide configuration default (see package config): a
// nested circuit that has not reached its termination predicate within this many iterations is
// considered divergent.
const DefaultIterationCap = 10_000

// Spec describes how a FixedPoint operator drives its inner circuit.
type Spec struct {
	// Inner is the finalized subcircuit executed once per iteration.
	Inner *circuit.Circuit
	// DeltaSource is the inner source name that receives the outer delta via δ₀: the actual
	// value on the first iteration, the zero Z-set on every iteration after.
	DeltaSource string
	// ResultSink is the inner sink name integrated across iterations (∫) to produce the
	// value FixedPoint.Process returns for this outer tick.
	ResultSink string
	// TerminationSink is the inner sink name whose output being the zero Z-set signals that
	// the fixed point has been reached. It is conventional, and often convenient, for this to
	// be the same name as ResultSink (an empty per-iteration delta means nothing left to
	// propagate), but Spec does not require it.
	TerminationSink string
	// IterationCap overrides DefaultIterationCap when positive.
	IterationCap int
}

// FixedPoint is a dbsp.Operator of arity 1 that runs Spec.Inner to a fixed point on every outer
// tick and returns the ∫-summed result. It implements dbsp.Stateful by delegating to the inner
// circuit's own stateful operators, which is what gives a nested computation memory across outer
// ticks (the delay inside a transitive-closure loop, for instance, is meaningless otherwise).
type FixedPoint struct {
	dbsp.BaseOp
	spec    Spec
	cap     int
	log     logr.Logger
	metrics *metrics.Registry
}

// Embed returns a FixedPoint operator wired to run spec.Inner to completion on every tick.
func Embed(name string, spec Spec) (*FixedPoint, error) {
	if spec.Inner == nil {
		return nil, fmt.Errorf("nested: %s: inner circuit is nil", name)
	}
	cap := spec.IterationCap
	if cap <= 0 {
		cap = DefaultIterationCap
	}
	return &FixedPoint{BaseOp: dbsp.NewBaseOp(name, 1), spec: spec, cap: cap, log: logr.Discard()}, nil
}

// WithLogger attaches a logger used to report iteration-cap divergence. The default discards
// everything.
func (op *FixedPoint) WithLogger(l logr.Logger) *FixedPoint {
	op.log = l
	return op
}

// WithMetrics attaches a metrics.Registry that records how many iterations Process took to reach
// (or fail to reach) the inner circuit's fixed point on every outer tick. The default, if this is
// never called, is nil and Process records nothing.
func (op *FixedPoint) WithMetrics(m *metrics.Registry) *FixedPoint {
	op.metrics = m
	return op
}

func (op *FixedPoint) OpType() dbsp.OperatorType         { return dbsp.OpTypeNonLinear }
func (op *FixedPoint) IsTimeInvariant() bool             { return true }
func (op *FixedPoint) HasZeroPreservationProperty() bool { return true }

// Process drives the inner circuit through the δ₀/∫ loop: the outer delta is fed once, then the
// zero Z-set on every subsequent iteration, until the termination sink comes back empty or the
// iteration cap is hit. On divergence the inner circuit's state is rolled back to what it was at
// the start of this call, so the outer circuit remains usable on the next tick.
func (op *FixedPoint) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("%s: expected 1 input, got %d", op.Name(), len(inputs))
	}

	checkpoint, err := op.spec.Inner.ExportState()
	if err != nil {
		return nil, circuit.NewError(circuit.KindStateMismatch, op.Name(), err)
	}

	accumulated := zset.New()
	current := inputs[0]
	for iter := 0; ; iter++ {
		if iter >= op.cap {
			if rbErr := op.spec.Inner.ImportState(checkpoint); rbErr != nil {
				return nil, circuit.NewError(circuit.KindInvariantViolation, op.Name(), rbErr)
			}
			if op.metrics != nil {
				op.metrics.NestedIterations.Observe(float64(iter))
			}
			divErr := circuit.NewError(circuit.KindIterationDivergence, op.Name(),
				fmt.Errorf("exceeded %d iterations without reaching the termination predicate", op.cap))
			op.log.Error(divErr, "nested circuit diverged, state rolled back", "op", op.Name(), "cap", op.cap)
			return nil, divErr
		}

		outputs, err := op.spec.Inner.Tick(map[string]*zset.ZSet{op.spec.DeltaSource: current})
		if err != nil {
			return nil, err
		}

		result, ok := outputs[op.spec.ResultSink]
		if !ok {
			return nil, circuit.NewError(circuit.KindConstruction, op.Name(), fmt.Errorf("result sink %q not found", op.spec.ResultSink))
		}
		accumulated, err = accumulated.Add(result)
		if err != nil {
			return nil, err
		}

		term, ok := outputs[op.spec.TerminationSink]
		if !ok {
			return nil, circuit.NewError(circuit.KindConstruction, op.Name(), fmt.Errorf("termination sink %q not found", op.spec.TerminationSink))
		}
		if term.IsZero() {
			if op.metrics != nil {
				op.metrics.NestedIterations.Observe(float64(iter + 1))
			}
			break
		}

		current = zset.New()
	}

	return accumulated, nil
}

// ExportState encodes a FixedPoint's persisted state: just the inner circuit's own
// stateful-operator snapshot, since the iteration accumulator is local to one Process call.
func (op *FixedPoint) ExportState() ([]byte, error) {
	states, err := op.spec.Inner.ExportState()
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(states)
}

func (op *FixedPoint) ImportState(data []byte) error {
	var states [][]byte
	if err := msgpack.Unmarshal(data, &states); err != nil {
		return fmt.Errorf("%s: state mismatch: %w", op.Name(), err)
	}
	return op.spec.Inner.ImportState(states)
}

func (op *FixedPoint) Reset() {
	op.spec.Inner.ResetState()
}
