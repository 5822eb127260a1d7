package dbsp

import (
	"github.com/vmihailenco/msgpack/v5"

	"go.l7mp.io/dbsp/pkg/zset"
)

// DistinctOp is the snapshot-semantics set projection: every document with positive weight
// passes through with weight 1, everything else is dropped. Nonlinear: distinct(a) + distinct(b)
// is not generally distinct(a+b), so this operator cannot be applied directly to a delta stream.
type DistinctOp struct {
	BaseOp
}

// NewDistinct returns a snapshot distinct operator.
func NewDistinct() *DistinctOp {
	return &DistinctOp{BaseOp: NewBaseOp("distinct", 1)}
}

func (op *DistinctOp) OpType() OperatorType              { return OpTypeNonLinear }
func (op *DistinctOp) IsTimeInvariant() bool             { return true }
func (op *DistinctOp) HasZeroPreservationProperty() bool { return true }

func (op *DistinctOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	return inputs[0].Distinct()
}

// IncrementalDistinctOp computes distinct^Δ by the general nonlinear lifting formula
// F^Δ = D ∘ F ∘ I: integrate the incoming delta into a running snapshot, take distinct of that
// snapshot, then differentiate against the previous tick's distinct snapshot to recover the
// delta actually worth emitting downstream.
type IncrementalDistinctOp struct {
	BaseOp
	integrate     *IntegratorOp
	differentiate *DifferentiatorOp
}

// NewIncrementalDistinct returns the incremental counterpart of NewDistinct.
func NewIncrementalDistinct() *IncrementalDistinctOp {
	return &IncrementalDistinctOp{
		BaseOp:        NewBaseOp("distinct^Δ", 1),
		integrate:     NewIntegrator(),
		differentiate: NewDifferentiator(),
	}
}

func (op *IncrementalDistinctOp) OpType() OperatorType              { return OpTypeNonLinear }
func (op *IncrementalDistinctOp) IsTimeInvariant() bool             { return true }
func (op *IncrementalDistinctOp) HasZeroPreservationProperty() bool { return true }

func (op *IncrementalDistinctOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}

	snapshot, err := op.integrate.Process(inputs[0])
	if err != nil {
		return nil, err
	}

	distinctSnapshot, err := snapshot.Distinct()
	if err != nil {
		return nil, err
	}

	return op.differentiate.Process(distinctSnapshot)
}

// distinctState is the msgpack-encoded shape of an incremental distinct's state.
type distinctState struct {
	Integrated *zset.ZSet // integrator's running snapshot
	Prev       *zset.ZSet // differentiator's previous distinct snapshot
}

// ExportState encodes the integrator's and differentiator's internal snapshots.
func (op *IncrementalDistinctOp) ExportState() ([]byte, error) {
	return msgpack.Marshal(distinctState{
		Integrated: op.integrate.state.DeepCopy(),
		Prev:       op.differentiate.prevState.DeepCopy(),
	})
}

// ImportState restores the integrator's and differentiator's internal snapshots from a previous
// ExportState encoding.
func (op *IncrementalDistinctOp) ImportState(data []byte) error {
	var s distinctState
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return newStateDecodeError("IncrementalDistinctOp", err)
	}
	op.integrate.state = s.Integrated
	op.differentiate.prevState = s.Prev
	return nil
}

// Reset clears both the integrator's and differentiator's state.
func (op *IncrementalDistinctOp) Reset() {
	op.integrate.Reset()
	op.differentiate.Reset()
}
