package dbsp

import (
	"github.com/vmihailenco/msgpack/v5"

	"go.l7mp.io/dbsp/pkg/zset"
)

// IntegratorOp implements I, the running-sum operator: I(s)[t] = Σ_{i=0}^{t} s[i]. Feeding a
// delta stream through an integrator recovers the corresponding snapshot stream. Linear and
// stateful.
type IntegratorOp struct {
	BaseOp
	state *zset.ZSet
}

// NewIntegrator returns an integrator starting from the zero Z-set.
func NewIntegrator() *IntegratorOp {
	return &IntegratorOp{BaseOp: NewBaseOp("I", 1), state: zset.New()}
}

func (op *IntegratorOp) OpType() OperatorType              { return OpTypeLinear }
func (op *IntegratorOp) IsTimeInvariant() bool             { return true }
func (op *IntegratorOp) HasZeroPreservationProperty() bool { return true }

func (op *IntegratorOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	updated, err := op.state.Add(inputs[0])
	if err != nil {
		return nil, err
	}
	op.state = updated
	return op.state.DeepCopy(), nil
}

// ExportState encodes the running snapshot.
func (op *IntegratorOp) ExportState() ([]byte, error) { return msgpack.Marshal(op.state) }

// ImportState restores the running snapshot from a previous ExportState encoding.
func (op *IntegratorOp) ImportState(data []byte) error {
	z := zset.New()
	if err := msgpack.Unmarshal(data, z); err != nil {
		return newStateDecodeError("IntegratorOp", err)
	}
	op.state = z
	return nil
}

// Reset clears the running snapshot back to the zero Z-set.
func (op *IntegratorOp) Reset() { op.state = zset.New() }

// DifferentiatorOp implements D, the finite-difference operator: D(s)[t] = s[t] - s[t-1]. It is
// the left inverse of IntegratorOp: D(I(s)) = s. Linear and stateful.
type DifferentiatorOp struct {
	BaseOp
	prevState *zset.ZSet
}

// NewDifferentiator returns a differentiator starting from the zero Z-set.
func NewDifferentiator() *DifferentiatorOp {
	return &DifferentiatorOp{BaseOp: NewBaseOp("D", 1), prevState: zset.New()}
}

func (op *DifferentiatorOp) OpType() OperatorType              { return OpTypeLinear }
func (op *DifferentiatorOp) IsTimeInvariant() bool             { return true }
func (op *DifferentiatorOp) HasZeroPreservationProperty() bool { return true }

func (op *DifferentiatorOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	snapshot := inputs[0]

	delta, err := snapshot.Subtract(op.prevState)
	if err != nil {
		return nil, err
	}
	op.prevState = snapshot.DeepCopy()
	return delta, nil
}

// ExportState encodes the previous snapshot.
func (op *DifferentiatorOp) ExportState() ([]byte, error) { return msgpack.Marshal(op.prevState) }

// ImportState restores the previous snapshot from a previous ExportState encoding.
func (op *DifferentiatorOp) ImportState(data []byte) error {
	z := zset.New()
	if err := msgpack.Unmarshal(data, z); err != nil {
		return newStateDecodeError("DifferentiatorOp", err)
	}
	op.prevState = z
	return nil
}

// Reset clears the previous snapshot back to the zero Z-set.
func (op *DifferentiatorOp) Reset() { op.prevState = zset.New() }

// DelayOp implements z⁻¹, the unit delay: it outputs whatever it was given on the previous tick
// and buffers the current input for next time, starting from the zero Z-set. DelayOp is the only
// operator through which a feedback edge is allowed to close a cycle in a circuit, since it is
// the only operator whose output at tick t does not depend on its input at tick t.
type DelayOp struct {
	BaseOp
	buffer *zset.ZSet
}

// NewDelay returns a delay operator whose initial buffered value is the zero Z-set.
func NewDelay() *DelayOp {
	return &DelayOp{BaseOp: NewBaseOp("z⁻¹", 1), buffer: zset.New()}
}

func (op *DelayOp) OpType() OperatorType              { return OpTypeLinear }
func (op *DelayOp) IsTimeInvariant() bool             { return true }
func (op *DelayOp) HasZeroPreservationProperty() bool { return true }

func (op *DelayOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	output := op.Peek()
	if err := op.Latch(inputs[0]); err != nil {
		return nil, err
	}
	return output, nil
}

// Peek returns this tick's output, the value buffered on the previous tick, without touching the
// buffer. A scheduler calls this during the fire-every-operator-once phase, before the feedback
// producer feeding this delay has necessarily run.
func (op *DelayOp) Peek() *zset.ZSet { return op.buffer.DeepCopy() }

// Latch replaces the buffer with value, becoming the output on the next tick. A scheduler calls
// this once per delay, after every operator has fired, per the four-step tick algorithm.
func (op *DelayOp) Latch(value *zset.ZSet) error {
	op.buffer = value.DeepCopy()
	return nil
}

// ExportState encodes the buffered value.
func (op *DelayOp) ExportState() ([]byte, error) { return msgpack.Marshal(op.buffer) }

// ImportState restores the buffered value from a previous ExportState encoding.
func (op *DelayOp) ImportState(data []byte) error {
	z := zset.New()
	if err := msgpack.Unmarshal(data, z); err != nil {
		return newStateDecodeError("DelayOp", err)
	}
	op.buffer = z
	return nil
}

// Reset clears the buffered value back to the zero Z-set.
func (op *DelayOp) Reset() { op.buffer = zset.New() }
