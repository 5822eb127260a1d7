package dbsp

import (
	"fmt"

	"go.l7mp.io/dbsp/pkg/zset"
)

// InputOp is a source node: it has no stream inputs and emits whatever Z-set was most recently
// handed to it via SetData, once, then reverts to emitting the zero Z-set until SetData is
// called again. A caller driving it calls SetData once per tick before invoking Process;
// Circuit.Tick does not use InputOp, it feeds source streams from its inputs map directly.
type InputOp struct {
	BaseOp
	data *zset.ZSet
}

// NewInput returns a named input node, initially emitting the zero Z-set.
func NewInput(name string) *InputOp {
	return &InputOp{BaseOp: NewBaseOp("input:"+name, 0), data: zset.New()}
}

func (op *InputOp) OpType() OperatorType              { return OpTypeLinear }
func (op *InputOp) IsTimeInvariant() bool             { return true }
func (op *InputOp) HasZeroPreservationProperty() bool { return true }

func (op *InputOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	out := op.data
	op.data = zset.New()
	return out, nil
}

// SetData supplies the Z-set this node will emit on its next Process call.
func (op *InputOp) SetData(data *zset.ZSet) { op.data = data }

// ConstantOp is a source node that emits the same fixed Z-set on every tick.
type ConstantOp struct {
	BaseOp
	value *zset.ZSet
}

// NewConstant returns a named constant node emitting value on every tick.
func NewConstant(value *zset.ZSet, name string) *ConstantOp {
	return &ConstantOp{BaseOp: NewBaseOp("const:"+name, 0), value: value}
}

func (op *ConstantOp) OpType() OperatorType              { return OpTypeLinear }
func (op *ConstantOp) IsTimeInvariant() bool             { return true }
func (op *ConstantOp) HasZeroPreservationProperty() bool { return op.value.IsZero() }

func (op *ConstantOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	return op.value.DeepCopy(), nil
}

// AddOp computes the Z-set sum of its two inputs.
type AddOp struct{ BaseOp }

// NewAdd returns a binary Z-set addition node.
func NewAdd() *AddOp { return &AddOp{BaseOp: NewBaseOp("+", 2)} }

func (op *AddOp) OpType() OperatorType              { return OpTypeLinear }
func (op *AddOp) IsTimeInvariant() bool             { return true }
func (op *AddOp) HasZeroPreservationProperty() bool { return true }

func (op *AddOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	return inputs[0].Add(inputs[1])
}

// SubtractOp computes the Z-set difference of its two inputs.
type SubtractOp struct{ BaseOp }

// NewSubtract returns a binary Z-set subtraction node.
func NewSubtract() *SubtractOp { return &SubtractOp{BaseOp: NewBaseOp("-", 2)} }

func (op *SubtractOp) OpType() OperatorType              { return OpTypeLinear }
func (op *SubtractOp) IsTimeInvariant() bool             { return true }
func (op *SubtractOp) HasZeroPreservationProperty() bool { return true }

func (op *SubtractOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	return inputs[0].Subtract(inputs[1])
}

// NegateOp computes the additive inverse of its input.
type NegateOp struct{ BaseOp }

// NewNegate returns a unary Z-set negation node.
func NewNegate() *NegateOp { return &NegateOp{BaseOp: NewBaseOp("neg", 1)} }

func (op *NegateOp) OpType() OperatorType              { return OpTypeLinear }
func (op *NegateOp) IsTimeInvariant() bool             { return true }
func (op *NegateOp) HasZeroPreservationProperty() bool { return true }

func (op *NegateOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	return inputs[0].Negate()
}

// FusedOp chains a sequence of unary operators into a single node, so the scheduler walks one
// node instead of a run of single-input, single-output nodes. Used by the circuit builder's
// optional fusion pass to collapse filter→project chains produced by query planning.
type FusedOp struct {
	BaseOp
	nodes []Operator
}

// NewFusedOp chains nodes into a single operator. Every node after the first must have arity 1;
// the fused operator's own arity is taken from the first node.
func NewFusedOp(name string, nodes []Operator) (*FusedOp, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("cannot fuse an empty operator chain")
	}
	for i, n := range nodes[1:] {
		if n.Arity() != 1 {
			return nil, fmt.Errorf("fused operator chain: node %d (%s) has arity %d, want 1", i+1, n.Name(), n.Arity())
		}
	}
	return &FusedOp{BaseOp: NewBaseOp("fused:"+name, nodes[0].Arity()), nodes: nodes}, nil
}

func (op *FusedOp) OpType() OperatorType              { return OpTypeLinear }
func (op *FusedOp) IsTimeInvariant() bool             { return true }
func (op *FusedOp) HasZeroPreservationProperty() bool { return true }

func (op *FusedOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}

	result, err := op.nodes[0].Process(inputs...)
	if err != nil {
		return nil, fmt.Errorf("fused node %s: step 0 (%s): %w", op.Name(), op.nodes[0].Name(), err)
	}

	for i, node := range op.nodes[1:] {
		result, err = node.Process(result)
		if err != nil {
			return nil, fmt.Errorf("fused node %s: step %d (%s): %w", op.Name(), i+1, node.Name(), err)
		}
	}
	return result, nil
}

// FuseFilterProject builds the common filter-then-project fusion.
func FuseFilterProject(filter *SelectionOp, project *ProjectionOp) (Operator, error) {
	return NewFusedOp(fmt.Sprintf("%s→%s", filter.Name(), project.Name()), []Operator{filter, project})
}
