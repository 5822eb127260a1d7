package dbsp

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"go.l7mp.io/dbsp/pkg/zset"
)

// JoinOp is the snapshot-semantics n-ary join: it takes the cartesian product of its n input
// Z-sets, applies eval to each combination (presented to eval as a document keyed by input
// name), and sums the results with multiplicity equal to the product of the n input weights.
// Bilinear in pairs of inputs, not incremental on its own.
type JoinOp struct {
	BaseOp
	eval   Evaluator
	inputs []string
}

// NewJoin returns a snapshot n-ary join over the named inputs.
func NewJoin(eval Evaluator, inputs []string) *JoinOp {
	return &JoinOp{
		BaseOp: NewBaseOp(fmt.Sprintf("snapshot-join/%d", len(inputs)), len(inputs)),
		eval:   eval,
		inputs: inputs,
	}
}

func (op *JoinOp) OpType() OperatorType              { return OpTypeBilinear }
func (op *JoinOp) IsTimeInvariant() bool             { return true }
func (op *JoinOp) HasZeroPreservationProperty() bool { return true }

func (op *JoinOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	n := len(op.inputs)
	return cartesianJoin(op.eval, op.inputs, inputs, 0, make([]zset.Document, n), make([]int, n))
}

// IncrementalJoinOp is the incremental n-ary join: Q^Δ over the full bilinear expansion,
// Σ over all 2^n-1 nonempty subsets S of inputs, of Q(terms where inputs in S use the current
// delta and inputs not in S use the accumulated snapshot of all prior deltas). This computes the
// same result as differentiating the snapshot join at every tick, without ever materializing the
// snapshot join itself.
type IncrementalJoinOp struct {
	BaseOp
	eval       Evaluator
	inputs     []string
	prevStates []*zset.ZSet
}

// NewIncrementalJoin returns the incremental counterpart of NewJoin.
func NewIncrementalJoin(eval Evaluator, inputs []string) *IncrementalJoinOp {
	prev := make([]*zset.ZSet, len(inputs))
	for i := range prev {
		prev[i] = zset.New()
	}
	return &IncrementalJoinOp{
		BaseOp:     NewBaseOp(fmt.Sprintf("⋈/%d", len(inputs)), len(inputs)),
		eval:       eval,
		inputs:     inputs,
		prevStates: prev,
	}
}

func (op *IncrementalJoinOp) OpType() OperatorType              { return OpTypeBilinear }
func (op *IncrementalJoinOp) IsTimeInvariant() bool             { return true }
func (op *IncrementalJoinOp) HasZeroPreservationProperty() bool { return true }

func (op *IncrementalJoinOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}

	n := len(op.inputs)
	result := zset.New()
	for mask := 1; mask < (1 << n); mask++ {
		term, err := op.computeTerm(inputs, mask)
		if err != nil {
			return nil, err
		}
		result, err = result.Add(term)
		if err != nil {
			return nil, err
		}
	}

	for i, delta := range inputs {
		updated, err := op.prevStates[i].Add(delta)
		if err != nil {
			return nil, err
		}
		op.prevStates[i] = updated
	}

	return result, nil
}

func (op *IncrementalJoinOp) computeTerm(inputs []*zset.ZSet, mask int) (*zset.ZSet, error) {
	n := len(op.inputs)
	termInputs := make([]*zset.ZSet, n)
	for i := 0; i < n; i++ {
		if mask&(1<<i) != 0 {
			termInputs[i] = inputs[i]
		} else {
			termInputs[i] = op.prevStates[i]
		}
	}
	return cartesianJoin(op.eval, op.inputs, termInputs, 0, make([]zset.Document, n), make([]int, n))
}

// ExportState encodes the accumulated per-input snapshots.
func (op *IncrementalJoinOp) ExportState() ([]byte, error) {
	out := make([]*zset.ZSet, len(op.prevStates))
	for i, s := range op.prevStates {
		out[i] = s.DeepCopy()
	}
	return msgpack.Marshal(out)
}

// ImportState restores the accumulated per-input snapshots from a previous ExportState encoding.
func (op *IncrementalJoinOp) ImportState(data []byte) error {
	var zs []*zset.ZSet
	if err := msgpack.Unmarshal(data, &zs); err != nil {
		return newStateDecodeError("IncrementalJoinOp", err)
	}
	if len(zs) != len(op.prevStates) {
		return newStateDecodeError("IncrementalJoinOp", fmt.Errorf("expected %d inputs, got %d", len(op.prevStates), len(zs)))
	}
	op.prevStates = zs
	return nil
}

// Reset clears the accumulated snapshots back to empty.
func (op *IncrementalJoinOp) Reset() {
	for i := range op.prevStates {
		op.prevStates[i] = zset.New()
	}
}

func cartesianJoin(eval Evaluator, names []string, inputs []*zset.ZSet, idx int, docs []zset.Document, weights []int) (*zset.ZSet, error) {
	if idx == len(names) {
		joinInput := make(zset.Document, len(names))
		total := 1
		for i, doc := range docs {
			joinInput[names[i]] = doc
			total *= weights[i]
		}

		joined, err := eval.Evaluate(joinInput)
		if err != nil {
			return nil, err
		}

		result := zset.New()
		for _, out := range joined {
			if err := result.AddMutate(zset.DeepCopyDocument(out), total); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	result := zset.New()
	input := inputs[idx]
	err := input.ForEach(func(doc zset.Document, weight int) error {
		docs[idx] = doc
		weights[idx] = weight

		term, err := cartesianJoin(eval, names, inputs, idx+1, docs, weights)
		if err != nil {
			return err
		}
		result, err = result.Add(term)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BinaryJoinOp is the two-input specialization of JoinOp, used directly by the bilinear
// expansion performed by IncrementalBinaryJoinOp. Unlike JoinOp it is a true IZ[K,V] join per
// §4.1: both inputs are indexed by their join key and only documents that land in the same
// group are ever paired, rather than the full cartesian product of the two Z-sets.
type BinaryJoinOp struct {
	BaseOp
	inputs            []string
	eval              Evaluator
	leftKey, rightKey Extractor
}

// NewBinaryJoin returns a snapshot binary join. leftKey and rightKey extract the join key from a
// document on each side; only documents whose keys compare equal are ever passed to eval.
func NewBinaryJoin(eval Evaluator, inputs []string, leftKey, rightKey Extractor) *BinaryJoinOp {
	return &BinaryJoinOp{BaseOp: NewBaseOp("⋈", 2), eval: eval, inputs: inputs, leftKey: leftKey, rightKey: rightKey}
}

func (op *BinaryJoinOp) OpType() OperatorType              { return OpTypeBilinear }
func (op *BinaryJoinOp) IsTimeInvariant() bool             { return true }
func (op *BinaryJoinOp) HasZeroPreservationProperty() bool { return true }

func (op *BinaryJoinOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}

	left, right := inputs[0], inputs[1]

	leftIndex, err := zset.Index(left, op.leftKey.Extract)
	if err != nil {
		return nil, fmt.Errorf("%s: indexing left input: %w", op.Name(), err)
	}
	rightIndex, err := zset.Index(right, op.rightKey.Extract)
	if err != nil {
		return nil, fmt.Errorf("%s: indexing right input: %w", op.Name(), err)
	}

	result := zset.New()
	err = leftIndex.ForEachGroup(func(key any, leftGroup *zset.ZSet) error {
		rightGroup, err := rightIndex.Get(key)
		if err != nil {
			return err
		}
		if rightGroup.IsZero() {
			return nil
		}
		return leftGroup.ForEach(func(leftDoc zset.Document, leftWeight int) error {
			return rightGroup.ForEach(func(rightDoc zset.Document, rightWeight int) error {
				joinInput := zset.Document{op.inputs[0]: leftDoc, op.inputs[1]: rightDoc}

				joined, err := op.eval.Evaluate(joinInput)
				if err != nil {
					return err
				}

				resultWeight := leftWeight * rightWeight
				for _, out := range joined {
					if err := result.AddMutate(zset.DeepCopyDocument(out), resultWeight); err != nil {
						return err
					}
				}
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IncrementalBinaryJoinOp computes Q^Δ(L, R) for a two-input join using the three-term bilinear
// expansion: Q(ΔL, ΔR) + Q(L_{t-1}, ΔR) + Q(ΔL, R_{t-1}). Each term is itself a snapshot
// BinaryJoinOp over the appropriate pair of delta/accumulated-snapshot inputs.
type IncrementalBinaryJoinOp struct {
	BaseOp
	eval              Evaluator
	inputs            []string
	leftKey, rightKey Extractor

	prevLeft  *zset.ZSet
	prevRight *zset.ZSet

	termDD *BinaryJoinOp // ΔL ⋈ ΔR
	termSD *BinaryJoinOp // L_{t-1} ⋈ ΔR
	termDS *BinaryJoinOp // ΔL ⋈ R_{t-1}
}

// NewIncrementalBinaryJoin returns the incremental counterpart of NewBinaryJoin.
func NewIncrementalBinaryJoin(eval Evaluator, inputs []string, leftKey, rightKey Extractor) *IncrementalBinaryJoinOp {
	return &IncrementalBinaryJoinOp{
		BaseOp:    NewBaseOp("incremental-⋈", 2),
		eval:      eval,
		inputs:    inputs,
		leftKey:   leftKey,
		rightKey:  rightKey,
		prevLeft:  zset.New(),
		prevRight: zset.New(),
		termDD:    NewBinaryJoin(eval, inputs, leftKey, rightKey),
		termSD:    NewBinaryJoin(eval, inputs, leftKey, rightKey),
		termDS:    NewBinaryJoin(eval, inputs, leftKey, rightKey),
	}
}

func (op *IncrementalBinaryJoinOp) OpType() OperatorType              { return OpTypeBilinear }
func (op *IncrementalBinaryJoinOp) IsTimeInvariant() bool             { return true }
func (op *IncrementalBinaryJoinOp) HasZeroPreservationProperty() bool { return true }

func (op *IncrementalBinaryJoinOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}
	deltaL, deltaR := inputs[0], inputs[1]

	dd, err := op.termDD.Process(deltaL, deltaR)
	if err != nil {
		return nil, fmt.Errorf("ΔL ⋈ ΔR: %w", err)
	}
	sd, err := op.termSD.Process(op.prevLeft, deltaR)
	if err != nil {
		return nil, fmt.Errorf("L ⋈ ΔR: %w", err)
	}
	ds, err := op.termDS.Process(deltaL, op.prevRight)
	if err != nil {
		return nil, fmt.Errorf("ΔL ⋈ R: %w", err)
	}

	result, err := dd.Add(sd)
	if err != nil {
		return nil, err
	}
	result, err = result.Add(ds)
	if err != nil {
		return nil, err
	}

	if op.prevLeft, err = op.prevLeft.Add(deltaL); err != nil {
		return nil, err
	}
	if op.prevRight, err = op.prevRight.Add(deltaR); err != nil {
		return nil, err
	}

	return result, nil
}

// joinState is the msgpack-encoded shape of an incremental binary join's state.
type joinState struct {
	Left  *zset.ZSet
	Right *zset.ZSet
}

// ExportState encodes the accumulated left and right snapshots.
func (op *IncrementalBinaryJoinOp) ExportState() ([]byte, error) {
	return msgpack.Marshal(joinState{Left: op.prevLeft.DeepCopy(), Right: op.prevRight.DeepCopy()})
}

// ImportState restores the accumulated left and right snapshots from a previous ExportState
// encoding.
func (op *IncrementalBinaryJoinOp) ImportState(data []byte) error {
	var s joinState
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return newStateDecodeError("IncrementalBinaryJoinOp", err)
	}
	op.prevLeft, op.prevRight = s.Left, s.Right
	return nil
}

// Reset clears both accumulated snapshots back to empty.
func (op *IncrementalBinaryJoinOp) Reset() {
	op.prevLeft = zset.New()
	op.prevRight = zset.New()
}
