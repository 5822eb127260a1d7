package dbsp

import (
	"fmt"

	"go.l7mp.io/dbsp/pkg/zset"
)

// ProjectionOp applies eval to every document, replacing it with zero or more projected
// documents while carrying the original weight through unchanged. Linear: already incremental.
type ProjectionOp struct {
	BaseOp
	eval Evaluator
}

// NewProjection returns a projection operator driven by eval.
func NewProjection(eval Evaluator) *ProjectionOp {
	return &ProjectionOp{BaseOp: NewBaseOp("π", 1), eval: eval}
}

func (op *ProjectionOp) OpType() OperatorType              { return OpTypeLinear }
func (op *ProjectionOp) IsTimeInvariant() bool             { return true }
func (op *ProjectionOp) HasZeroPreservationProperty() bool { return true }

func (op *ProjectionOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}

	result := zset.New()
	err := inputs[0].ForEach(func(doc zset.Document, weight int) error {
		projected, err := op.eval.Evaluate(zset.DeepCopyDocument(doc))
		if err != nil {
			return err
		}
		for _, out := range projected {
			if err := result.AddMutate(out, weight); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SelectionOp keeps or drops documents according to eval, carrying the original weight through
// for documents that pass. Linear: already incremental.
type SelectionOp struct {
	BaseOp
	eval Evaluator
}

// NewSelection returns a selection operator driven by eval.
func NewSelection(eval Evaluator) *SelectionOp {
	return &SelectionOp{BaseOp: NewBaseOp("σ", 1), eval: eval}
}

func (op *SelectionOp) OpType() OperatorType              { return OpTypeLinear }
func (op *SelectionOp) IsTimeInvariant() bool             { return true }
func (op *SelectionOp) HasZeroPreservationProperty() bool { return true }

func (op *SelectionOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}

	result := zset.New()
	err := inputs[0].ForEach(func(doc zset.Document, weight int) error {
		selected, err := op.eval.Evaluate(doc)
		if err != nil {
			return err
		}
		for _, out := range selected {
			if err := result.AddMutate(out, weight); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UnwindOp flattens an array field: each document with an array of length n under its extracted
// field produces n output documents, each carrying the original weight. Documents without an
// array at that field are dropped, not errored, since heterogeneous input is the normal case for
// document stores. Linear: already incremental.
type UnwindOp struct {
	BaseOp
	arrayExtractor Extractor
	transformer    Transformer
}

// NewUnwind returns an unwind operator: arrayExtractor locates the array to flatten, transformer
// builds the per-element output document.
func NewUnwind(arrayExtractor Extractor, transformer Transformer) *UnwindOp {
	return &UnwindOp{
		BaseOp:         NewBaseOp("unwind", 1),
		arrayExtractor: arrayExtractor,
		transformer:    transformer,
	}
}

func (op *UnwindOp) OpType() OperatorType              { return OpTypeLinear }
func (op *UnwindOp) IsTimeInvariant() bool             { return true }
func (op *UnwindOp) HasZeroPreservationProperty() bool { return true }

func (op *UnwindOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}

	result := zset.New()
	err := inputs[0].ForEach(func(doc zset.Document, weight int) error {
		arrayValue, err := op.arrayExtractor.Extract(doc)
		if err != nil {
			return fmt.Errorf("array extraction failed: %w", err)
		}
		if arrayValue == nil {
			return nil
		}

		elements, ok := arrayValue.([]any)
		if !ok {
			return nil
		}

		for _, element := range elements {
			transformed, err := op.transformer.Transform(zset.DeepCopyDocument(doc), zset.DeepCopyAny(element))
			if err != nil {
				return fmt.Errorf("unwind transform failed: %w", err)
			}
			if err := result.AddMutate(transformed, weight); err != nil {
				return fmt.Errorf("failed to add unwound document: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
