package dbsp

import (
	"fmt"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"go.l7mp.io/dbsp/pkg/zset"
)

// GatherOp is the snapshot-semantics grouped aggregation: documents are grouped by
// keyExtractor's result, the grouped values (from valueExtractor) are folded by aggregator into
// one result document per group. Nonlinear, like distinct: it needs the D∘F∘I lifting formula
// (see IncrementalGatherOp) or, as implemented here, an equivalent stateful delta-maintenance
// strategy that avoids re-aggregating groups no delta touched.
type GatherOp struct {
	BaseOp
	keyExtractor   Extractor
	valueExtractor Extractor
	aggregator     Transformer
}

// NewGather returns a snapshot gather/aggregate operator.
func NewGather(keyExtractor, valueExtractor Extractor, aggregator Transformer) *GatherOp {
	return &GatherOp{
		BaseOp:         NewBaseOp("gather", 1),
		keyExtractor:   keyExtractor,
		valueExtractor: valueExtractor,
		aggregator:     aggregator,
	}
}

func (op *GatherOp) OpType() OperatorType              { return OpTypeNonLinear }
func (op *GatherOp) IsTimeInvariant() bool             { return true }
func (op *GatherOp) HasZeroPreservationProperty() bool { return true }

func (op *GatherOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}

	groups, err := op.group(inputs[0])
	if err != nil {
		return nil, err
	}

	result := zset.New()
	for _, g := range groups {
		resultDoc, err := op.fold(g)
		if err != nil {
			return nil, err
		}
		if err := result.AddMutate(resultDoc, 1); err != nil {
			return nil, fmt.Errorf("failed to add aggregate result: %w", err)
		}
	}
	return result, nil
}

// groupData accumulates one aggregation group's representative document and value list.
type groupData struct {
	key      any
	values   []any
	document zset.Document
}

func (op *GatherOp) group(input *zset.ZSet) (map[string]*groupData, error) {
	groups := make(map[string]*groupData)

	err := input.ForEach(func(doc zset.Document, weight int) error {
		groupKey, err := op.keyExtractor.Extract(doc)
		if err != nil {
			return fmt.Errorf("key extraction failed: %w", err)
		}
		if groupKey == nil {
			return nil
		}

		value, err := op.valueExtractor.Extract(doc)
		if err != nil {
			return fmt.Errorf("value extraction failed: %w", err)
		}
		if value == nil {
			return nil
		}

		mapKey, err := computeGroupKey(groupKey)
		if err != nil {
			return err
		}

		g, ok := groups[mapKey]
		if !ok {
			g = &groupData{key: groupKey, document: doc}
			groups[mapKey] = g
		}

		switch {
		case weight > 0:
			for i := 0; i < weight; i++ {
				g.values = append(g.values, value)
			}
		case weight < 0:
			for i := 0; i < -weight; i++ {
				g.values = removeFirstMatch(g.values, value)
			}
		}
		return nil
	})
	return groups, err
}

func (op *GatherOp) fold(g *groupData) (zset.Document, error) {
	if SortGatherValues && len(g.values) > 1 {
		sortValues(g.values)
	}
	return op.aggregator.Transform(zset.DeepCopyDocument(g.document), &AggregateInput{
		Key:    g.key,
		Values: g.values,
	})
}

// AggregateInput is passed to an aggregator Transformer: the group key and the (possibly
// sorted) list of extracted values belonging to the group.
type AggregateInput struct {
	Key    any
	Values []any
}

// IncrementalGatherOp maintains grouped aggregates incrementally: instead of recomputing every
// group on every tick, it keeps the running value list per group and only re-folds groups that a
// delta actually touched, emitting the difference between each touched group's previous and new
// result document as delta entries.
type IncrementalGatherOp struct {
	BaseOp
	keyExtractor   Extractor
	valueExtractor Extractor
	aggregator     Transformer

	groups map[string]*groupData        // live per-group running state
	prev   map[string]zset.Document     // last emitted result document per group
}

// NewIncrementalGather returns the incremental counterpart of NewGather.
func NewIncrementalGather(keyExtractor, valueExtractor Extractor, aggregator Transformer) *IncrementalGatherOp {
	return &IncrementalGatherOp{
		BaseOp:         NewBaseOp("gather^Δ", 1),
		keyExtractor:   keyExtractor,
		valueExtractor: valueExtractor,
		aggregator:     aggregator,
		groups:         make(map[string]*groupData),
		prev:           make(map[string]zset.Document),
	}
}

func (op *IncrementalGatherOp) OpType() OperatorType              { return OpTypeNonLinear }
func (op *IncrementalGatherOp) IsTimeInvariant() bool             { return true }
func (op *IncrementalGatherOp) HasZeroPreservationProperty() bool { return true }

func (op *IncrementalGatherOp) Process(inputs ...*zset.ZSet) (*zset.ZSet, error) {
	if err := op.validateInputs(inputs); err != nil {
		return nil, err
	}

	touched := make(map[string]bool)

	err := inputs[0].ForEach(func(doc zset.Document, weight int) error {
		groupKey, err := op.keyExtractor.Extract(doc)
		if err != nil {
			return fmt.Errorf("key extraction failed: %w", err)
		}
		if groupKey == nil {
			return nil
		}

		value, err := op.valueExtractor.Extract(doc)
		if err != nil {
			return fmt.Errorf("value extraction failed: %w", err)
		}
		if value == nil {
			return nil
		}

		mapKey, err := computeGroupKey(groupKey)
		if err != nil {
			return err
		}
		touched[mapKey] = true

		g, ok := op.groups[mapKey]
		if !ok {
			g = &groupData{key: groupKey, document: doc}
			op.groups[mapKey] = g
		}
		g.document = doc

		switch {
		case weight > 0:
			for i := 0; i < weight; i++ {
				g.values = append(g.values, value)
			}
		case weight < 0:
			for i := 0; i < -weight; i++ {
				g.values = removeFirstMatch(g.values, value)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := zset.New()
	for mapKey := range touched {
		g := op.groups[mapKey]

		if old, ok := op.prev[mapKey]; ok {
			if err := result.AddMutate(old, -1); err != nil {
				return nil, err
			}
		}

		if len(g.values) == 0 {
			delete(op.groups, mapKey)
			delete(op.prev, mapKey)
			continue
		}

		newDoc, err := op.fold(g)
		if err != nil {
			return nil, err
		}
		if err := result.AddMutate(newDoc, 1); err != nil {
			return nil, err
		}
		op.prev[mapKey] = newDoc
	}

	return result, nil
}

func (op *IncrementalGatherOp) fold(g *groupData) (zset.Document, error) {
	if SortGatherValues && len(g.values) > 1 {
		sortValues(g.values)
	}
	return op.aggregator.Transform(zset.DeepCopyDocument(g.document), &AggregateInput{
		Key:    g.key,
		Values: g.values,
	})
}

// groupDTO is groupData with its fields exported, the wire shape msgpack actually encodes.
type groupDTO struct {
	Key      any
	Values   []any
	Document zset.Document
}

// gatherState is the wire shape of an incremental gather's state.
type gatherState struct {
	Groups map[string]groupDTO
	Prev   map[string]zset.Document
}

// ExportState encodes the live per-group running state and the last-emitted documents.
func (op *IncrementalGatherOp) ExportState() ([]byte, error) {
	groups := make(map[string]groupDTO, len(op.groups))
	for k, g := range op.groups {
		groups[k] = groupDTO{Key: g.key, Values: append([]any{}, g.values...), Document: zset.DeepCopyDocument(g.document)}
	}
	prev := make(map[string]zset.Document, len(op.prev))
	for k, d := range op.prev {
		prev[k] = zset.DeepCopyDocument(d)
	}
	return msgpack.Marshal(gatherState{Groups: groups, Prev: prev})
}

// ImportState restores the live per-group running state and the last-emitted documents from a
// previous ExportState encoding.
func (op *IncrementalGatherOp) ImportState(data []byte) error {
	var s gatherState
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return newStateDecodeError("IncrementalGatherOp", err)
	}
	groups := make(map[string]*groupData, len(s.Groups))
	for k, g := range s.Groups {
		groups[k] = &groupData{key: g.Key, values: g.Values, document: g.Document}
	}
	op.groups = groups
	op.prev = s.Prev
	return nil
}

// Reset clears all group state.
func (op *IncrementalGatherOp) Reset() {
	op.groups = make(map[string]*groupData)
	op.prev = make(map[string]zset.Document)
}

func computeGroupKey(key any) (string, error) {
	k, err := zset.CanonicalKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to compute group key: %w", err)
	}
	return k, nil
}

func removeFirstMatch(values []any, item any) []any {
	itemKey, err := zset.CanonicalKey(item)
	if err != nil {
		return values
	}
	for i, v := range values {
		vKey, err := zset.CanonicalKey(v)
		if err == nil && vKey == itemKey {
			return append(values[:i], values[i+1:]...)
		}
	}
	return values
}

// sortValues orders a heterogeneous value list for deterministic aggregate output using the same
// comparison rule as MinAggregator/MaxAggregator.
func sortValues(values []any) {
	slices.SortFunc(values, compareValues)
}
