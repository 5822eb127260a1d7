package dbsp

import (
	"cmp"
	"fmt"

	"go.l7mp.io/dbsp/pkg/zset"
)

// SumAggregator folds a group's numeric values into a running total. Values must be int, int64
// or float64; a mix of integer and float values promotes the result to float64.
type SumAggregator struct {
	KeyField string
	SumField string
}

func (a SumAggregator) Transform(_ zset.Document, value any) (zset.Document, error) {
	input, err := asAggregateInput(value)
	if err != nil {
		return nil, err
	}
	var intSum int64
	var floatSum float64
	isFloat := false
	for _, v := range input.Values {
		switch n := v.(type) {
		case int:
			intSum += int64(n)
			floatSum += float64(n)
		case int64:
			intSum += n
			floatSum += float64(n)
		case float64:
			isFloat = true
			floatSum += n
		default:
			return nil, fmt.Errorf("SumAggregator: unsupported value type %T", v)
		}
	}
	if isFloat {
		return zset.Document{a.KeyField: input.Key, a.SumField: floatSum}, nil
	}
	return zset.Document{a.KeyField: input.Key, a.SumField: intSum}, nil
}

func (a SumAggregator) String() string { return "sum(" + a.SumField + ")" }

// CountAggregator folds a group into the number of values it holds, regardless of their type.
type CountAggregator struct {
	KeyField   string
	CountField string
}

func (a CountAggregator) Transform(_ zset.Document, value any) (zset.Document, error) {
	input, err := asAggregateInput(value)
	if err != nil {
		return nil, err
	}
	return zset.Document{a.KeyField: input.Key, a.CountField: int64(len(input.Values))}, nil
}

func (a CountAggregator) String() string { return "count(" + a.CountField + ")" }

// MinAggregator folds a group into its smallest value, comparing same-typed values natively and
// falling back to string comparison across mixed types, matching the ordering GatherOp already
// uses to sort values deterministically.
type MinAggregator struct {
	KeyField string
	MinField string
}

func (a MinAggregator) Transform(_ zset.Document, value any) (zset.Document, error) {
	input, err := asAggregateInput(value)
	if err != nil {
		return nil, err
	}
	if len(input.Values) == 0 {
		return zset.Document{a.KeyField: input.Key, a.MinField: nil}, nil
	}
	min := input.Values[0]
	for _, v := range input.Values[1:] {
		if compareValues(v, min) < 0 {
			min = v
		}
	}
	return zset.Document{a.KeyField: input.Key, a.MinField: min}, nil
}

func (a MinAggregator) String() string { return "min(" + a.MinField + ")" }

// MaxAggregator folds a group into its largest value; see MinAggregator for the comparison rule.
type MaxAggregator struct {
	KeyField string
	MaxField string
}

func (a MaxAggregator) Transform(_ zset.Document, value any) (zset.Document, error) {
	input, err := asAggregateInput(value)
	if err != nil {
		return nil, err
	}
	if len(input.Values) == 0 {
		return zset.Document{a.KeyField: input.Key, a.MaxField: nil}, nil
	}
	max := input.Values[0]
	for _, v := range input.Values[1:] {
		if compareValues(v, max) > 0 {
			max = v
		}
	}
	return zset.Document{a.KeyField: input.Key, a.MaxField: max}, nil
}

func (a MaxAggregator) String() string { return "max(" + a.MaxField + ")" }

func asAggregateInput(value any) (*AggregateInput, error) {
	input, ok := value.(*AggregateInput)
	if !ok {
		return nil, fmt.Errorf("aggregator: expected *AggregateInput, got %T", value)
	}
	return input, nil
}

// compareValues orders two aggregation values, comparing same-typed values natively and falling
// back to their string form across mixed types. Shared by sortValues and the Min/Max aggregators
// so grouped values sort and compare the same way.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case int:
		if bv, ok := b.(int); ok {
			return cmp.Compare(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv)
		}
	}
	return cmp.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}
