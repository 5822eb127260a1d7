package dbsp_test

import (
	"fmt"

	"go.l7mp.io/dbsp/pkg/dbsp"
	"go.l7mp.io/dbsp/pkg/zset"
)

// fieldEquals is a small Evaluator used throughout the test suite: it passes a document through
// unchanged if field == value, drops it otherwise.
type fieldEquals struct {
	field string
	value any
}

func (f fieldEquals) Evaluate(doc zset.Document) ([]zset.Document, error) {
	if doc[f.field] == f.value {
		return []zset.Document{doc}, nil
	}
	return nil, nil
}

func (f fieldEquals) String() string { return fmt.Sprintf("%s == %v", f.field, f.value) }

// dropField projects a document by removing one field.
type dropField struct{ field string }

func (d dropField) Evaluate(doc zset.Document) ([]zset.Document, error) {
	out := zset.DeepCopyDocument(doc)
	delete(out, d.field)
	return []zset.Document{out}, nil
}

func (d dropField) String() string { return "drop(" + d.field + ")" }

// extractField extracts a named field's value.
type extractField struct{ field string }

func (e extractField) Extract(doc zset.Document) (any, error) { return doc[e.field], nil }
func (e extractField) String() string                         { return "extract(" + e.field + ")" }

// equalJoin joins two inputs on a field of the same name on both sides.
type equalJoin struct {
	inputs []string
	field  string
}

func (j equalJoin) Evaluate(doc zset.Document) ([]zset.Document, error) {
	left, ok := doc[j.inputs[0]].(zset.Document)
	if !ok {
		return nil, nil
	}
	right, ok := doc[j.inputs[1]].(zset.Document)
	if !ok {
		return nil, nil
	}
	if left[j.field] != right[j.field] {
		return nil, nil
	}
	out := zset.Document{j.field: left[j.field]}
	for k, v := range left {
		out["left_"+k] = v
	}
	for k, v := range right {
		out["right_"+k] = v
	}
	return []zset.Document{out}, nil
}

func (j equalJoin) String() string { return fmt.Sprintf("%s.%s = %s.%s", j.inputs[0], j.field, j.inputs[1], j.field) }

// sumAggregator folds a group's int64 values into a sum field.
type sumAggregator struct{ keyField, sumField string }

func (s sumAggregator) Transform(doc zset.Document, value any) (zset.Document, error) {
	input := value.(*dbsp.AggregateInput)
	var sum int64
	for _, v := range input.Values {
		sum += v.(int64)
	}
	return zset.Document{s.keyField: input.Key, s.sumField: sum}, nil
}

func (s sumAggregator) String() string { return "sum(" + s.sumField + ")" }

func zsetOf(entries ...zset.Entry) *zset.ZSet {
	z := zset.New()
	for _, e := range entries {
		if err := z.AddMutate(e.Document, e.Weight); err != nil {
			panic(err)
		}
	}
	return z
}

func entry(doc zset.Document, weight int) zset.Entry { return zset.Entry{Document: doc, Weight: weight} }
