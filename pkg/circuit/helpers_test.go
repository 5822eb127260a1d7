package circuit_test

import (
	"fmt"

	"go.l7mp.io/dbsp/pkg/zset"
)

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
func (j equalJoin) String() string {
	return fmt.Sprintf("%s.%s = %s.%s", j.inputs[0], j.field, j.inputs[1], j.field)
}

// extractField extracts a named field's value, used as the join-key extractor passed to
// NewBinaryJoin/NewIncrementalBinaryJoin alongside equalJoin.
type extractField struct{ field string }

func (e extractField) Extract(doc zset.Document) (any, error) { return doc[e.field], nil }
func (e extractField) String() string                         { return "extract(" + e.field + ")" }

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
