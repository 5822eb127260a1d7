package snapshot_test

import "go.l7mp.io/dbsp/pkg/zset"

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
