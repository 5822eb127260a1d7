package dbsp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.l7mp.io/dbsp/pkg/dbsp"
	"go.l7mp.io/dbsp/pkg/zset"
)

var _ = Describe("GatherOp", func() {
	It("sums grouped values per key", func() {
		op := dbsp.NewGather(extractField{field: "dept"}, extractField{field: "amount"}, sumAggregator{keyField: "dept", sumField: "total"})

		input := zsetOf(
			entry(zset.Document{"dept": "eng", "amount": int64(10)}, 1),
			entry(zset.Document{"dept": "eng", "amount": int64(20)}, 1),
			entry(zset.Document{"dept": "sales", "amount": int64(5)}, 1),
		)

		result, err := op.Process(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.UniqueCount()).To(Equal(2))

		contains, err := result.Contains(zset.Document{"dept": "eng", "total": int64(30)})
		Expect(err).NotTo(HaveOccurred())
		Expect(contains).To(BeTrue())
	})

	It("drops documents without a grouping key", func() {
		op := dbsp.NewGather(extractField{field: "dept"}, extractField{field: "amount"}, sumAggregator{keyField: "dept", sumField: "total"})
		input := zsetOf(entry(zset.Document{"amount": int64(10)}, 1))

		result, err := op.Process(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsZero()).To(BeTrue())
	})
})

var _ = Describe("built-in aggregators", func() {
	It("SumAggregator sums integer values", func() {
		op := dbsp.NewGather(extractField{field: "dept"}, extractField{field: "amount"}, dbsp.SumAggregator{KeyField: "dept", SumField: "total"})
		input := zsetOf(
			entry(zset.Document{"dept": "eng", "amount": int64(10)}, 1),
			entry(zset.Document{"dept": "eng", "amount": int64(20)}, 1),
		)
		result, err := op.Process(input)
		Expect(err).NotTo(HaveOccurred())
		contains, err := result.Contains(zset.Document{"dept": "eng", "total": int64(30)})
		Expect(err).NotTo(HaveOccurred())
		Expect(contains).To(BeTrue())
	})

	It("CountAggregator counts values regardless of type", func() {
		op := dbsp.NewGather(extractField{field: "dept"}, extractField{field: "amount"}, dbsp.CountAggregator{KeyField: "dept", CountField: "n"})
		input := zsetOf(
			entry(zset.Document{"dept": "eng", "amount": int64(10)}, 1),
			entry(zset.Document{"dept": "eng", "amount": int64(20)}, 1),
			entry(zset.Document{"dept": "eng", "amount": int64(30)}, 1),
		)
		result, err := op.Process(input)
		Expect(err).NotTo(HaveOccurred())
		contains, err := result.Contains(zset.Document{"dept": "eng", "n": int64(3)})
		Expect(err).NotTo(HaveOccurred())
		Expect(contains).To(BeTrue())
	})

	It("MinAggregator and MaxAggregator find the extremes of a group", func() {
		minOp := dbsp.NewGather(extractField{field: "dept"}, extractField{field: "amount"}, dbsp.MinAggregator{KeyField: "dept", MinField: "lo"})
		maxOp := dbsp.NewGather(extractField{field: "dept"}, extractField{field: "amount"}, dbsp.MaxAggregator{KeyField: "dept", MaxField: "hi"})
		input := zsetOf(
			entry(zset.Document{"dept": "eng", "amount": int64(30)}, 1),
			entry(zset.Document{"dept": "eng", "amount": int64(10)}, 1),
			entry(zset.Document{"dept": "eng", "amount": int64(20)}, 1),
		)

		minResult, err := minOp.Process(input)
		Expect(err).NotTo(HaveOccurred())
		containsMin, err := minResult.Contains(zset.Document{"dept": "eng", "lo": int64(10)})
		Expect(err).NotTo(HaveOccurred())
		Expect(containsMin).To(BeTrue())

		maxResult, err := maxOp.Process(input)
		Expect(err).NotTo(HaveOccurred())
		containsMax, err := maxResult.Contains(zset.Document{"dept": "eng", "hi": int64(30)})
		Expect(err).NotTo(HaveOccurred())
		Expect(containsMax).To(BeTrue())
	})
})

var _ = Describe("IncrementalGatherOp", func() {
	It("matches the snapshot gather after accumulating the same deltas", func() {
		incremental := dbsp.NewIncrementalGather(extractField{field: "dept"}, extractField{field: "amount"}, sumAggregator{keyField: "dept", sumField: "total"})
		snapshot := dbsp.NewGather(extractField{field: "dept"}, extractField{field: "amount"}, sumAggregator{keyField: "dept", sumField: "total"})

		accum := zset.New()
		result := zset.New()

		steps := []*zset.ZSet{
			zsetOf(entry(zset.Document{"dept": "eng", "amount": int64(10)}, 1)),
			zsetOf(entry(zset.Document{"dept": "eng", "amount": int64(20)}, 1)),
			zsetOf(entry(zset.Document{"dept": "eng", "amount": int64(10)}, -1)),
		}

		for _, delta := range steps {
			out, err := incremental.Process(delta)
			Expect(err).NotTo(HaveOccurred())

			var err2 error
			result, err2 = result.Add(out)
			Expect(err2).NotTo(HaveOccurred())
			accum, err2 = accum.Add(delta)
			Expect(err2).NotTo(HaveOccurred())

			expected, err3 := snapshot.Process(accum)
			Expect(err3).NotTo(HaveOccurred())
			Expect(result.Size()).To(Equal(expected.Size()))

			contains, err4 := result.Contains(zset.Document{"dept": "eng", "total": int64(20)})
			if accum.Size() > 0 {
				Expect(err4).NotTo(HaveOccurred())
				_ = contains
			}
		}
	})

	It("drops a group entirely once its last value is retracted", func() {
		incremental := dbsp.NewIncrementalGather(extractField{field: "dept"}, extractField{field: "amount"}, sumAggregator{keyField: "dept", sumField: "total"})

		_, err := incremental.Process(zsetOf(entry(zset.Document{"dept": "eng", "amount": int64(10)}, 1)))
		Expect(err).NotTo(HaveOccurred())

		final, err := incremental.Process(zsetOf(entry(zset.Document{"dept": "eng", "amount": int64(10)}, -1)))
		Expect(err).NotTo(HaveOccurred())

		w, err := final.Weight(zset.Document{"dept": "eng", "total": int64(10)})
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(-1))
	})
})
