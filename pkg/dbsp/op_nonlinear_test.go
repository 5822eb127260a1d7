package dbsp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.l7mp.io/dbsp/pkg/dbsp"
	"go.l7mp.io/dbsp/pkg/zset"
)

var _ = Describe("DistinctOp", func() {
	It("collapses multiplicities and drops non-positive weights", func() {
		op := dbsp.NewDistinct()
		input := zsetOf(
			entry(zset.Document{"id": int64(1)}, 5),
			entry(zset.Document{"id": int64(2)}, -3),
		)

		result, err := op.Process(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.UniqueCount()).To(Equal(1))

		w, err := result.Weight(zset.Document{"id": int64(1)})
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(1))
	})
})

var _ = Describe("IncrementalDistinctOp", func() {
	It("tracks the same running result as repeatedly differentiating Distinct(I(stream))", func() {
		incremental := dbsp.NewIncrementalDistinct()
		snapshot := dbsp.NewDistinct()

		accum := zset.New()
		result := zset.New()

		steps := []*zset.ZSet{
			zsetOf(entry(zset.Document{"id": int64(1)}, 2)), // insert twice
			zsetOf(entry(zset.Document{"id": int64(1)}, -1)), // retract once: still present
			zsetOf(entry(zset.Document{"id": int64(1)}, -1)), // retract again: now gone
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
		}

		Expect(result.IsZero()).To(BeTrue())
	})

	It("Reset returns the operator to its zero-tick state", func() {
		incremental := dbsp.NewIncrementalDistinct()
		_, err := incremental.Process(zsetOf(entry(zset.Document{"id": int64(1)}, 1)))
		Expect(err).NotTo(HaveOccurred())

		incremental.Reset()
		fresh := dbsp.NewIncrementalDistinct()
		resetData, err := incremental.ExportState()
		Expect(err).NotTo(HaveOccurred())
		freshData, err := fresh.ExportState()
		Expect(err).NotTo(HaveOccurred())
		Expect(resetData).To(Equal(freshData))
	})
})
