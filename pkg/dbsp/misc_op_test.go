package dbsp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.l7mp.io/dbsp/pkg/dbsp"
	"go.l7mp.io/dbsp/pkg/zset"
)

var _ = Describe("InputOp", func() {
	It("emits the data set via SetData exactly once", func() {
		op := dbsp.NewInput("users")
		op.SetData(zsetOf(entry(zset.Document{"id": int64(1)}, 1)))

		first, err := op.Process()
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Size()).To(Equal(1))

		second, err := op.Process()
		Expect(err).NotTo(HaveOccurred())
		Expect(second.IsZero()).To(BeTrue())
	})
})

var _ = Describe("ConstantOp", func() {
	It("emits the same value on every tick", func() {
		value := zsetOf(entry(zset.Document{"id": int64(1)}, 1))
		op := dbsp.NewConstant(value, "seed")

		first, err := op.Process()
		Expect(err).NotTo(HaveOccurred())
		second, err := op.Process()
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Size()).To(Equal(second.Size()))
	})
})

var _ = Describe("AddOp, SubtractOp, NegateOp", func() {
	It("compose into the Z-set group operation", func() {
		a := zsetOf(entry(zset.Document{"id": int64(1)}, 1))
		b := zsetOf(entry(zset.Document{"id": int64(2)}, 1))

		sum, err := dbsp.NewAdd().Process(a, b)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Size()).To(Equal(2))

		diff, err := dbsp.NewSubtract().Process(sum, b)
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.Size()).To(Equal(a.Size()))

		negated, err := dbsp.NewNegate().Process(a)
		Expect(err).NotTo(HaveOccurred())
		w, err := negated.Weight(zset.Document{"id": int64(1)})
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(-1))
	})
})

var _ = Describe("FusedOp", func() {
	It("chains selection and projection into one node", func() {
		filter := dbsp.NewSelection(fieldEquals{field: "status", value: "active"})
		project := dbsp.NewProjection(dropField{field: "status"})

		fused, err := dbsp.FuseFilterProject(filter, project)
		Expect(err).NotTo(HaveOccurred())

		input := zsetOf(
			entry(zset.Document{"id": int64(1), "status": "active"}, 1),
			entry(zset.Document{"id": int64(2), "status": "inactive"}, 1),
		)

		result, err := fused.Process(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.UniqueCount()).To(Equal(1))

		docs := result.UniqueDocuments()
		Expect(docs[0]).NotTo(HaveKey("status"))
	})

	It("rejects fusing a multi-input node after the first position", func() {
		join := dbsp.NewBinaryJoin(equalJoin{inputs: []string{"l", "r"}, field: "id"}, []string{"l", "r"}, extractField{field: "id"}, extractField{field: "id"})
		project := dbsp.NewProjection(dropField{field: "x"})

		_, err := dbsp.NewFusedOp("bad", []dbsp.Operator{project, join})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Incrementalize", func() {
	It("leaves linear operators unchanged", func() {
		op := dbsp.NewProjection(dropField{field: "x"})
		result, changed := dbsp.Incrementalize(op)
		Expect(changed).To(BeFalse())
		Expect(result).To(BeIdenticalTo(op))
	})

	It("replaces DistinctOp with its incremental counterpart", func() {
		op := dbsp.NewDistinct()
		result, changed := dbsp.Incrementalize(op)
		Expect(changed).To(BeTrue())
		_, ok := result.(*dbsp.IncrementalDistinctOp)
		Expect(ok).To(BeTrue())
	})

	It("replaces BinaryJoinOp with its incremental counterpart", func() {
		op := dbsp.NewBinaryJoin(equalJoin{inputs: []string{"l", "r"}, field: "id"}, []string{"l", "r"}, extractField{field: "id"}, extractField{field: "id"})
		result, changed := dbsp.Incrementalize(op)
		Expect(changed).To(BeTrue())
		_, ok := result.(*dbsp.IncrementalBinaryJoinOp)
		Expect(ok).To(BeTrue())
	})
})
