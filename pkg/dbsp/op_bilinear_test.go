package dbsp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.l7mp.io/dbsp/pkg/dbsp"
	"go.l7mp.io/dbsp/pkg/zset"
)

var _ = Describe("BinaryJoinOp", func() {
	It("multiplies weights across matching pairs (bilinear)", func() {
		op := dbsp.NewBinaryJoin(equalJoin{inputs: []string{"l", "r"}, field: "id"}, []string{"l", "r"}, extractField{field: "id"}, extractField{field: "id"})

		left := zsetOf(entry(zset.Document{"id": int64(1), "name": "Alice"}, 2))
		right := zsetOf(entry(zset.Document{"id": int64(1), "dept": "Eng"}, 3))

		result, err := op.Process(left, right)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Size()).To(Equal(6)) // 2 * 3
	})

	It("produces nothing for non-matching keys", func() {
		op := dbsp.NewBinaryJoin(equalJoin{inputs: []string{"l", "r"}, field: "id"}, []string{"l", "r"}, extractField{field: "id"}, extractField{field: "id"})

		left := zsetOf(entry(zset.Document{"id": int64(1)}, 1))
		right := zsetOf(entry(zset.Document{"id": int64(2)}, 1))

		result, err := op.Process(left, right)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsZero()).To(BeTrue())
	})
})

var _ = Describe("IncrementalBinaryJoinOp", func() {
	var (
		snapshot    *dbsp.BinaryJoinOp
		incremental *dbsp.IncrementalBinaryJoinOp
		names       []string
	)

	BeforeEach(func() {
		names = []string{"l", "r"}
		evaluator := equalJoin{inputs: names, field: "id"}
		snapshot = dbsp.NewBinaryJoin(evaluator, names, extractField{field: "id"}, extractField{field: "id"})
		incremental = dbsp.NewIncrementalBinaryJoin(evaluator, names, extractField{field: "id"}, extractField{field: "id"})
	})

	It("agrees with differentiating the snapshot join across a sequence of ticks", func() {
		leftAccum := zset.New()
		rightAccum := zset.New()
		joinAccum := zset.New()

		steps := []struct {
			left, right *zset.ZSet
		}{
			{zsetOf(entry(zset.Document{"id": int64(1), "name": "Alice"}, 1)), zset.New()},
			{zset.New(), zsetOf(entry(zset.Document{"id": int64(1), "dept": "Eng"}, 1))},
			{zsetOf(entry(zset.Document{"id": int64(2), "name": "Bob"}, 1)), zsetOf(entry(zset.Document{"id": int64(2), "dept": "Sales"}, 1))},
		}

		for _, step := range steps {
			delta, err := incremental.Process(step.left, step.right)
			Expect(err).NotTo(HaveOccurred())

			var err2 error
			leftAccum, err2 = leftAccum.Add(step.left)
			Expect(err2).NotTo(HaveOccurred())
			rightAccum, err2 = rightAccum.Add(step.right)
			Expect(err2).NotTo(HaveOccurred())

			fullJoin, err3 := snapshot.Process(leftAccum, rightAccum)
			Expect(err3).NotTo(HaveOccurred())

			joinAccum, err3 = joinAccum.Add(delta)
			Expect(err3).NotTo(HaveOccurred())

			Expect(joinAccum.Size()).To(Equal(fullJoin.Size()))
		}
	})

	It("Reset clears accumulated state back to empty", func() {
		_, err := incremental.Process(zsetOf(entry(zset.Document{"id": int64(1)}, 1)), zset.New())
		Expect(err).NotTo(HaveOccurred())

		incremental.Reset()
		data, err := incremental.ExportState()
		Expect(err).NotTo(HaveOccurred())
		fresh, err := dbsp.NewIncrementalBinaryJoin(equalJoin{inputs: names, field: "id"}, names, extractField{field: "id"}, extractField{field: "id"}).ExportState()
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(fresh))
	})
})

var _ = Describe("IncrementalJoinOp (n-ary)", func() {
	It("expands into the 2^n-1 delta/snapshot cross terms and matches the snapshot join", func() {
		names := []string{"a", "b", "c"}
		evaluator := tripleEqual{inputs: names}
		snapshot := dbsp.NewJoin(evaluator, names)
		incremental := dbsp.NewIncrementalJoin(evaluator, names)

		a1 := zsetOf(entry(zset.Document{"k": int64(1), "src": "a"}, 1))
		b1 := zsetOf(entry(zset.Document{"k": int64(1), "src": "b"}, 1))
		c1 := zsetOf(entry(zset.Document{"k": int64(1), "src": "c"}, 1))

		delta1, err := incremental.Process(a1, zset.New(), zset.New())
		Expect(err).NotTo(HaveOccurred())
		Expect(delta1.IsZero()).To(BeTrue())

		delta2, err := incremental.Process(zset.New(), b1, zset.New())
		Expect(err).NotTo(HaveOccurred())
		Expect(delta2.IsZero()).To(BeTrue())

		delta3, err := incremental.Process(zset.New(), zset.New(), c1)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta3.IsZero()).To(BeFalse())

		full, err := snapshot.Process(a1, b1, c1)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta3.Size()).To(Equal(full.Size()))
	})
})

// tripleEqual joins three inputs on a shared "k" field.
type tripleEqual struct{ inputs []string }

func (t tripleEqual) Evaluate(doc zset.Document) ([]zset.Document, error) {
	var k any
	for i, name := range t.inputs {
		d, ok := doc[name].(zset.Document)
		if !ok {
			return nil, nil
		}
		if i == 0 {
			k = d["k"]
		} else if d["k"] != k {
			return nil, nil
		}
	}
	return []zset.Document{{"k": k}}, nil
}

func (t tripleEqual) String() string { return "tripleEqual" }
