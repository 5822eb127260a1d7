package changemgr_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.l7mp.io/dbsp/pkg/changemgr"
	"go.l7mp.io/dbsp/pkg/circuit"
	"go.l7mp.io/dbsp/pkg/zset"
)

func TestChangemgr(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Change Manager Suite")
}

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

var _ = Describe("Manager", func() {
	It("accumulates several deltas into one commit", func() {
		m := changemgr.New(false)
		doc1 := zset.Document{"id": int64(1)}
		doc2 := zset.Document{"id": int64(2)}

		Expect(m.Accumulate(zsetOf(entry(doc1, 1)))).To(Succeed())
		Expect(m.Accumulate(zsetOf(entry(doc2, 1)))).To(Succeed())

		batch, err := m.Commit()
		Expect(err).NotTo(HaveOccurred())
		Expect(batch.Size()).To(Equal(2))
		Expect(m.Pending().IsZero()).To(BeTrue())
	})

	It("allows over-deletion in non-strict mode", func() {
		m := changemgr.New(false)
		doc := zset.Document{"id": int64(1)}
		Expect(m.Accumulate(zsetOf(entry(doc, -1)))).To(Succeed())
	})

	It("rejects over-deletion in strict mode", func() {
		m := changemgr.New(true)
		doc := zset.Document{"id": int64(1)}
		err := m.Accumulate(zsetOf(entry(doc, -1)))
		Expect(err).To(HaveOccurred())
		Expect(circuit.IsKind(err, circuit.KindInput)).To(BeTrue())
	})

	It("allows deleting what was committed earlier, in strict mode", func() {
		m := changemgr.New(true)
		doc := zset.Document{"id": int64(1)}
		Expect(m.Accumulate(zsetOf(entry(doc, 1)))).To(Succeed())
		_, err := m.Commit()
		Expect(err).NotTo(HaveOccurred())

		Expect(m.Accumulate(zsetOf(entry(doc, -1)))).To(Succeed())
	})
})
