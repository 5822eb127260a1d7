package zset_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.l7mp.io/dbsp/pkg/zset"
)

var _ = Describe("IndexedZSet", func() {
	byCity := func(doc zset.Document) (any, error) { return doc["city"], nil }

	var z *zset.ZSet

	BeforeEach(func() {
		var err error
		z, err = zset.FromSlice([]zset.Document{
			{"name": "Alice", "city": "NYC"},
			{"name": "Bob", "city": "NYC"},
			{"name": "Carol", "city": "LA"},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("groups documents by the key function", func() {
		ix, err := zset.Index(z, byCity)
		Expect(err).NotTo(HaveOccurred())
		Expect(ix.Keys()).To(HaveLen(2))

		nyc, err := ix.Get("NYC")
		Expect(err).NotTo(HaveOccurred())
		Expect(nyc.Size()).To(Equal(2))

		la, err := ix.Get("LA")
		Expect(err).NotTo(HaveOccurred())
		Expect(la.Size()).To(Equal(1))
	})

	It("drops documents with a nil key", func() {
		withMissing, err := z.Add1(zset.Document{"name": "Dan"}, 1)
		Expect(err).NotTo(HaveOccurred())

		ix, err := zset.Index(withMissing, byCity)
		Expect(err).NotTo(HaveOccurred())

		flat, err := ix.Flatten()
		Expect(err).NotTo(HaveOccurred())
		Expect(flat.Size()).To(Equal(3))
	})

	It("returns the zero Z-set for unseen keys", func() {
		ix, err := zset.Index(z, byCity)
		Expect(err).NotTo(HaveOccurred())

		empty, err := ix.Get("Austin")
		Expect(err).NotTo(HaveOccurred())
		Expect(empty.IsZero()).To(BeTrue())
	})

	It("Flatten inverts Index", func() {
		ix, err := zset.Index(z, byCity)
		Expect(err).NotTo(HaveOccurred())

		flat, err := ix.Flatten()
		Expect(err).NotTo(HaveOccurred())
		Expect(flat.Size()).To(Equal(z.Size()))
	})
})
