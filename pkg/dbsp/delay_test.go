package dbsp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.l7mp.io/dbsp/pkg/dbsp"
	"go.l7mp.io/dbsp/pkg/zset"
)

var _ = Describe("IntegratorOp and DifferentiatorOp", func() {
	It("differentiate inverts integrate for a delta stream", func() {
		integrator := dbsp.NewIntegrator()
		differentiator := dbsp.NewDifferentiator()

		deltas := []*zset.ZSet{
			zsetOf(entry(zset.Document{"id": int64(1)}, 1)),
			zsetOf(entry(zset.Document{"id": int64(2)}, 1)),
			zsetOf(entry(zset.Document{"id": int64(1)}, -1)),
		}

		for _, delta := range deltas {
			snapshot, err := integrator.Process(delta)
			Expect(err).NotTo(HaveOccurred())

			recovered, err := differentiator.Process(snapshot)
			Expect(err).NotTo(HaveOccurred())

			Expect(recovered.Size()).To(Equal(delta.Size()))
		}
	})

	It("Reset returns the integrator to its zero-tick state", func() {
		integrator := dbsp.NewIntegrator()
		_, err := integrator.Process(zsetOf(entry(zset.Document{"id": int64(1)}, 1)))
		Expect(err).NotTo(HaveOccurred())

		integrator.Reset()
		data, err := integrator.ExportState()
		Expect(err).NotTo(HaveOccurred())
		restored := dbsp.NewIntegrator()
		Expect(restored.ImportState(data)).To(Succeed())
		out, err := restored.Process(zset.New())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.IsZero()).To(BeTrue())
	})
})

var _ = Describe("DelayOp", func() {
	It("outputs the zero Z-set on the first tick", func() {
		op := dbsp.NewDelay()
		out, err := op.Process(zsetOf(entry(zset.Document{"id": int64(1)}, 1)))
		Expect(err).NotTo(HaveOccurred())
		Expect(out.IsZero()).To(BeTrue())
	})

	It("outputs the previous tick's input on the next tick", func() {
		op := dbsp.NewDelay()
		first := zsetOf(entry(zset.Document{"id": int64(1)}, 1))

		_, err := op.Process(first)
		Expect(err).NotTo(HaveOccurred())

		out, err := op.Process(zset.New())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Size()).To(Equal(1))
	})
})
