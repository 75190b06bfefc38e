package ring

import (
	"sync"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/omaskery/tracelog/pkg/guard"
	"github.com/omaskery/tracelog/pkg/irq"
	"github.com/omaskery/tracelog/pkg/word"
)

func seq(from, count int) []word.Word {
	out := make([]word.Word, count)
	for i := range out {
		out[i] = word.Word(0xA0000000 + from + i)
	}
	return out
}

func reversed(ws []word.Word) []word.Word {
	out := make([]word.Word, len(ws))
	for i, w := range ws {
		out[len(ws)-1-i] = w
	}
	return out
}

var _ = Describe("Buffer", func() {
	When("constructed", func() {
		table.DescribeTable("rejects lengths that are not powers of two",
			func(n int) {
				_, err := New(n)
				Expect(err).To(MatchError(ErrNotPowerOfTwo))
			},
			table.Entry("zero", 0),
			table.Entry("negative", -4),
			table.Entry("three", 3),
			table.Entry("1000", 1000),
		)

		It("starts zeroed with the cursor at the first slot", func() {
			b, err := New(8)
			Expect(err).To(Succeed())
			Expect(b.Capacity()).To(Equal(8))
			Expect(b.Cursor()).To(BeZero())
			Expect(b.Snapshot().Words).To(Equal(make([]word.Word, 8)))
		})

		It("panics from MustNew on a bad length", func() {
			Expect(func() { MustNew(6) }).To(Panic())
		})
	})

	table.DescribeTable("reads back the last k writes newest first",
		func(n, k int) {
			b := MustNew(n)
			written := seq(0, k)
			for _, w := range written {
				b.Write(w)
			}
			Expect(b.Cursor()).To(Equal(uint32(k % n)))
			Expect(b.Recent(k)).To(Equal(reversed(written)))
		},
		table.Entry("n=1 k=1", 1, 1),
		table.Entry("n=4 k=0", 4, 0),
		table.Entry("n=4 k=3", 4, 3),
		table.Entry("n=4 k=4", 4, 4),
		table.Entry("n=1024 k=1000", 1024, 1000),
		table.Entry("n=1024 k=1024", 1024, 1024),
	)

	It("keeps only the newest words once it wraps", func() {
		b := MustNew(4)
		written := seq(0, 11)
		for _, w := range written {
			b.Write(w)
		}
		Expect(b.Cursor()).To(Equal(uint32(11 % 4)))
		Expect(b.Recent(10)).To(Equal(reversed(written[7:])))
		Expect(b.Snapshot().Chronological()).To(Equal(written[7:]))
	})

	When("five words are written into four slots", func() {
		var b *Buffer
		var w []word.Word

		BeforeEach(func() {
			b = MustNew(4)
			w = seq(0, 5)
			for _, x := range w {
				b.Write(x)
			}
		})

		It("overwrites the oldest slot", func() {
			Expect(b.At(1)).To(Equal(w[1]))
			Expect(b.At(2)).To(Equal(w[2]))
			Expect(b.At(3)).To(Equal(w[3]))
			Expect(b.At(0)).To(Equal(w[4]))
			Expect(b.Cursor()).To(Equal(uint32(1)))
		})

		It("unwraps to chronological order", func() {
			Expect(b.Snapshot().Chronological()).To(Equal(w[1:]))
		})
	})
})

var _ = Describe("Unwrap", func() {
	It("handles an empty image", func() {
		Expect(Unwrap(nil, 3)).To(BeEmpty())
	})

	It("reduces the cursor modulo the length", func() {
		ws := seq(0, 4)
		Expect(Unwrap(ws, 6)).To(Equal([]word.Word{ws[2], ws[3], ws[0], ws[1]}))
	})
})

var _ = Describe("Writer", func() {
	var buf *Buffer
	var sim *irq.Sim

	BeforeEach(func() {
		buf = MustNew(4)
		sim = irq.NewSim()
	})

	When("guarded", func() {
		It("never loses a write to a preempting handler", func() {
			w := NewWriter(buf, guard.NewMasked(sim))

			w.writeInterrupted(0x1, func() {
				sim.Raise(func() { w.Write(0x2) })
			})
			w.Write(0x3)

			Expect(sim.Delivered).To(Equal(1))
			Expect(buf.Cursor()).To(Equal(uint32(3)))
			Expect(buf.Snapshot().Chronological()[1:]).To(Equal([]word.Word{0x1, 0x2, 0x3}))
		})

		It("keeps cursor equal to completed writes under repeated preemption", func() {
			w := NewWriter(buf, guard.NewMasked(sim))
			for i := 0; i < 3; i++ {
				w.writeInterrupted(word.Word(i+1), func() {
					sim.Raise(func() { w.Write(0xF) })
					sim.Raise(func() { w.Write(0xE) })
				})
			}

			Expect(sim.Delivered).To(Equal(6))
			// every delivered handler completed exactly one write
			Expect(buf.Cursor()).To(Equal(uint32(sim.Delivered+3) % 4))
		})
	})

	When("unguarded", func() {
		It("loses the preempting write", func() {
			w := NewWriter(buf, guard.None{})

			w.writeInterrupted(0x1, func() {
				sim.Raise(func() { w.Write(0x2) })
			})

			Expect(sim.Delivered).To(Equal(1))
			// the handler's word landed in slot 0 and was then overwritten
			Expect(buf.Cursor()).To(Equal(uint32(1)))
			Expect(buf.At(0)).To(Equal(word.Word(0x1)))
		})
	})

	It("keeps an exact count across goroutines with the host controller", func() {
		big := MustNew(1024)
		w := NewWriter(big, guard.NewMasked(&irq.Host{}))

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 300; i++ {
					w.Write(0x30000000)
				}
			}()
		}
		wg.Wait()

		Expect(big.Cursor()).To(Equal(uint32(2400 % 1024)))
		Expect(w.Capacity()).To(Equal(1024))
	})
})
