package symbolize_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/omaskery/tracelog/pkg/symbolize"
)

var _ = Describe("Table", func() {
	var table *symbolize.Table

	BeforeEach(func() {
		table = symbolize.NewTable([]symbolize.Symbol{
			{Name: "rx_started", Low: 0x00401100, High: 0x00401180},
			{Name: "main", Low: 0x00401000, High: 0x00401040},
			{Name: "no_size", Low: 0x00401080},
			{Name: "far_away", Low: 0x00C00010, High: 0x00C00020},
		})
	})

	It("sorts symbols and gives sizeless ones the gap to the next", func() {
		names := []string{}
		for _, s := range table.Symbols() {
			names = append(names, s.Name)
		}
		Expect(names).To(Equal([]string{"main", "no_size", "rx_started", "far_away"}))
		Expect(table.Symbols()[1].High).To(Equal(uint64(0x00401100)))
	})

	When("looking up full addresses", func() {
		It("finds the containing function", func() {
			s, ok := table.LookupAddr(0x00401010)
			Expect(ok).To(BeTrue())
			Expect(s.Name).To(Equal("main"))
		})

		It("misses gaps and addresses before the first function", func() {
			_, ok := table.LookupAddr(0x00401050)
			Expect(ok).To(BeFalse())
			_, ok = table.LookupAddr(0x100)
			Expect(ok).To(BeFalse())
		})
	})

	When("looking up truncated identities", func() {
		It("matches entry addresses truncated to 22 bits", func() {
			s, ok := table.Lookup(0x00401000 & 0x3FFFFF)
			Expect(ok).To(BeTrue())
			Expect(s.Name).To(Equal("main"))

			s, ok = table.Lookup(0x00401100 & 0x3FFFFF)
			Expect(ok).To(BeTrue())
			Expect(s.Name).To(Equal("rx_started"))
		})

		It("matches functions above the identity range by their low bits", func() {
			s, ok := table.Lookup(0x00C00014 & 0x3FFFFF)
			Expect(ok).To(BeTrue())
			Expect(s.Name).To(Equal("far_away"))
		})

		It("misses identities outside every function", func() {
			_, ok := table.Lookup(0x3)
			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("Open", func() {
	When("reading a Thumb firmware image", func() {
		var table *symbolize.Table
		var err error

		BeforeEach(func() {
			table, err = symbolize.Open(filepath.Join("testdata", "firmware.elf"))
		})

		It("keeps defined functions only, demangled and without the Thumb bit", func() {
			Expect(err).To(Succeed())
			Expect(table.Symbols()).To(Equal([]symbolize.Symbol{
				{Name: "rx_started", Low: 0x1000, High: 0x1040},
				{Name: "radio::receive()", Low: 0x1040, High: 0x1060},
			}))
		})

		It("resolves identities recorded with the Thumb bit set", func() {
			s, ok := table.Lookup(0x1041)
			Expect(ok).To(BeTrue())
			Expect(s.Name).To(Equal("radio::receive()"))

			s, ok = table.LookupAddr(0x1001)
			Expect(ok).To(BeTrue())
			Expect(s.Name).To(Equal("rx_started"))
		})
	})

	It("rejects images without function symbols", func() {
		_, err := symbolize.Open(filepath.Join("testdata", "data_only.elf"))
		Expect(err).To(MatchError(symbolize.ErrNoFunctions))
	})

	It("fails on files that are not ELF images", func() {
		f, err := os.CreateTemp("", "not-elf")
		Expect(err).To(Succeed())
		defer os.Remove(f.Name())
		_, _ = f.WriteString("definitely not an image")
		Expect(f.Close()).To(Succeed())

		_, err = symbolize.Open(f.Name())
		Expect(err).To(HaveOccurred())
	})
})
