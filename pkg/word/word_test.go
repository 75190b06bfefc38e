package word_test

import (
	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/omaskery/tracelog/pkg/word"
)

var _ = Describe("Word", func() {
	When("encoding function records", func() {
		It("lays out type, module and identity", func() {
			w := word.EncodeFunction(word.TypeFunctionEntry, 2, 0x00401000)
			Expect(w).To(Equal(word.Word(1<<28 | 2<<22 | (0x00401000 & 0x3FFFFF))))
			Expect(w.Type()).To(Equal(word.TypeFunctionEntry))
			Expect(w.Module()).To(Equal(word.Module(2)))
		})

		It("truncates the identity to 22 bits", func() {
			w := word.EncodeFunction(word.TypeFunctionExit, 1, 0xFFFFFFFF)
			Expect(word.Decode(w)).To(Equal(word.Fields{
				Type:     word.TypeFunctionExit,
				Module:   1,
				Function: 0x3FFFFF,
			}))
		})
	})

	When("encoding event records", func() {
		It("lays out event id and parameter", func() {
			w := word.EncodeEvent(word.TypeGlobalEvent, 2, 5, 42)
			Expect(w).To(Equal(word.Word(4<<28 | 2<<22 | 5<<16 | 42)))
		})

		It("masks out-of-range module and event ids", func() {
			w := word.EncodeEvent(word.TypeLocalEvent, 0x7F, 0x45, 0xFFFF)
			Expect(word.Decode(w)).To(Equal(word.Fields{
				Type:   word.TypeLocalEvent,
				Module: 0x3F,
				Event:  0x05,
				Param:  0xFFFF,
			}))
		})
	})

	table.DescribeTable("round trips fields within their widths",
		func(f word.Fields) {
			Expect(word.Decode(word.Encode(f))).To(Equal(f))
		},
		table.Entry("entry", word.Fields{Type: word.TypeFunctionEntry, Module: 11, Function: 0x0201}),
		table.Entry("exit at max", word.Fields{Type: word.TypeFunctionExit, Module: 63, Function: word.FunctionMask}),
		table.Entry("local", word.Fields{Type: word.TypeLocalEvent, Module: 3, Event: 63, Param: 0xBEEF}),
		table.Entry("global zero", word.Fields{Type: word.TypeGlobalEvent}),
		table.Entry("unknown tag", word.Fields{Type: 9, Module: 7, Function: 0x123456}),
	)

	It("never mixes payload interpretations", func() {
		f := word.Decode(word.EncodeFunction(word.TypeFunctionEntry, 1, 0x3FFFFF))
		Expect(f.Event).To(BeZero())
		Expect(f.Param).To(BeZero())

		f = word.Decode(word.EncodeEvent(word.TypeLocalEvent, 1, 63, 0xFFFF))
		Expect(f.Function).To(BeZero())
	})

	It("names the record types", func() {
		Expect(word.TypeFunctionEntry.String()).To(Equal("entry"))
		Expect(word.Type(0).String()).To(Equal("type(0)"))
		Expect(word.Type(0).Known()).To(BeFalse())
		Expect(word.Word(0x10000001).String()).To(Equal("0x10000001"))
	})
})
