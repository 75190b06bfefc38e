package decoder_test

import (
	"strings"

	"github.com/go-logr/logr/funcr"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/omaskery/tracelog/pkg/decoder"
	"github.com/omaskery/tracelog/pkg/registry"
	"github.com/omaskery/tracelog/pkg/symbolize"
	"github.com/omaskery/tracelog/pkg/word"
)

const localEvents = `
[[module]]
id = 6
name = "trx"

  [[module.event]]
  id = 3
  text = "Radio state"
  param = "enum"

    [[module.event.value]]
    value = 2
    text = "RXRU"
`

var _ = Describe("Decoder", func() {
	var options []decoder.Option
	var d *decoder.Decoder

	BeforeEach(func() {
		options = nil
	})

	JustBeforeEach(func() {
		d = decoder.New(options...)
	})

	It("describes function entry and exit by registry code", func() {
		r := d.Decode(word.EncodeFunction(word.TypeFunctionEntry, registry.ModuleRaal, registry.FunctionRaalSigHandler))
		Expect(r.Module.Name).To(Equal("raal"))
		Expect(r.Function).To(Equal("raal_sig_handler"))
		Expect(r.Text).To(Equal("Enter: raal_sig_handler"))

		r = d.Decode(word.EncodeFunction(word.TypeFunctionExit, registry.ModuleCore, registry.FunctionAutoAckAbort))
		Expect(r.Text).To(Equal("Exit: auto_ack_abort"))
	})

	It("describes global events with their parameter", func() {
		r := d.Decode(word.EncodeEvent(word.TypeGlobalEvent, registry.ModuleCore, registry.EventSetState, 3))
		Expect(r.Module.Name).To(Equal("core"))
		Expect(r.Text).To(Equal("Event: Set state 3"))
		Expect(r.Fields.Param).To(Equal(uint16(3)))
	})

	It("falls back to placeholder names", func() {
		r := d.Decode(word.EncodeEvent(word.TypeLocalEvent, 40, 9, 1))
		Expect(r.Module.Name).To(Equal("Unknown (40)"))
		Expect(r.Text).To(Equal("Event: Unknown local event (9)"))

		r = d.Decode(word.EncodeFunction(word.TypeFunctionEntry, 1, 0x1234))
		Expect(r.Text).To(Equal("Enter: Unknown function (4660)"))
	})

	It("reports words with an unknown type tag", func() {
		r := d.Decode(0)
		Expect(r.Text).To(Equal("Unknown event type (0)"))
		Expect(r.Module.Name).To(Equal("Unknown (0)"))

		r = d.Decode(0x70000001)
		Expect(r.Text).To(Equal("Unknown event type (1879048193)"))
	})

	It("numbers records in the order given", func() {
		records := d.DecodeAll([]word.Word{
			word.EncodeEvent(word.TypeGlobalEvent, 1, registry.EventRadioReset, 0),
			word.EncodeFunction(word.TypeFunctionEntry, 1, registry.FunctionTimeslotStarted),
		})
		Expect(records).To(HaveLen(2))
		Expect(records[0].Index).To(Equal(0))
		Expect(records[1].Index).To(Equal(1))
		Expect(records[1].String()).To(ContainSubstring("[application] Enter: timeslot_started"))
	})

	When("a registry file adds local events", func() {
		BeforeEach(func() {
			reg, err := registry.Load(strings.NewReader(localEvents))
			Expect(err).To(Succeed())
			merged, err := registry.Builtin().Merge(reg)
			Expect(err).To(Succeed())
			options = append(options, decoder.WithRegistry(merged))
		})

		It("renders enum parameters", func() {
			r := d.Decode(word.EncodeEvent(word.TypeLocalEvent, registry.ModuleTrx, 3, 2))
			Expect(r.Text).To(Equal("Event: Radio state RXRU"))
		})
	})

	When("a symbol table is attached", func() {
		BeforeEach(func() {
			options = append(options, decoder.WithSymbols(symbolize.NewTable([]symbolize.Symbol{
				{Name: "nrf_802154_receive", Low: 0x00401000, High: 0x00401100},
			})))
		})

		It("resolves code addresses missing from the registry", func() {
			r := d.Decode(word.EncodeFunction(word.TypeFunctionEntry, registry.ModuleCore, 0x00401000))
			Expect(r.Text).To(Equal("Enter: nrf_802154_receive"))
		})

		It("prefers registry codes", func() {
			r := d.Decode(word.EncodeFunction(word.TypeFunctionEntry, registry.ModuleCore, registry.FunctionCritSectEnter))
			Expect(r.Function).To(Equal("crit_sect_enter"))
		})
	})

	When("a logger is attached", func() {
		var lines []string

		BeforeEach(func() {
			lines = nil
			options = append(options, decoder.WithLogger(funcr.New(func(_, args string) {
				lines = append(lines, args)
			}, funcr.Options{Verbosity: 1})))
		})

		It("reports each missing id once", func() {
			d.Decode(word.EncodeEvent(word.TypeGlobalEvent, 1, 50, 0))
			d.Decode(word.EncodeEvent(word.TypeGlobalEvent, 1, 50, 1))
			Expect(lines).To(HaveLen(1))
			Expect(lines[0]).To(ContainSubstring(`"kind"="global event"`))
		})
	})
})
