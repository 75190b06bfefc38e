// decoder turns trace words into readable records for a host-side viewer
package decoder

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/omaskery/tracelog/pkg/registry"
	"github.com/omaskery/tracelog/pkg/symbolize"
	"github.com/omaskery/tracelog/pkg/word"
)

// Record is one decoded word
type Record struct {
	// Index is the position of the word in chronological order
	Index  int
	Word   word.Word
	Fields word.Fields
	Module registry.Module
	// Function is set for entry and exit records
	Function string
	// Event is set for local and global event records
	Event registry.Event
	Text  string
}

type Option = func(d *Decoder)

// WithRegistry names ids from reg instead of the builtin registry
func WithRegistry(reg *registry.Registry) Option {
	return func(d *Decoder) {
		d.reg = reg
	}
}

// WithSymbols resolves function identities missing from the registry through an image's symbols
func WithSymbols(t *symbolize.Table) Option {
	return func(d *Decoder) {
		d.symbols = t
	}
}

func WithLogger(logger logr.Logger) Option {
	return func(d *Decoder) {
		d.logger = logger
	}
}

type Decoder struct {
	reg     *registry.Registry
	symbols *symbolize.Table
	logger  logr.Logger
	missing map[string]bool
}

func New(options ...Option) *Decoder {
	d := &Decoder{
		reg:     registry.Builtin(),
		logger:  logr.Discard(),
		missing: map[string]bool{},
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Decode describes a single word
func (d *Decoder) Decode(w word.Word) Record {
	f := word.Decode(w)
	r := Record{
		Word:   w,
		Fields: f,
	}

	if !f.Type.Known() {
		r.Module, _ = d.reg.Module(0)
		r.Text = fmt.Sprintf("Unknown event type (%d)", uint32(w))
		d.reportMissing("type", uint32(f.Type))
		return r
	}

	var ok bool
	r.Module, ok = d.reg.Module(f.Module)
	if !ok {
		d.reportMissing("module", uint32(f.Module))
	}

	switch f.Type {
	case word.TypeFunctionEntry:
		r.Function = d.functionName(f.Function)
		r.Text = "Enter: " + r.Function
	case word.TypeFunctionExit:
		r.Function = d.functionName(f.Function)
		r.Text = "Exit: " + r.Function
	case word.TypeLocalEvent:
		r.Event, ok = d.reg.LocalEvent(f.Module, f.Event)
		if !ok {
			d.reportMissing(fmt.Sprintf("module %d local event", f.Module), uint32(f.Event))
		}
		r.Text = "Event: " + r.Event.Render(f.Param)
	case word.TypeGlobalEvent:
		r.Event, ok = d.reg.GlobalEvent(f.Event)
		if !ok {
			d.reportMissing("global event", uint32(f.Event))
		}
		r.Text = "Event: " + r.Event.Render(f.Param)
	}

	return r
}

// DecodeAll describes words given oldest first
func (d *Decoder) DecodeAll(ws []word.Word) []Record {
	out := make([]Record, 0, len(ws))
	for i, w := range ws {
		r := d.Decode(w)
		r.Index = i
		out = append(out, r)
	}
	return out
}

func (d *Decoder) functionName(id uint32) string {
	fn, ok := d.reg.Function(id)
	if ok {
		return fn.Name
	}
	if d.symbols != nil {
		if sym, ok := d.symbols.Lookup(id); ok {
			return sym.Name
		}
	}
	d.reportMissing("function", id)
	return fn.Name
}

func (d *Decoder) reportMissing(kind string, id uint32) {
	key := fmt.Sprintf("%s %d", kind, id)
	if d.missing[key] {
		return
	}
	d.missing[key] = true
	d.logger.V(1).Info("id not found in registry", "kind", kind, "id", id)
}

func (r Record) String() string {
	return fmt.Sprintf("%6d %s [%s] %s", r.Index, r.Word, r.Module.Name, r.Text)
}
