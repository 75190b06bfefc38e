// registry names the module, event and function ids found in trace words
package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/omaskery/tracelog/pkg/word"
)

var (
	ErrInvalidParamType = errors.New("invalid event parameter type")
	ErrDuplicateID      = errors.New("id defined more than once")
	ErrUnknownKey       = errors.New("unknown key in registry file")
	ErrEventIDRange     = errors.New("event id does not fit the event field")
)

// ParamType selects how an event parameter is rendered
type ParamType string

const (
	ParamNone ParamType = ""
	ParamUint ParamType = "uint"
	ParamEnum ParamType = "enum"
)

// EnumValue names one value of an enum parameter
type EnumValue struct {
	Value uint16 `toml:"value"`
	Text  string `toml:"text"`
}

// Event describes a local or global event id
type Event struct {
	ID     word.EventID `toml:"id"`
	Text   string       `toml:"text"`
	Param  ParamType    `toml:"param"`
	Values []EnumValue  `toml:"value"`
}

// Module describes a module id and the events private to it
type Module struct {
	ID     word.Module `toml:"id"`
	Name   string      `toml:"name"`
	Events []Event     `toml:"event"`

	events map[word.EventID]*Event
}

// Function names a function code or a truncated code address
type Function struct {
	ID   uint32 `toml:"id"`
	Name string `toml:"name"`
}

// Registry holds every known id. Lookups never fail, unknown ids get placeholder names.
type Registry struct {
	Modules      []Module   `toml:"module"`
	GlobalEvents []Event    `toml:"global_event"`
	Functions    []Function `toml:"function"`

	modules   map[word.Module]*Module
	global    map[word.EventID]*Event
	functions map[uint32]*Function
}

// Load parses a TOML registry
func Load(r io.Reader) (*Registry, error) {
	var reg Registry
	md, err := toml.DecodeReader(r, &reg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: %w", strings.Join(keys, ", "), ErrUnknownKey)
	}
	if err := reg.index(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// LoadFile parses the TOML registry at path
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	defer f.Close()

	reg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Merge returns a registry with the entries of both. An entry of other replaces the entry of
// r with the same id as a whole, a module's local events included. Either registry may be
// built by hand, so the result is validated as Load would.
func (r *Registry) Merge(other *Registry) (*Registry, error) {
	merged := &Registry{}

	modules := map[word.Module]int{}
	for _, m := range append(append([]Module{}, r.Modules...), other.Modules...) {
		m.events = nil
		if i, ok := modules[m.ID]; ok {
			merged.Modules[i] = m
			continue
		}
		modules[m.ID] = len(merged.Modules)
		merged.Modules = append(merged.Modules, m)
	}

	global := map[word.EventID]int{}
	for _, e := range append(append([]Event{}, r.GlobalEvents...), other.GlobalEvents...) {
		if i, ok := global[e.ID]; ok {
			merged.GlobalEvents[i] = e
			continue
		}
		global[e.ID] = len(merged.GlobalEvents)
		merged.GlobalEvents = append(merged.GlobalEvents, e)
	}

	functions := map[uint32]int{}
	for _, f := range append(append([]Function{}, r.Functions...), other.Functions...) {
		if i, ok := functions[f.ID]; ok {
			merged.Functions[i] = f
			continue
		}
		functions[f.ID] = len(merged.Functions)
		merged.Functions = append(merged.Functions, f)
	}

	if err := merged.index(); err != nil {
		return nil, fmt.Errorf("failed to merge registries: %w", err)
	}
	return merged, nil
}

func (r *Registry) index() error {
	r.modules = make(map[word.Module]*Module, len(r.Modules))
	r.global = make(map[word.EventID]*Event, len(r.GlobalEvents))
	r.functions = make(map[uint32]*Function, len(r.Functions))

	for i := range r.Modules {
		m := &r.Modules[i]
		if _, ok := r.modules[m.ID]; ok {
			return fmt.Errorf("module %d: %w", m.ID, ErrDuplicateID)
		}
		r.modules[m.ID] = m

		m.events = make(map[word.EventID]*Event, len(m.Events))
		for j := range m.Events {
			e := &m.Events[j]
			if err := e.validate(); err != nil {
				return fmt.Errorf("module %d local event %d: %w", m.ID, e.ID, err)
			}
			if _, ok := m.events[e.ID]; ok {
				return fmt.Errorf("module %d local event %d: %w", m.ID, e.ID, ErrDuplicateID)
			}
			m.events[e.ID] = e
		}
	}

	for i := range r.GlobalEvents {
		e := &r.GlobalEvents[i]
		if err := e.validate(); err != nil {
			return fmt.Errorf("global event %d: %w", e.ID, err)
		}
		if _, ok := r.global[e.ID]; ok {
			return fmt.Errorf("global event %d: %w", e.ID, ErrDuplicateID)
		}
		r.global[e.ID] = e
	}

	for i := range r.Functions {
		f := &r.Functions[i]
		if _, ok := r.functions[f.ID]; ok {
			return fmt.Errorf("function 0x%X: %w", f.ID, ErrDuplicateID)
		}
		r.functions[f.ID] = f
	}

	return nil
}

func (e *Event) validate() error {
	switch e.Param {
	case ParamNone, ParamUint, ParamEnum:
	default:
		return fmt.Errorf("'%s': %w", e.Param, ErrInvalidParamType)
	}
	if e.ID > word.MaxEventID {
		return ErrEventIDRange
	}
	return nil
}

// Module looks up a module id, the second result is false for an unknown id
func (r *Registry) Module(id word.Module) (Module, bool) {
	if m, ok := r.modules[id]; ok {
		return *m, true
	}
	return Module{ID: id, Name: fmt.Sprintf("Unknown (%d)", id)}, false
}

// LocalEvent looks up an event id private to module
func (r *Registry) LocalEvent(module word.Module, id word.EventID) (Event, bool) {
	if m, ok := r.modules[module]; ok {
		if e, ok := m.events[id]; ok {
			return *e, true
		}
	}
	return Event{ID: id, Text: fmt.Sprintf("Unknown local event (%d)", id)}, false
}

// GlobalEvent looks up a global event id
func (r *Registry) GlobalEvent(id word.EventID) (Event, bool) {
	if e, ok := r.global[id]; ok {
		return *e, true
	}
	return Event{ID: id, Text: fmt.Sprintf("Unknown global event (%d)", id)}, false
}

// Function looks up a function code
func (r *Registry) Function(id uint32) (Function, bool) {
	if f, ok := r.functions[id]; ok {
		return *f, true
	}
	return Function{ID: id, Name: fmt.Sprintf("Unknown function (%d)", id)}, false
}

// Render describes an occurrence of the event carrying param
func (e Event) Render(param uint16) string {
	switch e.Param {
	case ParamUint:
		return fmt.Sprintf("%s %d", e.Text, param)
	case ParamEnum:
		for _, v := range e.Values {
			if v.Value == param {
				return e.Text + " " + v.Text
			}
		}
		return fmt.Sprintf("%s Unknown enum (%d)", e.Text, param)
	}
	return e.Text
}
