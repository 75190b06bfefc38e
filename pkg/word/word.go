// word packs and unpacks the 32-bit trace records stored in the log buffer
package word

import "fmt"

// Word is a single encoded trace record
type Word uint32

// Type is the 4-bit tag selecting how the rest of a Word is interpreted
type Type uint8

const (
	TypeFunctionEntry Type = 1
	TypeFunctionExit  Type = 2
	TypeLocalEvent    Type = 3
	TypeGlobalEvent   Type = 4
)

// Module identifies the emitting subsystem, 6 bits wide
type Module uint8

// EventID identifies an event within a module (local) or across all modules (global), 6 bits wide
type EventID uint8

const (
	typeShift   = 28
	moduleShift = 22
	eventShift  = 16

	TypeMask     = 0xF
	ModuleMask   = 0x3F
	FunctionMask = 0x3FFFFF
	EventMask    = 0x3F
	ParamMask    = 0xFFFF

	// MaxEventID is the largest event id representable in the event field
	MaxEventID = EventMask
)

// Fields is the decoded form of a Word, Function is only meaningful for entry/exit records
// while Event and Param are only meaningful for local/global records
type Fields struct {
	Type     Type
	Module   Module
	Function uint32
	Event    EventID
	Param    uint16
}

func (t Type) String() string {
	switch t {
	case TypeFunctionEntry:
		return "entry"
	case TypeFunctionExit:
		return "exit"
	case TypeLocalEvent:
		return "local"
	case TypeGlobalEvent:
		return "global"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// IsFunction reports whether the payload of this type is a function identity
func (t Type) IsFunction() bool {
	return t == TypeFunctionEntry || t == TypeFunctionExit
}

// IsEvent reports whether the payload of this type is an event id and parameter
func (t Type) IsEvent() bool {
	return t == TypeLocalEvent || t == TypeGlobalEvent
}

// Known reports whether the tag is one of the four record types
func (t Type) Known() bool {
	return t.IsFunction() || t.IsEvent()
}

func header(t Type, m Module) Word {
	return Word(t&TypeMask)<<typeShift | Word(m&ModuleMask)<<moduleShift
}

// EncodeFunction builds an entry or exit record, the identity is truncated to its low 22 bits
func EncodeFunction(t Type, m Module, identity uint32) Word {
	return header(t, m) | Word(identity&FunctionMask)
}

// EncodeEvent builds a local or global event record, the id is truncated to 6 bits
func EncodeEvent(t Type, m Module, id EventID, param uint16) Word {
	return header(t, m) | Word(id&EventMask)<<eventShift | Word(param)
}

// Encode packs f, choosing the payload layout from f.Type
func Encode(f Fields) Word {
	if f.Type.IsEvent() {
		return EncodeEvent(f.Type, f.Module, f.Event, f.Param)
	}
	return EncodeFunction(f.Type, f.Module, f.Function)
}

// Decode is the inverse of Encode
func Decode(w Word) Fields {
	f := Fields{
		Type:   w.Type(),
		Module: w.Module(),
	}
	if f.Type.IsEvent() {
		f.Event = EventID(w>>eventShift) & EventMask
		f.Param = uint16(w & ParamMask)
	} else {
		f.Function = uint32(w & FunctionMask)
	}
	return f
}

// Type extracts the type tag
func (w Word) Type() Type {
	return Type(w>>typeShift) & TypeMask
}

// Module extracts the module id
func (w Word) Module() Module {
	return Module(w>>moduleShift) & ModuleMask
}

func (w Word) String() string {
	return fmt.Sprintf("0x%08X", uint32(w))
}
