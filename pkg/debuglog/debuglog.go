// debuglog records function entry/exit and event trace words into a ring buffer. Every call
// completes in constant time without allocating or blocking, so it can be used from the
// most latency sensitive interrupt handler.
//
// Each emitting subsystem creates one Module with its id and verbosity threshold:
//
//	var trace = debuglog.NewModule(registry.ModuleCore, 1)
//
//	func receive() {
//		trace.FunctionEntry(1)
//		defer trace.FunctionExit(1)
//		trace.LocalEvent(2, eventRxStart, uint16(channel))
//	}
package debuglog

import (
	"runtime"

	"github.com/go-logr/logr"

	"github.com/omaskery/tracelog/pkg/verbosity"
	"github.com/omaskery/tracelog/pkg/word"
)

// BufferLen is the capacity in words of the process-wide buffer
const BufferLen = 1024

// Sink is where encoded words end up
type Sink interface {
	Write(w word.Word)
	Capacity() int
}

// IdentityFunc returns the identity of the function skip frames above its own caller
type IdentityFunc = func(skip int) uint32

type Option = func(m *Module)

// WithSink records into s instead of the process-wide buffer
func WithSink(s Sink) Option {
	return func(m *Module) {
		m.sink = s
	}
}

// WithLogger reports the module configuration to logger, nothing is logged while tracing
func WithLogger(logger logr.Logger) Option {
	return func(m *Module) {
		m.logger = logger
	}
}

// WithIdentityFunc replaces CallerIdentity as the source of entry/exit payloads
func WithIdentityFunc(f IdentityFunc) Option {
	return func(m *Module) {
		m.identity = f
	}
}

// Module emits trace words under one module id, dropping calls above its verbosity threshold
type Module struct {
	id        word.Module
	threshold verbosity.Level
	sink      Sink
	identity  IdentityFunc
	logger    logr.Logger
}

// NewModule configures the tracing of one subsystem. A threshold of verbosity.Off or below
// records nothing. Built with nodebuglog, options are ignored.
func NewModule(id word.Module, threshold verbosity.Level, options ...Option) *Module {
	m := &Module{
		id:        id,
		threshold: threshold,
		sink:      Default(),
		identity:  CallerIdentity,
		logger:    logr.Discard(),
	}
	if !Enabled {
		return m
	}
	for _, opt := range options {
		opt(m)
	}

	if id > word.ModuleMask {
		m.logger.Info("module id does not fit its field and will be truncated", "module", id)
	}
	if m.identity(0) == 0 {
		m.logger.Info("function identities cannot be resolved, FunctionEntry and FunctionExit will record 0; use FunctionEntryID and FunctionExitID", "module", id)
	}
	m.logger.V(1).Info("trace module configured",
		"module", id,
		"threshold", threshold,
		"capacity", m.sink.Capacity(),
		"enabled", Enabled,
		"guarded", Guarded)

	return m
}

// ID is the module id stamped on every word
func (m *Module) ID() word.Module {
	return m.id
}

// Threshold is the highest verbosity this module records
func (m *Module) Threshold() verbosity.Level {
	return m.threshold
}

// Allows reports whether a call at level v would be recorded
func (m *Module) Allows(v verbosity.Level) bool {
	return Enabled && verbosity.Allows(v, m.threshold)
}

// FunctionEntry records that the calling function has been entered
func (m *Module) FunctionEntry(v verbosity.Level) {
	if !m.Allows(v) {
		return
	}
	m.sink.Write(word.EncodeFunction(word.TypeFunctionEntry, m.id, m.identity(1)))
}

// FunctionExit records that the calling function is returning
func (m *Module) FunctionExit(v verbosity.Level) {
	if !m.Allows(v) {
		return
	}
	m.sink.Write(word.EncodeFunction(word.TypeFunctionExit, m.id, m.identity(1)))
}

// FunctionEntryID records entry into the function with registry code fn. Use it where
// CallerIdentity cannot resolve functions and returns 0, which depends on the runtime
// keeping function tables; NewModule logs when that is the case.
func (m *Module) FunctionEntryID(v verbosity.Level, fn uint32) {
	if !m.Allows(v) {
		return
	}
	m.sink.Write(word.EncodeFunction(word.TypeFunctionEntry, m.id, fn))
}

// FunctionExitID records exit from the function with registry code fn
func (m *Module) FunctionExitID(v verbosity.Level, fn uint32) {
	if !m.Allows(v) {
		return
	}
	m.sink.Write(word.EncodeFunction(word.TypeFunctionExit, m.id, fn))
}

// LocalEvent records an event whose id is private to this module
func (m *Module) LocalEvent(v verbosity.Level, id word.EventID, param uint16) {
	if !m.Allows(v) {
		return
	}
	m.sink.Write(word.EncodeEvent(word.TypeLocalEvent, m.id, id, param))
}

// GlobalEvent records an event from the namespace shared by all modules
func (m *Module) GlobalEvent(v verbosity.Level, id word.EventID, param uint16) {
	if !m.Allows(v) {
		return
	}
	m.sink.Write(word.EncodeEvent(word.TypeGlobalEvent, m.id, id, param))
}

// CallerIdentity derives a function identity from the entry address of the function skip
// frames above its caller, truncated to the width of the payload. A function inlined into
// its caller reports the caller's entry address.
func CallerIdentity(skip int) uint32 {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) == 0 {
		return 0
	}
	fn := runtime.FuncForPC(pcs[0] - 1)
	if fn == nil {
		return uint32(pcs[0]) & word.FunctionMask
	}
	return uint32(fn.Entry()) & word.FunctionMask
}
