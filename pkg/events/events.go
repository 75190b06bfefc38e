// events provides logical representations of the Trace Event Format events that decoded trace
// buffers are converted into
package events

// Phase is the discriminator for identifying the type of an event in a Trace Event Format file
type Phase string

const (
	PhaseBeginDuration Phase = "B"
	PhaseEndDuration   Phase = "E"
	PhaseComplete      Phase = "X"
	PhaseInstant       Phase = "i"
	PhaseMetadata      Phase = "M"
)

// Event represents common information to all events
type Event interface {
	// Phase indicates what kind of event this is, primarily for marshaling
	Phase() Phase
	// Core provides mutable access to common event fields
	Core() *EventCore
}

// EventCore represents fields that are common to all events
type EventCore struct {
	// Name of the event, the function for durations and the event text for instants
	Name string
	// Categories is an optional collection of tags used by viewers for filtering
	Categories []string
	// Timestamp is the event time in microseconds
	Timestamp int64
	// ProcessID identifies the traced device
	ProcessID *int64
	// ThreadID identifies the module that emitted the event
	ThreadID *int64
}

// Core provides mutable access to the common fields of events
func (ec *EventCore) Core() *EventCore {
	return ec
}

// ArgSetter allows setting the arguments of events that allow it
type ArgSetter interface {
	SetArgs(args map[string]interface{})
}

// EventWithArgs represents events that carry a map of arbitrary arguments
type EventWithArgs struct {
	EventCore
	Args map[string]interface{}
}

// SetArgs replaces the arguments of the event
func (e *EventWithArgs) SetArgs(args map[string]interface{}) {
	e.Args = args
}

// BeginDuration marks a function being entered
type BeginDuration struct {
	EventWithArgs
}

func (BeginDuration) Phase() Phase { return PhaseBeginDuration }

// EndDuration marks a function returning
type EndDuration struct {
	EventWithArgs
}

func (EndDuration) Phase() Phase { return PhaseEndDuration }

// Complete is a whole function run in one event, used where the entry or exit record that
// would begin or end a duration is missing
type Complete struct {
	EventWithArgs
	// Duration of the run in microseconds
	Duration int64
}

func (Complete) Phase() Phase { return PhaseComplete }

// InstantScope represents how widely an instantaneous event is relevant within a trace file
type InstantScope string

const (
	// InstantScopeThread means the event only concerns the module that emitted it
	InstantScopeThread InstantScope = "t"
	// InstantScopeProcess means the event concerns every module of the device
	InstantScopeProcess InstantScope = "p"
	// InstantScopeGlobal means the event concerns the entire trace
	InstantScopeGlobal InstantScope = "g"
)

// Instant is an event without duration, such as a local or global trace event
type Instant struct {
	EventWithArgs
	// Scope indicates how widely this event is relevant
	Scope InstantScope
}

func (Instant) Phase() Phase { return PhaseInstant }

// MetadataKind identifies the well-known metadata events
type MetadataKind string

const (
	MetadataKindProcessName     MetadataKind = "process_name"
	MetadataKindThreadName      MetadataKind = "thread_name"
	MetadataKindThreadSortIndex MetadataKind = "thread_sort_index"
)

// MetadataProcessName names the traced device
type MetadataProcessName struct {
	EventCore
	ProcessName string
}

func (MetadataProcessName) Phase() Phase { return PhaseMetadata }

// MetadataThreadName names the row of a module
type MetadataThreadName struct {
	EventCore
	ThreadName string
}

func (MetadataThreadName) Phase() Phase { return PhaseMetadata }

// MetadataThreadSortIndex orders module rows, lower numbers are drawn higher
type MetadataThreadSortIndex struct {
	EventCore
	SortIndex int64
}

func (MetadataThreadSortIndex) Phase() Phase { return PhaseMetadata }
