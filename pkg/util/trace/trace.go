// trace converts decoded log records into Trace Event Format events so a capture can be
// inspected in chrome://tracing or Perfetto, one row per module
package trace

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-logr/logr"

	"github.com/omaskery/tracelog/pkg/decoder"
	"github.com/omaskery/tracelog/pkg/events"
	tio "github.com/omaskery/tracelog/pkg/io"
	"github.com/omaskery/tracelog/pkg/word"
)

const (
	CategoryFunction = "function"
	CategoryLocal    = "local"
	CategoryGlobal   = "global"
	CategoryUnknown  = "unknown"
)

type TracerOption = func(t *Tracer)

type ErrorHandler = func(err error)

// TimestampFn assigns a record its position on the timeline
type TimestampFn = func(r decoder.Record) int64

func WithLogger(logger logr.Logger) TracerOption {
	return func(t *Tracer) {
		t.logger = logger
	}
}

func WithErrorHandler(handler ErrorHandler) TracerOption {
	return func(t *Tracer) {
		t.errHandler = handler
	}
}

func WithTimestampFn(f TimestampFn) TracerOption {
	return func(t *Tracer) {
		t.timestampFn = f
	}
}

// WithProcessID sets the process id every event is attributed to
func WithProcessID(pid int64) TracerOption {
	return func(t *Tracer) {
		t.pid = pid
	}
}

// WithProcessName emits a process_name metadata event ahead of the first record
func WithProcessName(name string) TracerOption {
	return func(t *Tracer) {
		t.processName = name
	}
}

type openDuration struct {
	name string
	ts   int64
}

// Tracer writes one event per record, pairing entry and exit records per module into durations
type Tracer struct {
	stream      tio.EventWriter
	logger      logr.Logger
	errHandler  ErrorHandler
	timestampFn TimestampFn
	pid         int64
	processName string

	started bool
	firstTs int64
	lastTs  int64
	seen    map[word.Module]bool
	open    map[word.Module][]openDuration
}

func NewTracer(stream tio.EventWriter, options ...TracerOption) *Tracer {
	t := &Tracer{
		stream:      stream,
		logger:      logr.Discard(),
		timestampFn: IndexTimestampFn,
		pid:         1,
		seen:        map[word.Module]bool{},
		open:        map[word.Module][]openDuration{},
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func TracerToWriter(w io.WriteCloser, options ...TracerOption) *Tracer {
	return NewTracer(tio.NewStreamingWriter(w), options...)
}

func TraceToFile(path string, options ...TracerOption) (*Tracer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return TracerToWriter(f, options...), nil
}

// Close ends durations still open at the end of the capture, then closes the stream
func (t *Tracer) Close() error {
	modules := make([]word.Module, 0, len(t.open))
	for m := range t.open {
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i] < modules[j] })

	for _, m := range modules {
		stack := t.open[m]
		for i := len(stack) - 1; i >= 0; i-- {
			t.logger.V(1).Info("function still running at end of capture", "module", m, "function", stack[i].name)
			t.writeEvent(&events.EndDuration{
				EventWithArgs: events.EventWithArgs{
					EventCore: t.core(m, stack[i].name, CategoryFunction, t.lastTs),
					Args:      map[string]interface{}{"truncated": true},
				},
			})
		}
		delete(t.open, m)
	}

	if err := t.stream.Close(); err != nil {
		return fmt.Errorf("error closing stream writer: %w", err)
	}
	return nil
}

// TraceAll converts records given oldest first
func (t *Tracer) TraceAll(records []decoder.Record) {
	for _, r := range records {
		t.Trace(r)
	}
}

// Trace converts a single record, records must arrive oldest first
func (t *Tracer) Trace(r decoder.Record) {
	ts := t.timestampFn(r)
	if !t.started {
		t.started = true
		t.firstTs = ts
		if t.processName != "" {
			pid := t.pid
			t.writeEvent(&events.MetadataProcessName{
				EventCore:   events.EventCore{ProcessID: &pid},
				ProcessName: t.processName,
			})
		}
	}
	t.lastTs = ts

	m := r.Fields.Module
	if !r.Fields.Type.Known() {
		m = r.Module.ID
	}
	t.introduceModule(m, r.Module.Name)

	args := map[string]interface{}{"word": r.Word.String()}

	switch r.Fields.Type {
	case word.TypeFunctionEntry:
		t.open[m] = append(t.open[m], openDuration{name: r.Function, ts: ts})
		t.writeEvent(&events.BeginDuration{
			EventWithArgs: events.EventWithArgs{
				EventCore: t.core(m, r.Function, CategoryFunction, ts),
				Args:      args,
			},
		})
	case word.TypeFunctionExit:
		t.exit(m, r.Function, ts, args)
	case word.TypeLocalEvent:
		args["param"] = r.Fields.Param
		t.writeEvent(&events.Instant{
			EventWithArgs: events.EventWithArgs{
				EventCore: t.core(m, r.Event.Render(r.Fields.Param), CategoryLocal, ts),
				Args:      args,
			},
			Scope: events.InstantScopeThread,
		})
	case word.TypeGlobalEvent:
		args["param"] = r.Fields.Param
		t.writeEvent(&events.Instant{
			EventWithArgs: events.EventWithArgs{
				EventCore: t.core(m, r.Event.Render(r.Fields.Param), CategoryGlobal, ts),
				Args:      args,
			},
			Scope: events.InstantScopeGlobal,
		})
	default:
		t.writeEvent(&events.Instant{
			EventWithArgs: events.EventWithArgs{
				EventCore: t.core(m, r.Text, CategoryUnknown, ts),
				Args:      args,
			},
			Scope: events.InstantScopeThread,
		})
	}
}

func (t *Tracer) exit(m word.Module, name string, ts int64, args map[string]interface{}) {
	stack := t.open[m]

	match := -1
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].name == name {
			match = i
			break
		}
	}

	switch {
	case match >= 0:
		// exits of anything entered after the match were overwritten or never logged
		for i := len(stack) - 1; i > match; i-- {
			t.logger.V(1).Info("closing function without an exit record", "module", m, "function", stack[i].name)
			t.writeEvent(&events.EndDuration{
				EventWithArgs: events.EventWithArgs{
					EventCore: t.core(m, stack[i].name, CategoryFunction, ts),
					Args:      map[string]interface{}{"truncated": true},
				},
			})
		}
		t.open[m] = stack[:match]
	case len(stack) == 0:
		// the entry was overwritten, so the function has been running since before the capture
		t.logger.V(1).Info("exit without a logged entry", "module", m, "function", name)
		args["truncated"] = true
		t.writeComplete(m, name, t.firstTs, ts, args)
		return
	default:
		t.logger.V(1).Info("exit does not match any running function", "module", m, "function", name)
		args["unmatched"] = true
		t.writeComplete(m, name, ts, ts, args)
		return
	}

	t.writeEvent(&events.EndDuration{
		EventWithArgs: events.EventWithArgs{
			EventCore: t.core(m, name, CategoryFunction, ts),
			Args:      args,
		},
	})
	if len(t.open[m]) == 0 {
		delete(t.open, m)
	}
}

// writeComplete emits a run of name from start to end as a single event, so it cannot pair
// with begin or end events already written for the module
func (t *Tracer) writeComplete(m word.Module, name string, start, end int64, args map[string]interface{}) {
	t.writeEvent(&events.Complete{
		EventWithArgs: events.EventWithArgs{
			EventCore: t.core(m, name, CategoryFunction, start),
			Args:      args,
		},
		Duration: end - start,
	})
}

func (t *Tracer) introduceModule(m word.Module, name string) {
	if t.seen[m] {
		return
	}
	t.seen[m] = true

	pid := t.pid
	tid := int64(m)
	t.writeEvent(&events.MetadataThreadName{
		EventCore:  events.EventCore{ProcessID: &pid, ThreadID: &tid},
		ThreadName: name,
	})
	t.writeEvent(&events.MetadataThreadSortIndex{
		EventCore: events.EventCore{ProcessID: &pid, ThreadID: &tid},
		SortIndex: tid,
	})
}

func (t *Tracer) core(m word.Module, name, category string, ts int64) events.EventCore {
	pid := t.pid
	tid := int64(m)
	return events.EventCore{
		Name:       name,
		Categories: []string{category},
		Timestamp:  ts,
		ProcessID:  &pid,
		ThreadID:   &tid,
	}
}

func (t *Tracer) writeEvent(e events.Event) {
	err := t.stream.Write(e)
	if err != nil {
		t.handleError(fmt.Sprintf("failed to write %s event", e.Phase()), err)
	}
}

func (t *Tracer) handleError(context string, err error) {
	t.logger.Error(err, context)
	err = fmt.Errorf("%s: %w", context, err)
	if t.errHandler != nil {
		(t.errHandler)(err)
	}
}

// IndexTimestampFn places records one microsecond apart in buffer order
func IndexTimestampFn(r decoder.Record) int64 {
	return int64(r.Index)
}
