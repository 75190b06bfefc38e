package io

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/omaskery/tracelog/pkg/events"
)

var (
	ErrUnknownEvent = errors.New("event type cannot be written")
	ErrClosed       = errors.New("writer is closed")
)

// WriteJsonObject writes data in the JSON Object Format
func WriteJsonObject(w io.Writer, data TefData) error {
	jsonFile := jsonObjectFile{
		TraceEvents:     make([]json.RawMessage, 0, len(data.Events())),
		DisplayTimeUnit: string(data.DisplayTimeUnit()),
		Metadata:        data.Metadata(),
	}

	for _, event := range data.Events() {
		msg, err := marshalEvent(event)
		if err != nil {
			return err
		}
		jsonFile.TraceEvents = append(jsonFile.TraceEvents, msg)
	}

	encoder := json.NewEncoder(w)
	err := encoder.Encode(&jsonFile)
	if err != nil {
		return fmt.Errorf("failed to write JSON object file: %w", err)
	}

	return nil
}

// StreamingWriter writes events in the JSON Array Format as they arrive. The array is only
// terminated by Close, though viewers accept an unterminated array.
type StreamingWriter struct {
	w       io.WriteCloser
	written int
	closed  bool
}

// NewStreamingWriter streams events to w, closing it on Close
func NewStreamingWriter(w io.WriteCloser) *StreamingWriter {
	return &StreamingWriter{w: w}
}

func (s *StreamingWriter) Write(e events.Event) error {
	if s.closed {
		return ErrClosed
	}
	msg, err := marshalEvent(e)
	if err != nil {
		return err
	}

	sep := ","
	if s.written == 0 {
		sep = "["
	}
	if _, err := io.WriteString(s.w, sep); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}
	if _, err := s.w.Write(msg); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	s.written++
	return nil
}

func (s *StreamingWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	tail := "]"
	if s.written == 0 {
		tail = "[]"
	}
	if _, err := io.WriteString(s.w, tail); err != nil {
		return fmt.Errorf("failed to terminate array: %w", err)
	}
	if err := s.w.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}

func marshalEvent(event events.Event) (json.RawMessage, error) {
	jsonEvent, err := writeJsonEvent(event)
	if err != nil {
		return nil, fmt.Errorf("failed while preparing json event: %w", err)
	}

	msg, err := json.Marshal(jsonEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to serialise json event: %w", err)
	}
	return msg, nil
}

func writeJsonEvent(event events.Event) (interface{}, error) {
	switch e := event.(type) {
	case *events.BeginDuration:
		return jsonDurationEvent{
			jsonEventWithArgs: jsonEventWithArgs{
				jsonEventCore: writeJsonEventCore(event),
				Args:          e.Args,
			},
		}, nil
	case *events.EndDuration:
		return jsonDurationEvent{
			jsonEventWithArgs: jsonEventWithArgs{
				jsonEventCore: writeJsonEventCore(event),
				Args:          e.Args,
			},
		}, nil
	case *events.Complete:
		return jsonCompleteEvent{
			jsonEventWithArgs: jsonEventWithArgs{
				jsonEventCore: writeJsonEventCore(event),
				Args:          e.Args,
			},
			Duration: e.Duration,
		}, nil

	case *events.Instant:
		return jsonInstantEvent{
			jsonEventWithArgs: jsonEventWithArgs{
				jsonEventCore: writeJsonEventCore(event),
				Args:          e.Args,
			},
			Scope: string(e.Scope),
		}, nil

	case *events.MetadataProcessName:
		return metadataEvent(event, events.MetadataKindProcessName, "name", e.ProcessName), nil
	case *events.MetadataThreadName:
		return metadataEvent(event, events.MetadataKindThreadName, "name", e.ThreadName), nil
	case *events.MetadataThreadSortIndex:
		return metadataEvent(event, events.MetadataKindThreadSortIndex, "sort_index", e.SortIndex), nil
	}

	return nil, fmt.Errorf("phase '%v': %w", event.Phase(), ErrUnknownEvent)
}

func metadataEvent(e events.Event, kind events.MetadataKind, key string, value interface{}) jsonMetadataEvent {
	core := writeJsonEventCore(e)
	core.Name = string(kind)
	return jsonMetadataEvent{
		jsonEventWithArgs: jsonEventWithArgs{
			jsonEventCore: core,
			Args: map[string]interface{}{
				key: value,
			},
		},
	}
}

func writeJsonEventCore(e events.Event) jsonEventCore {
	core := e.Core()
	return jsonEventCore{
		jsonEventPhase: jsonEventPhase{
			Phase: string(e.Phase()),
		},
		Name:       core.Name,
		Categories: strings.Join(core.Categories, ","),
		Timestamp:  core.Timestamp,
		ProcessID:  core.ProcessID,
		ThreadID:   core.ThreadID,
	}
}
