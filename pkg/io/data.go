package io

import (
	"encoding/json"

	"github.com/omaskery/tracelog/pkg/events"
)

// DisplayTimeUnit indicates whether time should be displayed in nano or milliseconds
type DisplayTimeUnit string

const (
	DisplayTimeNs DisplayTimeUnit = "ns"
	DisplayTimeMs DisplayTimeUnit = "ms"
)

// EventWriter receives converted trace events
type EventWriter interface {
	Write(e events.Event) error
	Close() error
}

// TefData is an in-memory JSON Object Format Trace Event Format file
type TefData struct {
	traceEvents     []events.Event
	displayTimeUnit DisplayTimeUnit
	metadata        map[string]interface{}
}

// Write records the given trace event
func (td *TefData) Write(e events.Event) error {
	td.traceEvents = append(td.traceEvents, e)
	return nil
}

// Close does nothing, the data stays available until written out
func (td *TefData) Close() error {
	return nil
}

// SetDisplayTimeUnit sets what units timestamps should be displayed in
func (td *TefData) SetDisplayTimeUnit(d DisplayTimeUnit) {
	td.displayTimeUnit = d
}

// SetMetadata stores a value under the file's otherData section, such as the capture's source
func (td *TefData) SetMetadata(key string, value interface{}) {
	if td.metadata == nil {
		td.metadata = map[string]interface{}{}
	}
	td.metadata[key] = value
}

// Events retrieves the events stored in the file
func (td TefData) Events() []events.Event {
	return td.traceEvents
}

// DisplayTimeUnit gets the desired units to display timestamps from this file
func (td TefData) DisplayTimeUnit() DisplayTimeUnit {
	return td.displayTimeUnit
}

// Metadata retrieves the values stored under otherData
func (td TefData) Metadata() map[string]interface{} {
	return td.metadata
}

type jsonObjectFile struct {
	TraceEvents     []json.RawMessage      `json:"traceEvents"`
	DisplayTimeUnit string                 `json:"displayTimeUnit,omitempty"`
	Metadata        map[string]interface{} `json:"otherData,omitempty"`
}

type jsonEventPhase struct {
	Phase string `json:"ph"`
}

type jsonEventCore struct {
	jsonEventPhase
	Name       string `json:"name"`
	Categories string `json:"cat,omitempty"`
	Timestamp  int64  `json:"ts"`
	ProcessID  *int64 `json:"pid,omitempty"`
	ThreadID   *int64 `json:"tid,omitempty"`
}

type jsonEventWithArgs struct {
	jsonEventCore
	Args map[string]interface{} `json:"args,omitempty"`
}

type jsonDurationEvent struct {
	jsonEventWithArgs
}

type jsonCompleteEvent struct {
	jsonEventWithArgs
	Duration int64 `json:"dur"`
}

type jsonInstantEvent struct {
	jsonEventWithArgs
	Scope string `json:"s,omitempty"`
}

type jsonMetadataEvent struct {
	jsonEventWithArgs
}
