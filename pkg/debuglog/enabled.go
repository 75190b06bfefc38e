//go:build !nodebuglog

package debuglog

import "github.com/omaskery/tracelog/pkg/ring"

// Enabled reports whether the facility is compiled in. Build with -tags nodebuglog to turn
// every Module method into a no-op and drop the process-wide buffer.
const Enabled = true

var std = ring.NewWriter(ring.MustNew(BufferLen), newDefaultSection())

// Buffer is the process-wide buffer written by modules without their own sink
func Buffer() *ring.Buffer {
	return std.Buffer()
}

// Default is the process-wide sink
func Default() Sink {
	return std
}
