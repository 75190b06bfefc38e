//go:build !debuglog_unguarded

package debuglog

import (
	"github.com/omaskery/tracelog/pkg/guard"
	"github.com/omaskery/tracelog/pkg/irq"
)

// Guarded reports whether default buffer writes mask interrupts. Build with
// -tags debuglog_unguarded to trade atomicity for interrupt latency.
const Guarded = true

type defaultSection = guard.Masked

func newDefaultSection() defaultSection {
	return guard.NewMasked(irq.Default())
}
