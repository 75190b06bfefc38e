//go:build tinygo

package irq

import "runtime/interrupt"

// CPU masks interrupts on the core running the caller
type CPU struct{}

func (CPU) Disable() State {
	return State(interrupt.Disable())
}

func (CPU) Restore(s State) {
	interrupt.Restore(interrupt.State(s))
}

// Default returns the controller used by guarded writers when none is given
func Default() Controller {
	return CPU{}
}
