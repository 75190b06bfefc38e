// guard provides the critical sections wrapped around buffer writes
package guard

import "github.com/omaskery/tracelog/pkg/irq"

// Section is a scoped critical section: Enter acquires it and returns the state Exit needs
// to release it. Every Enter must be paired with exactly one Exit on all paths.
type Section interface {
	Enter() irq.State
	Exit(irq.State)
}

// Masked disables maskable interrupts for the duration of the section, so the write is atomic
// with respect to preemption on the same core at the cost of delaying pending handlers
type Masked struct {
	ctl irq.Controller
}

// NewMasked builds a masking section over ctl, falling back to irq.Default when ctl is nil
func NewMasked(ctl irq.Controller) Masked {
	if ctl == nil {
		ctl = irq.Default()
	}
	return Masked{ctl: ctl}
}

func (m Masked) Enter() irq.State {
	return m.ctl.Disable()
}

func (m Masked) Exit(s irq.State) {
	m.ctl.Restore(s)
}

// None performs no protection at all. It adds nothing to interrupt latency, but a write that
// preempts another write may lose a cursor update or land in the same slot.
type None struct{}

func (None) Enter() irq.State { return 0 }

func (None) Exit(irq.State) {}

// Run executes fn inside s, releasing it even if fn panics
func Run[S Section](s S, fn func()) {
	st := s.Enter()
	defer s.Exit(st)
	fn()
}
