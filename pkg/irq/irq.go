// irq abstracts the platform primitive for masking interrupts on the current core
package irq

import "sync"

// State is the interrupt-enable state saved by Disable, opaque to callers
type State uintptr

// Controller masks and unmasks maskable interrupts. Disable must return the state from
// before the call so that nested sections restore correctly.
type Controller interface {
	Disable() State
	Restore(s State)
}

const (
	stateEnabled State = 0
	stateMasked  State = 1
)

// Handler is an interrupt service routine
type Handler = func()

// Sim is a simulated single core: there is exactly one flow of control and interrupts
// preempt it synchronously at the point they are raised. It is not safe for use from
// multiple goroutines.
type Sim struct {
	masked  bool
	pending []Handler
	// Delivered counts handlers that have run
	Delivered int
}

// NewSim returns a simulated core with interrupts enabled
func NewSim() *Sim {
	return &Sim{}
}

func (s *Sim) Disable() State {
	prev := stateEnabled
	if s.masked {
		prev = stateMasked
	}
	s.masked = true
	return prev
}

func (s *Sim) Restore(st State) {
	s.masked = st == stateMasked
	if !s.masked {
		s.deliver()
	}
}

// Masked reports whether interrupts are currently disabled
func (s *Sim) Masked() bool {
	return s.masked
}

// Pending reports how many raised interrupts are waiting for interrupts to be re-enabled
func (s *Sim) Pending() int {
	return len(s.pending)
}

// Raise fires an interrupt. While interrupts are enabled the handler preempts the caller
// immediately, otherwise it is held until the mask is restored.
func (s *Sim) Raise(h Handler) {
	s.pending = append(s.pending, h)
	if !s.masked {
		s.deliver()
	}
}

func (s *Sim) deliver() {
	for len(s.pending) > 0 && !s.masked {
		h := s.pending[0]
		s.pending = s.pending[1:]
		// handlers run with further interrupts masked, as on a core without nesting
		prev := s.Disable()
		h()
		s.masked = prev == stateMasked
		s.Delivered++
	}
}

// Host stands in for interrupt masking in a hosted Go program, where any goroutine may
// preempt any other. Disable excludes every other goroutine until Restore; it is not
// reentrant, a goroutine must not call Disable twice without restoring in between.
type Host struct {
	mu sync.Mutex
}

func (h *Host) Disable() State {
	h.mu.Lock()
	return stateEnabled
}

func (h *Host) Restore(State) {
	h.mu.Unlock()
}

var hostController = &Host{}
