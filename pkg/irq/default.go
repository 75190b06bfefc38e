//go:build !tinygo

package irq

// Default returns the controller used by guarded writers when none is given. Hosted
// builds have no interrupt mask to touch, so goroutines are excluded instead.
func Default() Controller {
	return hostController
}
