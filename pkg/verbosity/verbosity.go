// verbosity decides whether a trace call site is loud enough to be recorded
package verbosity

// Level ranks call sites, lower is more important. A module threshold is the highest level it records.
type Level int

// Off disables a call site without removing it
const Off Level = 0

// Allows reports whether a call at level call is recorded by a module with the given threshold
func Allows(call, threshold Level) bool {
	return call > Off && call <= threshold
}
