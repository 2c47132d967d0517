//go:build !debug

package debug

// Debug controls the collection of extra diagnostics; it is toggled by the
// "debug" build tag.
const Debug = false

// Assert does nothing unless the debug build tag is set.
func Assert(condition bool, message ...string) {}
