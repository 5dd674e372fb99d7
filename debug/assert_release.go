//go:build !debug

// Package debug provides assertions for internal invariants.  They panic
// when built with the debug tag and compile to no-ops otherwise.
package debug

// Guard assertions with expensive arguments with `if debug.Enabled {...}`,
// otherwise they aren't removed from release builds.
const Enabled = false

// Assert panics if b is false.
func Assert(b bool, message string) {}

// AssertErrNil panics if err is not nil.
func AssertErrNil(err error) {}

// Assertf panics with a formatted message if b is false.
func Assertf(b bool, format string, args ...any) {}
