//go:build debug

package debug

import "fmt"

const Enabled = true

func Assert(b bool, message string) {
	if !b {
		panic("assertion failed: " + message)
	}
}

func AssertErrNil(err error) {
	if err != nil {
		panic(err)
	}
}

func Assertf(b bool, format string, args ...any) {
	if !b {
		panic("assertion failed: " + fmt.Sprintf(format, args...))
	}
}
