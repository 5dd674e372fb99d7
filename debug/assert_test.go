//go:build debug

package debug

import (
	"errors"
	"testing"
)

func TestAssertErrNil(t *testing.T) {
	err := errors.New("failed")
	defer func() {
		if r := recover(); r != err {
			t.Fatalf("unexpected panic %v", r)
		}
	}()
	AssertErrNil(nil)
	AssertErrNil(err)
}

func TestAssertPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != "assertion failed: offset 0x10" {
			t.Fatalf("unexpected panic %v", r)
		}
	}()
	Assert(true, "must not panic")
	Assertf(false, "offset %#x", 0x10)
}
