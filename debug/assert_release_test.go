//go:build !debug

package debug

import (
	"errors"
	"testing"
)

func TestReleaseNoop(t *testing.T) {
	if Enabled {
		t.Fatal("release build reports debug enabled")
	}
	Assert(false, "must not panic")
	Assertf(false, "must not panic: %d", 1)
	AssertErrNil(errors.New("must not panic"))
}
