package staging

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("mailbox unavailable")
	ErrInvalidImage = errors.New("invalid image")
	ErrHardware     = errors.New("error")
	ErrTimeout      = errors.New("timeout")
)

// State classifies the outcome of a single transaction.
type State int

const (
	OK State = iota
	Error
	Timeout
)

func (s State) String() string {
	switch s {
	case OK:
		return "ok"
	case Error:
		return "error"
	case Timeout:
		return "timeout"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Err returns the error matching s, nil for OK.
func (s State) Err() error {
	switch s {
	case OK:
		return nil
	case Timeout:
		return ErrTimeout
	}
	return ErrHardware
}

func stateOf(err error) State {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrTimeout):
		return Timeout
	}
	return Error
}
