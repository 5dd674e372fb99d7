//go:build !linux

package mmio

import "errors"

// Mapping is unavailable on this platform.
type Mapping struct{}

func Map(path string, addr uint64, size int) (*Mapping, error) {
	return nil, errors.ErrUnsupported
}

func (m *Mapping) Load32(off uintptr) uint32 { panic("unreachable") }
func (m *Mapping) Store32(off uintptr, v uint32) { panic("unreachable") }
func (m *Mapping) Close() error { return nil }
