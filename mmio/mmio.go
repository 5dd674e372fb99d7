// Package mmio provides typed access to 32-bit memory-mapped registers.
//
// Registers are addressed relative to a Bus, which is either a mapping of
// physical memory (see Map) or a simulated device. All accesses are single
// 32-bit loads and stores, issued in program order.
package mmio

import "errors"

var ErrRange = errors.New("invalid register range")

// Bus is a 32-bit register space addressed by byte offset.
type Bus interface {
	Load32(off uintptr) uint32
	Store32(off uintptr, v uint32)
}

type Register32 interface {
	Load() uint32
	Store(uint32)
}

// U32 is a plain 32-bit register.
type U32 struct {
	bus Bus
	off uintptr
}

func NewU32(bus Bus, off uintptr) U32 {
	return U32{bus, off}
}

func (r U32) Load() uint32   { return r.bus.Load32(r.off) }
func (r U32) Store(v uint32) { r.bus.Store32(r.off, v) }

// Offset returns the register's byte offset on its bus.
func (r U32) Offset() uintptr { return r.off }

// R32 is a 32-bit register holding flags of type T.
type R32[T ~uint32] struct {
	U32
}

func NewR32[T ~uint32](bus Bus, off uintptr) R32[T] {
	return R32[T]{U32{bus, off}}
}

func (r R32[T]) Load() T   { return T(r.U32.Load()) }
func (r R32[T]) Store(v T) { r.U32.Store(uint32(v)) }

// WriteFIFO pushes p to the data port reg as successive little-endian words.
// The port doesn't accept partial words, so len(p) must be a multiple of 4.
func WriteFIFO(reg Register32, p []byte) {
	if len(p)&0x3 != 0 {
		panic("mmio: unaligned fifo write")
	}
	for len(p) > 0 {
		reg.Store(uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24)
		p = p[4:]
	}
}

// ReadFIFO fills p with successive little-endian words loaded from the data
// port reg.  Each word is acknowledged by writing zero back to the port,
// which tells the device it may present the next one.
func ReadFIFO(reg Register32, p []byte) {
	if len(p)&0x3 != 0 {
		panic("mmio: unaligned fifo read")
	}
	for len(p) > 0 {
		data := reg.Load()
		reg.Store(0)
		p[0], p[1], p[2], p[3] = byte(data), byte(data>>8), byte(data>>16), byte(data>>24)
		p = p[4:]
	}
}
