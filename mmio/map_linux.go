package mmio

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mapping is a window of physical memory mapped through a memory device such
// as /dev/mem.  It implements Bus with atomic, uncached 32-bit accesses.
type Mapping struct {
	f    *os.File
	mem  []byte
	off  uintptr // start of the requested range within mem
	size uintptr
}

// Map maps size bytes of physical memory starting at addr from the memory
// device at path.  The mapping is page aligned internally, but only the
// requested range is addressable.
func Map(path string, addr uint64, size int) (*Mapping, error) {
	if size <= 0 || addr&0x3 != 0 {
		return nil, fmt.Errorf("map %#x+%#x: %w", addr, size, ErrRange)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}

	pagesize := uint64(unix.Getpagesize())
	aligned := addr &^ (pagesize - 1)
	off := addr - aligned
	length := (off + uint64(size) + pagesize - 1) &^ (pagesize - 1)

	mem, err := unix.Mmap(int(f.Fd()), int64(aligned), int(length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s at %#x: %w", path, aligned, err)
	}

	return &Mapping{f: f, mem: mem, off: uintptr(off), size: uintptr(size)}, nil
}

func (m *Mapping) word(off uintptr) *uint32 {
	if off&0x3 != 0 || off+4 > m.size {
		panic(fmt.Sprintf("mmio: register offset %#x out of range", off))
	}
	return (*uint32)(unsafe.Pointer(&m.mem[m.off+off]))
}

func (m *Mapping) Load32(off uintptr) uint32 {
	return atomic.LoadUint32(m.word(off))
}

func (m *Mapping) Store32(off uintptr, v uint32) {
	atomic.StoreUint32(m.word(off), v)
}

// Close unmaps the window.  The Mapping must not be used afterwards.
func (m *Mapping) Close() error {
	err := unix.Munmap(m.mem)
	m.mem = nil
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
