package mmio_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/clktmr/ucode/mmio"
)

// A regular file stands in for /dev/mem, the page cache makes stores visible
// to ordinary reads.
func TestMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem")
	if err := os.WriteFile(path, make([]byte, 2*os.Getpagesize()), 0o600); err != nil {
		t.Fatal(err)
	}

	addr := uint64(os.Getpagesize()) + 0x40
	m, err := mmio.Map(path, addr, 16)
	if err != nil {
		t.Fatal(err)
	}

	m.Store32(0x8, 0x12345678)
	if got := m.Load32(0x8); got != 0x12345678 {
		t.Fatalf("expected %#x, got %#x", 0x12345678, got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(data[addr+0x8:]); got != 0x12345678 {
		t.Fatalf("store not visible in backing memory: %#x", got)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("access beyond window didn't panic")
			}
		}()
		m.Load32(0x10)
	}()

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMapErrors(t *testing.T) {
	if _, err := mmio.Map("/nonexistent/mem", 0x1000, 16); err == nil {
		t.Error("expected error for missing device")
	}
	if _, err := mmio.Map(os.DevNull, 0x1002, 16); !errors.Is(err, mmio.ErrRange) {
		t.Errorf("expected %v, got %v", mmio.ErrRange, err)
	}
}
