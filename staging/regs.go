package staging

import (
	"github.com/clktmr/ucode/mmio"
)

// Register offsets within the mailbox window.
const (
	RegControl   = 0x0
	RegStatus    = 0x4
	RegWriteData = 0x8
	RegReadData  = 0xc

	// WindowSize is the size of the register window in bytes.
	WindowSize = 4 * 4
)

type ControlFlags uint32

// control write access
const (
	CtrlAbort ControlFlags = 1 << 0  // drop any pending transaction
	CtrlGo    ControlFlags = 1 << 31 // request is complete, start processing
)

type StatusFlags uint32

// status read access
const (
	StatusError StatusFlags = 1 << 2
	StatusReady StatusFlags = 1 << 31 // response available in read data
)

type registers struct {
	control mmio.R32[ControlFlags]
	status  mmio.R32[StatusFlags]
	wrData  mmio.U32
	rdData  mmio.U32
}

func newRegisters(bus mmio.Bus) *registers {
	return &registers{
		control: mmio.NewR32[ControlFlags](bus, RegControl),
		status:  mmio.NewR32[StatusFlags](bus, RegStatus),
		wrData:  mmio.NewU32(bus, RegWriteData),
		rdData:  mmio.NewU32(bus, RegReadData),
	}
}

func (r *registers) abort() { r.control.Store(CtrlAbort) }
func (r *registers) start() { r.control.Store(CtrlGo) }
