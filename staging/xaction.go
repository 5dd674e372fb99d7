package staging

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/clktmr/ucode/debug"
	"github.com/clktmr/ucode/mmio"
)

// session drives single transactions on a mapped mailbox.
type session struct {
	regs    *registers
	clk     clock.Clock
	poll    time.Duration
	timeout time.Duration
	log     logr.Logger
	metrics *Metrics

	anomalies int
}

// request sends chunk behind a load header and starts the agent.  chunk must
// be a multiple of 4 bytes long.
func (s *session) request(chunk []byte) {
	hdr, err := NewRequest(len(chunk)).AppendBinary(make([]byte, 0, HeaderSize))
	debug.AssertErrNil(err)
	mmio.WriteFIFO(s.regs.wrData, hdr)
	mmio.WriteFIFO(s.regs.wrData, chunk)
	s.regs.start()
	s.metrics.request(len(chunk))
}

// wait polls the status register until the agent is ready or the timeout
// expires.
func (s *session) wait() State {
	deadline := s.clk.Now().Add(s.timeout)
	for {
		s.clk.Sleep(s.poll)
		if s.regs.status.Load()&StatusReady != 0 {
			break
		}
		if !s.clk.Now().Before(deadline) {
			break
		}
	}

	// An error wins over ready, timeout is only reported if neither is set.
	status := s.regs.status.Load()
	if status&StatusError != 0 {
		return Error
	}
	if status&StatusReady == 0 {
		return Timeout
	}
	return OK
}

// readResponse consumes the response header from the read data port.
func (s *session) readResponse() (resp Response, state State) {
	var buf [HeaderSize]byte
	mmio.ReadFIFO(s.regs.rdData, buf[:])
	debug.AssertErrNil(resp.UnmarshalBinary(buf[:]))

	// Mismatches here point at a confused agent but don't stop the transfer,
	// only the flags decide.
	if resp.Identifier != Identifier {
		s.anomaly("unexpected response identifier", resp.Identifier, Identifier)
	}
	if resp.Length != HeaderWords {
		s.anomaly("unexpected response header length", resp.Length, HeaderWords)
	}

	s.log.V(1).Info("response", "offset", hex(resp.Offset), "flags", resp.Flags)
	if resp.Flags&RespError != 0 {
		return resp, Error
	}
	return resp, OK
}

func (s *session) anomaly(msg string, got, expected uint32) {
	s.anomalies++
	s.metrics.anomaly()
	s.log.Info(msg, "got", hex(got), "expected", hex(expected))
}

func hex(v uint32) string {
	return fmt.Sprintf("%#x", v)
}
