// Package sim provides a simulated staging agent.  It stands in for the
// hardware in tests and in dry runs of tools that drive the mailbox.
package sim

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/clktmr/ucode/staging"
)

// Request is a request as received by the agent.
type Request struct {
	Header  staging.Header
	Payload []byte
}

// Reply is the agent's reaction to a request: the status it raises and the
// response it presents on the read data port.
type Reply struct {
	Status   staging.StatusFlags
	Response staging.Response
}

// Respond returns a well formed Reply with the ready bit set.
func Respond(offset uint32, flags staging.RespFlags) Reply {
	return Reply{
		Status: staging.StatusReady,
		Response: staging.Response{
			Identifier: staging.Identifier,
			Length:     staging.HeaderWords,
			Offset:     offset,
			Flags:      flags,
		},
	}
}

// Handler decides how the agent reacts to a request.  It's called with the
// agent locked and may only use Accept on a.
type Handler func(a *Agent, req Request) Reply

// Agent simulates the hardware side of the mailbox.  It implements
// staging.Mapper and staging.Window.
type Agent struct {
	// Handler is called for every request.  If nil, Accept is used.
	Handler Handler

	mtx    sync.Mutex
	image  []byte
	next   int // offset the agent expects next
	status staging.StatusFlags
	wr     []uint32 // request words since the last go or abort
	rd     []uint32 // pending response words
	loaded bool     // read data was loaded but not yet acknowledged

	addr      uint64
	mapped    int
	closed    int
	aborts    int
	polls     int
	undrained int
	requests  []Request
}

// NewAgent returns an agent expecting an image of size bytes.
func NewAgent(size int) *Agent {
	return &Agent{image: make([]byte, size)}
}

func (a *Agent) Map(addr uint64, size int) (staging.Window, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if size != staging.WindowSize {
		return nil, fmt.Errorf("sim: window size %d", size)
	}
	a.addr = addr
	a.mapped++
	return a, nil
}

func (a *Agent) Close() error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.closed++
	return nil
}

func (a *Agent) Load32(off uintptr) uint32 {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	switch off {
	case staging.RegStatus:
		a.polls++
		return uint32(a.status)
	case staging.RegReadData:
		if a.loaded {
			a.undrained++
		}
		a.loaded = true
		if len(a.rd) == 0 {
			return 0
		}
		return a.rd[0]
	}
	return 0
}

func (a *Agent) Store32(off uintptr, v uint32) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	switch off {
	case staging.RegControl:
		ctrl := staging.ControlFlags(v)
		if ctrl&staging.CtrlAbort != 0 {
			a.aborts++
			a.wr, a.rd = nil, nil
			a.loaded = false
			a.status = 0
		}
		if ctrl&staging.CtrlGo != 0 {
			a.dispatch()
		}
	case staging.RegWriteData:
		a.wr = append(a.wr, v)
	case staging.RegReadData:
		if v == 0 && a.loaded {
			a.loaded = false
			if len(a.rd) > 0 {
				a.rd = a.rd[1:]
			}
		}
	}
}

func (a *Agent) dispatch() {
	var req Request
	words := a.wr
	a.wr = nil
	if len(words) >= staging.HeaderWords {
		w := words[:staging.HeaderWords]
		req.Header = staging.Header{Identifier: w[0], Length: w[1], Command: w[2], Reserved: w[3]}
		for _, v := range words[staging.HeaderWords:] {
			req.Payload = binary.LittleEndian.AppendUint32(req.Payload, v)
		}
	}
	a.requests = append(a.requests, req)

	handler := a.Handler
	if handler == nil {
		handler = (*Agent).Accept
	}
	reply := handler(a, req)
	a.status = reply.Status
	w := reply.Response.Words()
	a.rd = w[:]
	a.loaded = false
}

// Accept stages the request's payload at the offset the agent asked for last
// and asks for the next chunk, or reports OffsetEnd once the image is
// complete.  Malformed requests are answered with the error flag.
func (a *Agent) Accept(req Request) Reply {
	h := req.Header
	if h.Identifier != staging.Identifier || h.Command != staging.CmdLoad ||
		h.PayloadSize() != len(req.Payload) || a.next+len(req.Payload) > len(a.image) {
		return Respond(uint32(a.next), staging.RespError)
	}

	a.next += copy(a.image[a.next:], req.Payload)
	if a.next == len(a.image) {
		return Respond(staging.OffsetEnd, staging.RespSuccess)
	}
	return Respond(uint32(a.next), staging.RespInProgress)
}

// SetStatus forces the status register, e.g. to simulate stale state left
// by an earlier transfer.
func (a *Agent) SetStatus(s staging.StatusFlags) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.status = s
}

// Requests returns all requests received so far.
func (a *Agent) Requests() []Request {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return slices.Clone(a.requests)
}

// Image returns a copy of the staged image.
func (a *Agent) Image() []byte {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return slices.Clone(a.image)
}

// Checksum returns the CRC-8 of the staged image.
func (a *Agent) Checksum() uint8 {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return staging.Checksum(a.image)
}

// Complete reports whether the whole image was staged.
func (a *Agent) Complete() bool {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.next == len(a.image)
}

// Stats reports how the mailbox was used.
type Stats struct {
	Addr      uint64
	Mapped    int // number of Map calls
	Closed    int // number of Close calls
	Aborts    int
	Polls     int // status register loads
	Undrained int // read data loads not acknowledged before the next load
}

func (a *Agent) Stats() Stats {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return Stats{
		Addr:      a.addr,
		Mapped:    a.mapped,
		Closed:    a.closed,
		Aborts:    a.aborts,
		Polls:     a.polls,
		Undrained: a.undrained,
	}
}
