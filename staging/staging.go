// Package staging loads microcode images into a hardware staging agent
// through its register mailbox.
//
// The mailbox consists of four 32-bit registers: control, status, write data
// and read data.  An image is transferred in page sized chunks.  Each chunk
// is written to write data behind a Header, then the go bit in control
// starts the agent.  Once status reports ready, the agent's Response is read
// from read data.  It either reports an error or the offset of the next
// chunk to send, until it reports OffsetEnd.
//
// Any error or timeout aborts the whole transfer.  The agent gives no
// indication how much of the image it accepted in that case, so a retry has
// to start from the beginning.
package staging

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/clktmr/ucode/debug"
	"github.com/clktmr/ucode/mmio"
)

const (
	DefaultChunkSize    = 4096 // one x86 page, the agent's transaction limit
	DefaultPollInterval = time.Millisecond
	DefaultTimeout      = 10 * time.Second

	// The agent may ask for chunks again, but never more than
	// DefaultBudgetFactor times the image size in total.
	DefaultBudgetFactor = 2
)

// Window is a mapped register window.
type Window interface {
	mmio.Bus
	Close() error
}

// Mapper maps the register window at a physical address.
type Mapper interface {
	Map(addr uint64, size int) (Window, error)
}

type MapperFunc func(addr uint64, size int) (Window, error)

func (f MapperFunc) Map(addr uint64, size int) (Window, error) { return f(addr, size) }

// DevMem returns a Mapper which maps physical memory from the memory device at
// path, usually /dev/mem.
func DevMem(path string) Mapper {
	return MapperFunc(func(addr uint64, size int) (Window, error) {
		m, err := mmio.Map(path, addr, size)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// Config tunes a Stager.  The zero value of each field selects its default.
type Config struct {
	ChunkSize    int           // bytes per transaction, rounded down to words
	PollInterval time.Duration // status polling interval
	Timeout      time.Duration // per transaction
	BudgetFactor int

	Clock   clock.Clock
	Log     logr.Logger
	Metrics *Metrics
}

func (c Config) withDefaults() Config {
	c.ChunkSize &^= 0x3
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.BudgetFactor <= 0 {
		c.BudgetFactor = DefaultBudgetFactor
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	return c
}

// Result summarizes the last transfer of a Stager.
type Result struct {
	State     State
	Chunks    int    // requests sent
	Bytes     int    // payload bytes of all completed transactions
	Offset    uint32 // last offset reported by the agent
	Anomalies int    // unexpected response identifiers or lengths
	Duration  time.Duration
}

// Stager transfers images into the staging agent behind a mailbox.
//
// Stager is safe for concurrent use, transfers are serialized.
type Stager struct {
	mapper Mapper
	cfg    Config

	mtx  sync.Mutex
	last Result
}

func NewStager(mapper Mapper, cfg Config) *Stager {
	return &Stager{mapper: mapper, cfg: cfg.withDefaults()}
}

// Stage maps the mailbox at addr and transfers image.  It returns nil once
// the agent has reported that it needs no further data.  Failures can be
// classified with errors.Is and ErrUnavailable, ErrInvalidImage, ErrHardware
// and ErrTimeout.
func (s *Stager) Stage(addr uint64, image []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	log := s.cfg.Log.WithValues("addr", fmt.Sprintf("%#x", addr))

	if err := validate(image); err != nil {
		s.cfg.Metrics.transfer(Error)
		return err
	}

	win, err := s.mapper.Map(addr, WindowSize)
	if err != nil {
		log.Error(err, "mapping mailbox failed")
		s.cfg.Metrics.unavailable()
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	log.V(2).Info("mapped mailbox", "size", WindowSize)

	start := s.cfg.Clock.Now()
	res, err := s.transfer(win, image)
	res.Duration = s.cfg.Clock.Since(start)
	if cerr := win.Close(); cerr != nil {
		log.Error(cerr, "unmapping mailbox failed")
	}

	s.last = res
	s.cfg.Metrics.transfer(res.State)

	if err != nil {
		log.Error(err, "staging failed with "+res.State.String(),
			"chunks", res.Chunks, "bytes", res.Bytes)
		return err
	}
	log.Info("staging done", "chunks", res.Chunks, "bytes", res.Bytes,
		"duration", res.Duration)
	return nil
}

// Last returns the Result of the most recent transfer which got past mapping
// the mailbox.
func (s *Stager) Last() Result {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.last
}

func (s *Stager) transfer(bus mmio.Bus, image []byte) (res Result, err error) {
	x := &session{
		regs:    newRegisters(bus),
		clk:     s.cfg.Clock,
		poll:    s.cfg.PollInterval,
		timeout: s.cfg.Timeout,
		log:     s.cfg.Log,
		metrics: s.cfg.Metrics,
	}
	defer func() {
		res.Anomalies = x.anomalies
		res.State = stateOf(err)
	}()

	// Clear whatever a previous, possibly interrupted, transfer left behind.
	x.regs.abort()

	size := uint32(len(image))
	budget := uint64(len(image)) * uint64(s.cfg.BudgetFactor)

	var offset uint32
	for offset != OffsetEnd {
		if offset >= size || offset&0x3 != 0 {
			return res, fmt.Errorf("agent requested offset %#x of %#x: %w", offset, size, ErrHardware)
		}
		n := chunkSize(size, offset, s.cfg.ChunkSize)
		if uint64(res.Bytes)+uint64(n) > budget {
			return res, fmt.Errorf("transferred %d of %d bytes budget: %w", res.Bytes, budget, ErrTimeout)
		}

		x.log.V(1).Info("request", "offset", hex(offset), "size", n)
		x.request(image[offset : offset+n])
		res.Chunks++
		if state := x.wait(); state != OK {
			return res, fmt.Errorf("waiting for chunk at %#x: %w", offset, state.Err())
		}
		res.Bytes += int(n)

		resp, state := x.readResponse()
		res.Offset = resp.Offset
		if state != OK {
			return res, fmt.Errorf("response to chunk at %#x: %w", offset, ErrHardware)
		}
		offset = resp.Offset
	}

	return res, nil
}

func chunkSize(size, offset uint32, limit int) uint32 {
	debug.Assertf(offset <= size, "offset %#x beyond image size %#x", offset, size)
	return min(uint32(limit), size-offset)
}

func validate(image []byte) error {
	switch {
	case len(image) == 0:
		return fmt.Errorf("%w: empty", ErrInvalidImage)
	case len(image)&0x3 != 0:
		return fmt.Errorf("%w: size %d not a multiple of 4", ErrInvalidImage, len(image))
	case uint64(len(image)) >= uint64(OffsetEnd):
		return fmt.Errorf("%w: size %d too large", ErrInvalidImage, len(image))
	}
	return nil
}

// Stage transfers image into the agent behind the mailbox at addr using the
// default configuration.
func Stage(mapper Mapper, addr uint64, image []byte) error {
	return NewStager(mapper, Config{}).Stage(addr, image)
}
