package staging

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	vendorIntel = 0x8086
	objStaging  = 0xb

	// Identifier tags every request and response header.
	Identifier uint32 = vendorIntel | objStaging<<16

	// CmdLoad asks the agent to stage the attached payload.
	CmdLoad uint32 = 0x3

	HeaderWords = 4
	HeaderSize  = HeaderWords * 4

	// OffsetEnd is reported as next offset once the agent needs no more data.
	OffsetEnd uint32 = 0xffff_ffff
)

var ErrShortHeader = errors.New("short header")

// Header precedes the payload of every request.
type Header struct {
	Identifier uint32
	Length     uint32 // payload words plus HeaderWords
	Command    uint32
	Reserved   uint32
}

// NewRequest returns the header for a load request carrying n payload bytes.
func NewRequest(n int) Header {
	return Header{
		Identifier: Identifier,
		Length:     uint32(n/4 + HeaderWords),
		Command:    CmdLoad,
	}
}

// PayloadSize returns the payload length in bytes announced by h.
func (h Header) PayloadSize() int {
	if h.Length < HeaderWords {
		return 0
	}
	return int(h.Length-HeaderWords) * 4
}

func (h Header) Words() [HeaderWords]uint32 {
	return [HeaderWords]uint32{h.Identifier, h.Length, h.Command, h.Reserved}
}

func (h Header) AppendBinary(b []byte) ([]byte, error) {
	return appendWords(b, h.Words()), nil
}

func (h *Header) UnmarshalBinary(b []byte) error {
	w, err := decodeWords(b)
	if err != nil {
		return err
	}
	*h = Header{w[0], w[1], w[2], w[3]}
	return nil
}

type RespFlags uint32

const (
	RespSuccess RespFlags = 1 << iota
	RespInProgress
	RespError
)

func (f RespFlags) String() string {
	switch {
	case f&RespError != 0:
		return "error"
	case f&RespInProgress != 0:
		return "in progress"
	case f&RespSuccess != 0:
		return "success"
	}
	return fmt.Sprintf("RespFlags(%#x)", uint32(f))
}

// Response is the header the agent returns after each request.  Offset
// tells where the next chunk has to start.
type Response struct {
	Identifier uint32
	Length     uint32
	Offset     uint32
	Flags      RespFlags
}

func (r Response) Words() [HeaderWords]uint32 {
	return [HeaderWords]uint32{r.Identifier, r.Length, r.Offset, uint32(r.Flags)}
}

func (r Response) AppendBinary(b []byte) ([]byte, error) {
	return appendWords(b, r.Words()), nil
}

func (r *Response) UnmarshalBinary(b []byte) error {
	w, err := decodeWords(b)
	if err != nil {
		return err
	}
	*r = Response{w[0], w[1], w[2], RespFlags(w[3])}
	return nil
}

func appendWords(b []byte, w [HeaderWords]uint32) []byte {
	for _, v := range w {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return b
}

func decodeWords(b []byte) (w [HeaderWords]uint32, err error) {
	if len(b) < HeaderSize {
		return w, ErrShortHeader
	}
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return w, nil
}
