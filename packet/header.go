package packet

import (
	"fmt"
	"io"

	"github.com/unkn0wn-root/qaprpc/internal/wire"
)

// HeaderSize is the fixed size of the packet header.
const HeaderSize = 16

// header is the 16-byte packet header: command, length_low, offset,
// length_high.
type header struct {
	Command    uint32
	LengthLow  uint32
	Offset     uint32
	LengthHigh uint32
}

func (h header) entriesLength() uint64 {
	return uint64(h.LengthHigh)<<32 | uint64(h.LengthLow)
}

func newHeader(command uint32, entriesLen uint64) header {
	return header{
		Command:    command,
		LengthLow:  uint32(entriesLen & 0xFFFFFFFF),
		Offset:     0,
		LengthHigh: uint32(entriesLen >> 32),
	}
}

func (h header) encode() []byte {
	b := make([]byte, HeaderSize)
	wire.PutUint32(b, 0, h.Command)
	wire.PutUint32(b, 4, h.LengthLow)
	wire.PutUint32(b, 8, h.Offset)
	wire.PutUint32(b, 12, h.LengthHigh)
	return b
}

func readHeader(r io.Reader) (header, error) {
	b := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return header{}, fmt.Errorf("packet: read header: %w", err)
	}
	return header{
		Command:    wire.Uint32(b, 0),
		LengthLow:  wire.Uint32(b, 4),
		Offset:     wire.Uint32(b, 8),
		LengthHigh: wire.Uint32(b, 12),
	}, nil
}
