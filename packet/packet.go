package packet

import (
	"fmt"
	"io"

	"github.com/unkn0wn-root/qaprpc/internal/wire"
)

// Packet is a QAP packet: a command word and an ordered sequence of
// entries.
type Packet struct {
	Command uint32
	Entries []Entry
}

// Build constructs a request packet for command carrying entries, in
// order.
func Build(command uint32, entries ...Entry) *Packet {
	return &Packet{Command: command, Entries: entries}
}

func (p *Packet) entriesLen() uint64 {
	var n uint64
	for _, e := range p.Entries {
		n += frameSize(e)
	}
	return n
}

// WriteTo serializes p to w: the 16-byte header followed by each entry's
// raw bytes.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	h := newHeader(p.Command, p.entriesLen())
	var written int64
	n, err := w.Write(h.encode())
	written += int64(n)
	if err != nil {
		return written, err
	}
	for _, e := range p.Entries {
		n, err = w.Write(Encode(e))
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// ReadFrom reads one packet from r: the 16-byte header, then entries until
// the declared entries length has been fully consumed.
func ReadFrom(r io.Reader) (*Packet, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if h.Offset != 0 {
		if _, err := io.CopyN(io.Discard, r, int64(h.Offset)); err != nil {
			return nil, fmt.Errorf("packet: skip offset: %w", err)
		}
	}

	total := h.entriesLength()
	var entries []Entry
	var consumed uint64
	for consumed < total {
		e, n, err := readEntry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		consumed += n
	}
	if consumed != total {
		return nil, fmt.Errorf("packet: declared entries length %d, read %d", total, consumed)
	}
	return &Packet{Command: h.Command, Entries: entries}, nil
}

// readEntry reads one entry directly from r, returning the entry and the
// number of bytes (header + payload) consumed from r.
func readEntry(r io.Reader) (Entry, uint64, error) {
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return Entry{}, 0, fmt.Errorf("packet: read entry header: %w", err)
	}
	kindByte := hdr[0]
	kind := EntryKind(kindByte & kindMask)
	large := kindByte&FlagLarge != 0

	var length uint64
	var headerBytes uint64 = 4
	if large {
		more := make([]byte, 4)
		if _, err := io.ReadFull(r, more); err != nil {
			return Entry{}, 0, fmt.Errorf("packet: read large entry header: %w", err)
		}
		full := append(append([]byte{}, hdr[1:4]...), more...)
		length = wire.Uint56(full, 0)
		headerBytes = 8
	} else {
		length = uint64(wire.Uint24(hdr, 1))
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Entry{}, 0, fmt.Errorf("packet: read entry payload: %w", err)
		}
	}

	if kind != KindArray {
		return Entry{Kind: kind, Payload: payload}, headerBytes + length, nil
	}

	if length < 4 {
		return Entry{Kind: KindArray}, headerBytes + length, nil
	}
	n := int(wire.Uint32(payload, 0))
	children := make([]Entry, 0, n)
	off := 4
	for off < len(payload) {
		c, next, err := Decode(payload, off)
		if err != nil {
			return Entry{}, 0, err
		}
		children = append(children, c)
		off = next
	}
	return Entry{Kind: KindArray, Children: children}, headerBytes + length, nil
}
