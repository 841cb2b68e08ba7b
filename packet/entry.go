// Package packet implements QAP packet framing: the 16-byte packet header
// and the sequence of tagged, length-prefixed entries that follow it.
package packet

import (
	"fmt"

	"github.com/unkn0wn-root/qaprpc/internal/wire"
	"github.com/unkn0wn-root/qaprpc/xval"
)

// EntryKind is the base type tag of a packet entry, before the LARGE flag
// is folded in for the wire representation.
type EntryKind uint8

const (
	KindInt        EntryKind = 1
	KindChar       EntryKind = 2
	KindDouble     EntryKind = 3
	KindString     EntryKind = 4
	KindBytestream EntryKind = 5
	KindSexp       EntryKind = 10
	KindArray      EntryKind = 11
)

const (
	// FlagLarge selects the 8-byte entry header form.
	FlagLarge uint8 = 0x40
	kindMask  uint8 = 0x3F

	// LargeThreshold is the payload size above which an entry's header
	// must use the 8-byte (56-bit length) form.
	LargeThreshold = 0x7FFFFF
)

// Entry is one tagged byte region inside a packet's entry stream. Payload
// holds the raw on-wire payload for every kind except ARRAY, whose elements
// are held in Children instead.
type Entry struct {
	Kind     EntryKind
	Payload  []byte
	Children []Entry
}

// NewInt builds an INT entry.
func NewInt(v int32) Entry {
	b := make([]byte, 4)
	wire.PutUint32(b, 0, uint32(v))
	return Entry{Kind: KindInt, Payload: b}
}

// NewChar builds a CHAR entry.
func NewChar(c byte) Entry {
	return Entry{Kind: KindChar, Payload: []byte{c}}
}

// NewDouble builds a DOUBLE entry.
func NewDouble(v float64) Entry {
	b := make([]byte, 8)
	wire.PutFloat64(b, 0, v)
	return Entry{Kind: KindDouble, Payload: b}
}

// NewString builds a STRING entry: s, NUL-terminated and padded with 0x01
// to a 4-byte multiple.
func NewString(s string) Entry {
	inner := len(s) + 1
	padded := inner
	if rem := padded % 4; rem != 0 {
		padded += 4 - rem
	}
	b := make([]byte, padded)
	copy(b, s)
	b[len(s)] = 0
	for i := inner; i < padded; i++ {
		b[i] = 0x01
	}
	return Entry{Kind: KindString, Payload: b}
}

// NewBytestream builds a BYTESTREAM entry wrapping b unchanged.
func NewBytestream(b []byte) Entry {
	out := make([]byte, len(b))
	copy(out, b)
	return Entry{Kind: KindBytestream, Payload: out}
}

// NewSexp builds a SEXP entry whose payload is v fully serialized,
// including v's own header and attribute sub-tree.
func NewSexp(v *xval.Value) Entry {
	return Entry{Kind: KindSexp, Payload: xval.Encode(v)}
}

// NewArray builds an ARRAY entry from children, in order.
func NewArray(children ...Entry) Entry {
	return Entry{Kind: KindArray, Children: children}
}

// String returns e's payload as a string, stripped of its NUL terminator
// and any 0x01 padding. ok is false if e is not a STRING entry or its
// payload has no NUL terminator.
func (e Entry) String() (s string, ok bool) {
	if e.Kind != KindString {
		return "", false
	}
	idx := -1
	for i, b := range e.Payload {
		if b == 0 {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false
	}
	return string(e.Payload[:idx]), true
}

// Value decodes e's payload as an X-value. ok is false if e is not a SEXP
// entry.
func (e Entry) Value() (v *xval.Value, ok bool) {
	if e.Kind != KindSexp {
		return nil, false
	}
	val, _, err := xval.Decode(e.Payload, 0)
	if err != nil {
		return nil, false
	}
	return val, true
}

func payloadLen(e Entry) uint64 {
	if e.Kind != KindArray {
		return uint64(len(e.Payload))
	}
	var n uint64 = 4
	for _, c := range e.Children {
		n += frameSize(c)
	}
	return n
}

func headerLen(length uint64) int {
	if length > LargeThreshold {
		return 8
	}
	return 4
}

func frameSize(e Entry) uint64 {
	p := payloadLen(e)
	return uint64(headerLen(p)) + p
}

func encodeEntryAt(buf []byte, off int, e Entry) int {
	p := payloadLen(e)
	large := p > LargeThreshold
	kindByte := uint8(e.Kind)
	if large {
		kindByte |= FlagLarge
	}
	buf[off] = kindByte
	off++
	if large {
		wire.PutUint56(buf, off, p)
		off += 7
	} else {
		wire.PutUint24(buf, off, uint32(p))
		off += 3
	}
	if e.Kind == KindArray {
		wire.PutUint32(buf, off, uint32(len(e.Children)))
		off += 4
		for _, c := range e.Children {
			off = encodeEntryAt(buf, off, c)
		}
		return off
	}
	off += copy(buf[off:], e.Payload)
	return off
}

// Encode serializes e into a freshly allocated, exactly sized buffer.
func Encode(e Entry) []byte {
	buf := make([]byte, frameSize(e))
	encodeEntryAt(buf, 0, e)
	return buf
}

// Decode parses one entry starting at b[off], returning the entry and the
// offset immediately following it.
func Decode(b []byte, off int) (Entry, int, error) {
	if off+1 > len(b) {
		return Entry{}, off, fmt.Errorf("packet: truncated entry header at offset %d", off)
	}
	kindByte := b[off]
	kind := EntryKind(kindByte & kindMask)
	large := kindByte&FlagLarge != 0
	off++

	var length uint64
	if large {
		if off+7 > len(b) {
			return Entry{}, off, fmt.Errorf("packet: truncated large entry length at offset %d", off)
		}
		length = wire.Uint56(b, off)
		off += 7
	} else {
		if off+3 > len(b) {
			return Entry{}, off, fmt.Errorf("packet: truncated entry length at offset %d", off)
		}
		length = uint64(wire.Uint24(b, off))
		off += 3
	}

	end := off + int(length)
	if end > len(b) {
		return Entry{}, off, fmt.Errorf("packet: declared entry length %d exceeds buffer at offset %d", length, off)
	}

	if kind != KindArray {
		payload := make([]byte, length)
		copy(payload, b[off:end])
		return Entry{Kind: kind, Payload: payload}, end, nil
	}

	if end-off < 4 {
		return Entry{Kind: KindArray}, end, nil
	}
	n := int(wire.Uint32(b, off))
	cur := off + 4
	children := make([]Entry, 0, n)
	for cur < end {
		c, next, err := Decode(b, cur)
		if err != nil {
			return Entry{}, off, err
		}
		children = append(children, c)
		cur = next
	}
	return Entry{Kind: KindArray, Children: children}, end, nil
}
