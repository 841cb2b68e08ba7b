package xval

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/qaprpc/internal/wire"
)

// ErrBufferTooSmall is returned by EncodeInto when the destination buffer
// cannot hold the serialized node.
var ErrBufferTooSmall = errors.New("xval: destination buffer too small")

// FrameSize returns the total number of bytes v occupies on the wire,
// including its own header, its attribute sub-tree (if any), and its
// payload.
func FrameSize(v *Value) uint64 {
	inner := payloadLen(v)
	attrFrame := attrFrameLen(v)
	total := inner + attrFrame
	return uint64(headerLen(total)) + total
}

func attrFrameLen(v *Value) uint64 {
	if v.attrs == nil {
		return 0
	}
	return FrameSize(v.attrs)
}

func headerLen(total uint64) int {
	if total > LargeThreshold {
		return 8
	}
	return 4
}

func pad4(n uint64) uint64 {
	if rem := n % 4; rem != 0 {
		return n + (4 - rem)
	}
	return n
}

// payloadLen returns the size of v's own payload, not counting its header
// or its attribute sub-tree.
func payloadLen(v *Value) uint64 {
	switch v.Kind {
	case Null, S4:
		return 0
	case Int, Unknown:
		return 4
	case Double:
		return 8
	case Bool:
		return 1
	case Str:
		return uint64(len(v.StrScalar)) + 1
	case SymName:
		return pad4(uint64(len(v.Name)) + 1)
	case ArrayInt:
		return uint64(len(v.Ints)) * 4
	case ArrayDouble:
		return uint64(len(v.Doubles)) * 8
	case ArrayCplx:
		return uint64(len(v.Complexes)) * 16
	case ArrayStr:
		var n uint64
		for _, s := range v.Strings {
			n += uint64(len(s)) + 1
		}
		return pad4(n)
	case ArrayBool:
		return pad4(4 + uint64(len(v.Bools)))
	case Raw:
		return 4 + uint64(len(v.RawBytes))
	case Vector, ListNoTag, LangNoTag, VectorExp:
		var n uint64
		for _, c := range v.Children {
			n += FrameSize(c)
		}
		return n
	case ListTag, LangTag:
		var n uint64
		for _, p := range v.Pairs {
			n += FrameSize(p.Value)
			n += FrameSize(tagNode(p.Tag))
		}
		return n
	case Clos:
		return FrameSize(v.Formals) + FrameSize(v.Body)
	default:
		return 0
	}
}

func tagNode(name string) *Value { return &Value{Kind: SymName, Name: name} }

// Encode serializes v into a freshly allocated, exactly sized buffer.
func Encode(v *Value) []byte {
	buf := make([]byte, FrameSize(v))
	_, _ = EncodeInto(buf, v)
	return buf
}

// EncodeInto serializes v starting at buf[0], returning the number of
// bytes written. Returns ErrBufferTooSmall if buf cannot hold v.
func EncodeInto(buf []byte, v *Value) (int, error) {
	need := FrameSize(v)
	if uint64(len(buf)) < need {
		return 0, ErrBufferTooSmall
	}
	return encodeAt(buf, 0, v), nil
}

func encodeAt(buf []byte, off int, v *Value) int {
	inner := payloadLen(v)
	attrFrame := attrFrameLen(v)
	total := inner + attrFrame
	large := total > LargeThreshold
	hasAttr := v.attrs != nil

	typeByte := uint8(v.Kind)
	if large {
		typeByte |= FlagLarge
	}
	if hasAttr {
		typeByte |= FlagHasAttr
	}
	buf[off] = typeByte
	off++
	if large {
		wire.PutUint56(buf, off, total)
		off += 7
	} else {
		wire.PutUint24(buf, off, uint32(total))
		off += 3
	}
	if hasAttr {
		off = encodeAt(buf, off, v.attrs)
	}
	return encodePayload(buf, off, v)
}

func encodePayload(buf []byte, off int, v *Value) int {
	switch v.Kind {
	case Null, S4:
		return off
	case Int:
		wire.PutUint32(buf, off, uint32(v.IntScalar))
		return off + 4
	case Unknown:
		wire.PutUint32(buf, off, uint32(v.UnknownCode))
		return off + 4
	case Double:
		wire.PutFloat64(buf, off, v.DoubleScalar)
		return off + 8
	case Bool:
		if v.BoolScalar {
			buf[off] = 1
		} else {
			buf[off] = 0
		}
		return off + 1
	case Str:
		off += copy(buf[off:], v.StrScalar)
		buf[off] = 0
		return off + 1
	case SymName:
		start := off
		off += copy(buf[off:], v.Name)
		buf[off] = 0
		off++
		end := start + int(pad4(uint64(len(v.Name))+1))
		for off < end {
			buf[off] = 0
			off++
		}
		return off
	case ArrayInt:
		for _, x := range v.Ints {
			wire.PutUint32(buf, off, uint32(x))
			off += 4
		}
		return off
	case ArrayDouble:
		for _, x := range v.Doubles {
			wire.PutFloat64(buf, off, x)
			off += 8
		}
		return off
	case ArrayCplx:
		for _, c := range v.Complexes {
			wire.PutFloat64(buf, off, c.Re)
			wire.PutFloat64(buf, off+8, c.Im)
			off += 16
		}
		return off
	case ArrayStr:
		start := off
		for _, s := range v.Strings {
			off += copy(buf[off:], s)
			buf[off] = 0
			off++
		}
		end := start + int(pad4(uint64(off-start)))
		for off < end {
			buf[off] = 0x01
			off++
		}
		return off
	case ArrayBool:
		start := off
		wire.PutUint32(buf, off, uint32(len(v.Bools)))
		off += 4
		for _, b := range v.Bools {
			if b {
				buf[off] = 1
			} else {
				buf[off] = 0
			}
			off++
		}
		end := start + int(pad4(uint64(off-start)))
		for off < end {
			buf[off] = 0
			off++
		}
		return off
	case Raw:
		wire.PutUint32(buf, off, uint32(len(v.RawBytes)))
		off += 4
		off += copy(buf[off:], v.RawBytes)
		return off
	case Vector, ListNoTag, LangNoTag, VectorExp:
		for _, c := range v.Children {
			off = encodeAt(buf, off, c)
		}
		return off
	case ListTag, LangTag:
		for _, p := range v.Pairs {
			off = encodeAt(buf, off, p.Value)
			off = encodeAt(buf, off, tagNode(p.Tag))
		}
		return off
	case Clos:
		off = encodeAt(buf, off, v.Formals)
		off = encodeAt(buf, off, v.Body)
		return off
	default:
		return off
	}
}

// Decode parses one X-value starting at b[off], returning the value and the
// offset immediately following it. Malformed payloads within an otherwise
// well-framed node degrade to a NULL value rather than raising; Decode only
// returns an error when the declared header/length itself cannot be read
// from b, which indicates the caller handed it a buffer shorter than the
// framing it is parsing.
func Decode(b []byte, off int) (*Value, int, error) {
	if off+1 > len(b) {
		return nil, off, fmt.Errorf("xval: truncated header at offset %d", off)
	}
	typeByte := b[off]
	base := Kind(typeByte & BaseMask)
	large := typeByte&FlagLarge != 0
	hasAttr := typeByte&FlagHasAttr != 0
	off++

	var total uint64
	if large {
		if off+7 > len(b) {
			return nil, off, fmt.Errorf("xval: truncated large length at offset %d", off)
		}
		total = wire.Uint56(b, off)
		off += 7
	} else {
		if off+3 > len(b) {
			return nil, off, fmt.Errorf("xval: truncated length at offset %d", off)
		}
		total = uint64(wire.Uint24(b, off))
		off += 3
	}

	end := off + int(total)
	if end > len(b) {
		return nil, off, fmt.Errorf("xval: declared length %d exceeds buffer at offset %d", total, off)
	}

	var attrs *Value
	payloadStart := off
	if hasAttr {
		a, next, err := Decode(b, off)
		if err != nil {
			return nil, off, err
		}
		if a.BaseTag() == uint8(ListTag) {
			attrs = a
		}
		payloadStart = next
	}

	v, err := decodePayload(base, b, payloadStart, end)
	if err != nil {
		return nil, off, err
	}
	v.attrs = attrs
	return v, end, nil
}

func decodePayload(base Kind, b []byte, start, end int) (*Value, error) {
	switch base {
	case Null, S4:
		return &Value{Kind: base}, nil
	case Int:
		if end-start < 4 {
			return &Value{Kind: Null}, nil
		}
		return &Value{Kind: Int, IntScalar: int32(wire.Uint32(b, start))}, nil
	case Unknown:
		if end-start < 4 {
			return &Value{Kind: Null}, nil
		}
		return &Value{Kind: Unknown, UnknownCode: int32(wire.Uint32(b, start))}, nil
	case Double:
		if end-start < 8 {
			return &Value{Kind: Null}, nil
		}
		return &Value{Kind: Double, DoubleScalar: wire.Float64(b, start)}, nil
	case Bool:
		if end-start < 1 {
			return &Value{Kind: Null}, nil
		}
		return &Value{Kind: Bool, BoolScalar: b[start] != 0}, nil
	case Str:
		idx := indexNul(b, start, end)
		if idx < 0 {
			return &Value{Kind: Null}, nil
		}
		return &Value{Kind: Str, StrScalar: string(b[start:idx])}, nil
	case SymName:
		idx := indexNul(b, start, end)
		if idx < 0 {
			return &Value{Kind: Null}, nil
		}
		return &Value{Kind: SymName, Name: string(b[start:idx])}, nil
	case ArrayInt:
		n := (end - start) / 4
		out := make([]int32, n)
		for i := 0; i < n; i++ {
			out[i] = int32(wire.Uint32(b, start+i*4))
		}
		return &Value{Kind: ArrayInt, Ints: out}, nil
	case ArrayDouble:
		n := (end - start) / 8
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			out[i] = wire.Float64(b, start+i*8)
		}
		return &Value{Kind: ArrayDouble, Doubles: out}, nil
	case ArrayCplx:
		n := (end - start) / 16
		out := make([]Complex, n)
		for i := 0; i < n; i++ {
			o := start + i*16
			out[i] = Complex{Re: wire.Float64(b, o), Im: wire.Float64(b, o+8)}
		}
		return &Value{Kind: ArrayCplx, Complexes: out}, nil
	case ArrayStr:
		return decodeArrayStr(b, start, end)
	case ArrayBool:
		if end-start < 4 {
			return &Value{Kind: Null}, nil
		}
		n := int(wire.Uint32(b, start))
		if start+4+n > end {
			return &Value{Kind: Null}, nil
		}
		out := make([]bool, n)
		for i := 0; i < n; i++ {
			out[i] = b[start+4+i] != 0
		}
		return &Value{Kind: ArrayBool, Bools: out}, nil
	case Raw:
		if end-start < 4 {
			return &Value{Kind: Null}, nil
		}
		n := int(wire.Uint32(b, start))
		if start+4+n > end {
			return &Value{Kind: Null}, nil
		}
		out := make([]byte, n)
		copy(out, b[start+4:start+4+n])
		return &Value{Kind: Raw, RawBytes: out}, nil
	case Vector, ListNoTag, LangNoTag, VectorExp:
		var children []*Value
		cur := start
		for cur < end {
			c, next, err := Decode(b, cur)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
			cur = next
		}
		return &Value{Kind: base, Children: children}, nil
	case ListTag, LangTag:
		var pairs []Pair
		cur := start
		for cur < end {
			val, next, err := Decode(b, cur)
			if err != nil {
				return nil, err
			}
			cur = next
			tagVal, next2, err := Decode(b, cur)
			if err != nil {
				return nil, err
			}
			cur = next2
			tag := ""
			if tagVal.Kind == SymName {
				tag = tagVal.Name
			}
			pairs = append(pairs, Pair{Value: val, Tag: tag})
		}
		return &Value{Kind: base, Pairs: pairs}, nil
	case Clos:
		formals, next, err := Decode(b, start)
		if err != nil {
			return nil, err
		}
		body, _, err := Decode(b, next)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: Clos, Formals: formals, Body: body}, nil
	default:
		return &Value{Kind: Null}, nil
	}
}

func indexNul(b []byte, start, end int) int {
	for i := start; i < end; i++ {
		if b[i] == 0 {
			return i
		}
	}
	return -1
}

// decodeArrayStr walks the padded, NUL-terminated string sequence. 0x01
// bytes are skipped as padding; a single trailing 0x00 (beyond the last
// string's own terminator) is consumed without producing an extra empty
// element. A string run that reaches end without a NUL degrades the whole
// node to NULL.
func decodeArrayStr(b []byte, start, end int) (*Value, error) {
	var strs []string
	i := start
	for i < end {
		if b[i] == 0x01 {
			i++
			continue
		}
		if b[i] == 0x00 && i == end-1 {
			i++
			continue
		}
		j := i
		for j < end && b[j] != 0x00 {
			j++
		}
		if j >= end {
			return &Value{Kind: Null}, nil
		}
		strs = append(strs, string(b[i:j]))
		i = j + 1
	}
	return &Value{Kind: ArrayStr, Strings: strs}, nil
}
