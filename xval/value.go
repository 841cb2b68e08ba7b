// Package xval implements the recursive typed value tree ("X-value") carried
// inside a QAP SEXP packet entry: null, integer/double/string/bool vectors,
// heterogeneous and tagged pair lists, symbol names, and raw byte blobs.
//
// Value is a closed sum type discriminated by Kind; only the fields that
// Kind documents are meaningful on a given node. Construct values with the
// New* builders rather than filling a Value literal directly, since several
// kinds require NA translation or padding invariants at construction time.
package xval

// Kind is the base type tag of an X-value, before the LARGE/HAS_ATTR flags
// are folded in for the wire representation.
type Kind uint8

const (
	Null        Kind = 0
	Int         Kind = 1 // legacy scalar, 4 bytes
	Double      Kind = 2 // legacy scalar, 8 bytes
	Str         Kind = 3 // legacy scalar, NUL-terminated
	Clos        Kind = 18
	SymName     Kind = 19
	Vector      Kind = 16
	ListTag     Kind = 21
	ListNoTag   Kind = 20
	LangNoTag   Kind = 22
	LangTag     Kind = 23
	VectorExp   Kind = 26
	Bool        Kind = 6 // legacy scalar, 1 byte
	S4          Kind = 7
	ArrayInt    Kind = 32
	ArrayDouble Kind = 33
	ArrayStr    Kind = 34
	ArrayBool   Kind = 36
	Raw         Kind = 37
	ArrayCplx   Kind = 38
	Unknown     Kind = 48
)

// Wire flags, folded into the base Kind to form the on-wire type byte.
const (
	FlagLarge   uint8 = 0x40
	FlagHasAttr uint8 = 0x80
	BaseMask    uint8 = 0x3F

	// LargeThreshold is the payload size above which the LARGE flag and
	// the 8-byte header form are mandatory.
	LargeThreshold = 0x7FFFFF
)

// Complex is a single (re, im) pair, the element type of an ArrayCplx node.
type Complex struct {
	Re, Im float64
}

// Pair is one (value, tag) element of a ListTag or LangTag node. Tag is the
// decoded symbol name (without its NUL terminator or padding).
type Pair struct {
	Value *Value
	Tag   string
}

// Value is the recursive X-value node. Field population is determined by
// Kind; see the Kind constants' doc comments in this file and §3.1 of the
// protocol for the authoritative mapping.
type Value struct {
	Kind Kind

	attrs *Value // optional; always Kind == ListTag when non-nil

	// Legacy scalars: Int, Double, Str, Bool.
	IntScalar    int32
	DoubleScalar float64
	StrScalar    string
	BoolScalar   bool

	// SymName payload (also used as Pair.Tag source before decode).
	Name string

	// Vector payloads.
	Ints      []int32
	Doubles   []float64
	Strings   []string
	Bools     []bool
	Complexes []Complex
	RawBytes  []byte

	// UNKNOWN payload.
	UnknownCode int32

	// Composite payloads: Vector, ListNoTag, LangNoTag, VectorExp.
	Children []*Value

	// Tagged composite payloads: ListTag, LangTag.
	Pairs []Pair

	// Clos payload.
	Formals *Value
	Body    *Value
}

// NewNull returns the NULL value.
func NewNull() *Value { return &Value{Kind: Null} }

// NewIntVector builds an ARRAY_INT node, translating callerNA to the wire
// sentinel INT32_MIN for each matching element.
func NewIntVector(vals []int32, callerNA int32) *Value {
	out := make([]int32, len(vals))
	for i, v := range vals {
		out[i] = WriteIntNA(v, callerNA)
	}
	return &Value{Kind: ArrayInt, Ints: out}
}

// NewDoubleVector builds an ARRAY_DOUBLE node, translating callerNA to the
// wire NA bit pattern for each matching element.
func NewDoubleVector(vals []float64, callerNA float64) *Value {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = WriteDoubleNA(v, callerNA)
	}
	return &Value{Kind: ArrayDouble, Doubles: out}
}

// NewStringVector builds an ARRAY_STR node, translating callerNA to the
// single-byte wire sentinel for each matching element.
func NewStringVector(vals []string, callerNA string) *Value {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = WriteStringNA(v, callerNA)
	}
	return &Value{Kind: ArrayStr, Strings: out}
}

// NewBoolVector builds an ARRAY_BOOL node. There is no NA translation for
// bool vectors in this spec; callers needing tri-state logicals should use
// a different kind.
func NewBoolVector(vals []bool) *Value {
	out := make([]bool, len(vals))
	copy(out, vals)
	return &Value{Kind: ArrayBool, Bools: out}
}

// NewRaw builds a RAW node wrapping b unchanged.
func NewRaw(b []byte) *Value {
	out := make([]byte, len(b))
	copy(out, b)
	return &Value{Kind: Raw, RawBytes: out}
}

// NewSymName builds a SYMNAME node for name.
func NewSymName(name string) *Value {
	return &Value{Kind: SymName, Name: name}
}

// NewVector builds an untagged VECTOR node from children, in order.
func NewVector(children ...*Value) *Value {
	return &Value{Kind: Vector, Children: children}
}

// NewListTag builds a LIST_TAG node from pairs, in order. Each pair's tag
// is serialized as a SYMNAME.
func NewListTag(pairs ...Pair) *Value {
	return &Value{Kind: ListTag, Pairs: pairs}
}

// WithAttributes returns v with its attribute pair-list set to attrs. attrs
// must have Kind == ListTag, or be nil to clear attributes. v is mutated
// and returned for chaining.
func WithAttributes(v *Value, attrs *Value) *Value {
	v.attrs = attrs
	return v
}

// Attributes returns v's attribute pair-list, or nil if none is set.
func (v *Value) Attributes() *Value { return v.attrs }

// BaseTag returns the base type tag (no flags).
func (v *Value) BaseTag() uint8 { return uint8(v.Kind) & BaseMask }

// TypeTag returns the on-wire type byte: the base tag with FlagLarge and
// FlagHasAttr set exactly as Encode sets them for v.
func (v *Value) TypeTag() uint8 {
	t := uint8(v.Kind)
	if payloadLen(v)+attrFrameLen(v) > LargeThreshold {
		t |= FlagLarge
	}
	if v.attrs != nil {
		t |= FlagHasAttr
	}
	return t
}

// PayloadLen returns the size of v's serialized payload, not counting its
// own header or its attribute sub-tree.
func (v *Value) PayloadLen() uint64 { return payloadLen(v) }

// Lookup searches a ListTag/LangTag node's pairs for tag, returning the
// first match. ok is false if v is not a tagged list or no pair matches.
func (v *Value) Lookup(tag string) (val *Value, ok bool) {
	if v == nil || (v.Kind != ListTag && v.Kind != LangTag) {
		return nil, false
	}
	for _, p := range v.Pairs {
		if p.Tag == tag {
			return p.Value, true
		}
	}
	return nil, false
}

// IntValues returns the vector's elements with the wire NA sentinel
// translated back to callerNA. Panics-free misuse guard: returns nil if v
// is not an ARRAY_INT.
func (v *Value) IntValues(callerNA int32) []int32 {
	if v == nil || v.Kind != ArrayInt {
		return nil
	}
	out := make([]int32, len(v.Ints))
	for i, x := range v.Ints {
		out[i] = ReadIntNA(x, callerNA)
	}
	return out
}

// DoubleValues returns the vector's elements with the wire NA bit pattern
// translated back to callerNA.
func (v *Value) DoubleValues(callerNA float64) []float64 {
	if v == nil || v.Kind != ArrayDouble {
		return nil
	}
	out := make([]float64, len(v.Doubles))
	for i, x := range v.Doubles {
		out[i] = ReadDoubleNA(x, callerNA)
	}
	return out
}

// StringValues returns the vector's elements with the wire NA sentinel
// translated back to callerNA.
func (v *Value) StringValues(callerNA string) []string {
	if v == nil || v.Kind != ArrayStr {
		return nil
	}
	out := make([]string, len(v.Strings))
	for i, s := range v.Strings {
		out[i] = ReadStringNA(s, callerNA)
	}
	return out
}
