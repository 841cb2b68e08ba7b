package packet

import (
	"bytes"
	"testing"

	"github.com/unkn0wn-root/qaprpc/xval"
)

func TestEntryRoundTripString(t *testing.T) {
	e := NewString("eval me")
	buf := Encode(e)
	if len(buf)%4 != 0 {
		t.Fatalf("frame length %d not 4-byte aligned", len(buf))
	}
	got, next, err := Decode(buf, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if next != len(buf) {
		t.Fatalf("got next %d want %d", next, len(buf))
	}
	s, ok := got.String()
	if !ok || s != "eval me" {
		t.Fatalf("got %q ok=%v", s, ok)
	}
}

func TestEntryRoundTripSexp(t *testing.T) {
	v := xval.NewIntVector([]int32{1, 2, 3}, 0)
	e := NewSexp(v)
	buf := Encode(e)
	got, _, err := Decode(buf, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	val, ok := got.Value()
	if !ok {
		t.Fatalf("expected SEXP entry to decode")
	}
	if got := val.IntValues(0); len(got) != 3 || got[0] != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestEntryRoundTripArray(t *testing.T) {
	e := NewArray(NewInt(7), NewString("a"), NewDouble(1.5))
	buf := Encode(e)
	got, next, err := Decode(buf, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if next != len(buf) {
		t.Fatalf("got next %d want %d", next, len(buf))
	}
	if len(got.Children) != 3 {
		t.Fatalf("got %d children", len(got.Children))
	}
	if s, ok := got.Children[1].String(); !ok || s != "a" {
		t.Fatalf("got %q ok=%v", s, ok)
	}
}

func TestPacketWriteReadRoundTrip(t *testing.T) {
	p := Build(CmdEval, NewString("1+1"))
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if got.Command != CmdEval {
		t.Fatalf("got command %x want %x", got.Command, CmdEval)
	}
	if len(got.Entries) != 1 {
		t.Fatalf("got %d entries", len(got.Entries))
	}
	s, ok := got.Entries[0].String()
	if !ok || s != "1+1" {
		t.Fatalf("got %q ok=%v", s, ok)
	}
}

func TestFramingLengthMatchesEntrySum(t *testing.T) {
	p := Build(CmdSetSexp, NewString("x"), NewSexp(xval.NewIntVector([]int32{1}, 0)))
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	wireBytes := buf.Bytes()
	h, err := readHeader(bytes.NewReader(wireBytes[:HeaderSize]))
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	declared := h.entriesLength()
	actual := uint64(len(wireBytes) - HeaderSize)
	if declared != actual {
		t.Fatalf("declared entries length %d, actual %d", declared, actual)
	}
}

func TestStatusAndSuccessBits(t *testing.T) {
	command := uint32(CmdEval) | successBit | (uint32(AuthFailed) << statusBits)
	if !Success(command) {
		t.Fatalf("expected success bit set")
	}
	if Failed(command) {
		t.Fatalf("expected error bit clear")
	}
	if StatusCode(command) != AuthFailed {
		t.Fatalf("got status %v want %v", StatusCode(command), AuthFailed)
	}
}

func TestLargeEntryHeaderDiscipline(t *testing.T) {
	small := NewBytestream(make([]byte, 10))
	if len(Encode(small)) != 4+10 {
		t.Fatalf("expected 4-byte header for small entry")
	}

	big := NewBytestream(make([]byte, LargeThreshold+1))
	buf := Encode(big)
	if buf[0]&FlagLarge == 0 {
		t.Fatalf("expected LARGE flag for oversized entry")
	}
	if len(buf) != 8+LargeThreshold+1 {
		t.Fatalf("expected 8-byte header, got frame length %d", len(buf))
	}
}
