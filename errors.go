package qaprpc

import (
	"fmt"

	"github.com/unkn0wn-root/qaprpc/packet"
)

// NetworkError is raised for any I/O, resolution, socket, or handshake
// failure. The underlying error, when there is one, is kept in Cause.
// Errno and ErrnoStr are not filled in by this package and stay at their
// zero values.
type NetworkError struct {
	Msg      string
	Errno    int
	ErrnoStr string
	Cause    error
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("qaprpc: network error: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("qaprpc: network error: %s", e.Msg)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// DecodeError is raised when AssignRaw or EvalRaw's codec fails to encode
// or decode a RAW payload. It is not raised for serialization overflow:
// xval.EncodeInto reports that as xval.ErrBufferTooSmall. Parsers degrade
// to a NULL X-value at the offending node rather than raising.
type DecodeError struct {
	Msg   string
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("qaprpc: decode error: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("qaprpc: decode error: %s", e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// LogicError is raised when a caller invokes a non-applicable operation,
// e.g. decoding a RAW payload from an X-value that isn't RAW.
type LogicError struct {
	Msg string
}

func (e *LogicError) Error() string { return fmt.Sprintf("qaprpc: %s", e.Msg) }

// RemoteError is raised when a response's success bit is clear. Status is
// the 7-bit code carried in bits 24..30 of the response command word.
type RemoteError struct {
	Status packet.Status
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("qaprpc: remote error: %s (0x%02x)", e.Status, uint8(e.Status))
}
