package packet

// Commands this client issues. Servers may respond with other codes; those
// are surfaced via Packet.Command unchanged.
const (
	CmdLogin      uint32 = 0x001
	CmdEval       uint32 = 0x003
	CmdShutdown   uint32 = 0x004
	CmdSetSexp    uint32 = 0x020
	CmdAssignSexp uint32 = 0x021
)

const (
	cmdMask    uint32 = 0x000000FF
	successBit uint32 = 1 << 0
	errorBit   uint32 = 1 << 1
	statusMask uint32 = 0x7F
	statusBits = 24
)

// CommandCode returns the low byte of a command word, with the status code
// in bits 24..30 masked off. The success and error bits (bits 0 and 1) lie
// inside this byte and are kept.
func CommandCode(command uint32) uint32 { return command & cmdMask }

// Success reports whether the response's success bit (bit 0) is set.
func Success(command uint32) bool { return command&successBit != 0 }

// Failed reports whether the response's error bit (bit 1) is set.
func Failed(command uint32) bool { return command&errorBit != 0 }

// StatusCode extracts the 7-bit status code carried in bits 24..30.
func StatusCode(command uint32) Status {
	return Status((command >> statusBits) & statusMask)
}
