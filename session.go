package qaprpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/unkn0wn-root/qaprpc/packet"
)

const identificationSize = 32

// Session owns one stream to one endpoint. It connects lazily on first
// use, performs the handshake, and serializes requests over the stream.
// Concurrent calls on the same Session are not supported.
type Session struct {
	host            string
	port            int
	allowAnyVersion bool
	dialTimeout     time.Duration

	conn         net.Conn
	serverID     [identificationSize]byte
	haveServerID bool
	lastResponse *packet.Packet

	log       Logger
	hooks     Hooks
	evalCache *evalCache
}

// Host returns the endpoint host this session is bound to.
func (s *Session) Host() string { return s.host }

// Port returns the endpoint port this session is bound to.
func (s *Session) Port() int { return s.port }

// ServerIdentification returns the last-received 32-byte server
// identification blob, and whether one has been received yet.
func (s *Session) ServerIdentification() ([identificationSize]byte, bool) {
	return s.serverID, s.haveServerID
}

func (s *Session) authTokens() []string {
	if !s.haveServerID {
		return nil
	}
	var toks []string
	for i := 12; i+4 <= identificationSize; i += 4 {
		tok := string(s.serverID[i : i+4])
		if strings.Trim(tok, "\x00") == "" {
			continue
		}
		toks = append(toks, tok)
	}
	return toks
}

// AuthRequired reports whether the server's identification advertised an
// authentication-required attribute token ("AR..").
func (s *Session) AuthRequired() bool {
	for _, t := range s.authTokens() {
		if strings.HasPrefix(t, "AR") {
			return true
		}
	}
	return false
}

// AuthHasScheme reports whether the server advertised the given two-letter
// auth scheme (e.g. "pt" for plaintext, "uc" for crypt-style).
func (s *Session) AuthHasScheme(scheme string) bool {
	for _, t := range s.authTokens() {
		if strings.HasPrefix(t, "AR") && len(t) == 4 && t[2:4] == scheme {
			return true
		}
	}
	return false
}

// AuthKey returns the salt/key advertised in a "K.." attribute token, or
// "rs" if the server did not advertise one.
func (s *Session) AuthKey() string {
	for _, t := range s.authTokens() {
		if strings.HasPrefix(t, "K") && len(t) == 4 {
			return t[1:3]
		}
	}
	return "rs"
}

// connect establishes the stream if not already connected, trying every
// resolved address for the host until one succeeds, then validates the
// server identification blob.
func (s *Session) connect(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, s.host)
	if err != nil {
		return &NetworkError{Msg: fmt.Sprintf("resolve %s", s.host), Cause: err}
	}

	dialer := net.Dialer{Timeout: s.dialTimeout}
	var lastErr error
	for _, addr := range addrs {
		conn, dialErr := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(s.port)))
		if dialErr == nil {
			s.conn = conn
			break
		}
		lastErr = dialErr
	}
	if s.conn == nil {
		return &NetworkError{Msg: fmt.Sprintf("connect to %s:%d", s.host, s.port), Cause: lastErr}
	}

	if err := s.readIdentification(); err != nil {
		_ = s.disconnectWithReason("network_error")
		return err
	}

	s.hooks.Connected(s.host, s.port)
	return nil
}

// readIdentification reads the fixed 32-byte server identification blob
// and enforces the Rsrv/QAP1 magic and, unless allowAnyVersion is set, the
// "0103" protocol version.
func (s *Session) readIdentification() error {
	buf := make([]byte, identificationSize)
	if _, err := io.ReadFull(s.conn, buf); err != nil {
		return &NetworkError{Msg: "read server identification", Cause: err}
	}
	if !bytes.Equal(buf[0:4], []byte("Rsrv")) || !bytes.Equal(buf[8:12], []byte("QAP1")) {
		s.hooks.HandshakeRejected("bad_magic")
		return &NetworkError{Msg: "handshake rejected: malformed server identification"}
	}
	if !s.allowAnyVersion && !bytes.Equal(buf[4:8], []byte("0103")) {
		s.hooks.HandshakeRejected("version_mismatch")
		return &NetworkError{Msg: fmt.Sprintf("handshake rejected: protocol version %q", buf[4:8])}
	}
	copy(s.serverID[:], buf)
	s.haveServerID = true
	return nil
}

// submit writes p to the stream (connecting first if necessary) and reads
// back exactly one matched response packet.
func (s *Session) submit(ctx context.Context, p *packet.Packet) (*packet.Packet, error) {
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if _, err := p.WriteTo(s.conn); err != nil {
		_ = s.disconnectWithReason("network_error")
		return nil, &NetworkError{Msg: "write request", Cause: err}
	}
	resp, err := packet.ReadFrom(s.conn)
	if err != nil {
		_ = s.disconnectWithReason("network_error")
		return nil, &NetworkError{Msg: "read response", Cause: err}
	}
	s.lastResponse = resp
	return resp, nil
}

// Close disconnects the session. Idempotent.
func (s *Session) Close() error {
	return s.disconnectWithReason("explicit")
}

func (s *Session) disconnectWithReason(reason string) error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.hooks.Disconnected(reason)
	return err
}
