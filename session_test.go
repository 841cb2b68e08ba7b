package qaprpc

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/unkn0wn-root/qaprpc/packet"
)

func identBytes(version string) []byte {
	b := make([]byte, identificationSize)
	copy(b[0:4], "Rsrv")
	copy(b[4:8], version)
	copy(b[8:12], "QAP1")
	return b
}

// startFakeServer listens on loopback, accepts exactly one connection,
// writes ident, then hands the connection to handle. It returns the
// listener's port; the listener is closed through t.Cleanup.
func startFakeServer(t *testing.T, ident []byte, handle func(net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := conn.Write(ident); err != nil {
			return
		}
		if handle != nil {
			handle(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func echoOneEval(resp *packet.Packet) func(net.Conn) {
	return func(conn net.Conn) {
		if _, err := packet.ReadFrom(conn); err != nil {
			return
		}
		_, _ = resp.WriteTo(conn)
	}
}

func TestConnectHandshakeAccepted(t *testing.T) {
	port := startFakeServer(t, identBytes("0103"), nil)
	s, err := New(Options{Host: "127.0.0.1", Port: port, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	id, ok := s.ServerIdentification()
	if !ok {
		t.Fatal("expected server identification to be recorded")
	}
	if !bytes.Equal(id[0:4], []byte("Rsrv")) {
		t.Fatalf("unexpected identification: %v", id)
	}
	s.Close()
}

func TestConnectHandshakeRejectedBadMagic(t *testing.T) {
	bad := identBytes("0103")
	copy(bad[0:4], "XXXX")
	port := startFakeServer(t, bad, nil)

	var gotReason string
	hooks := &recordingHooks{onHandshakeRejected: func(reason string) { gotReason = reason }}
	s, err := New(Options{Host: "127.0.0.1", Port: port, DialTimeout: time.Second, Hooks: hooks})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.connect(context.Background()); err == nil {
		t.Fatal("expected handshake rejection error")
	}
	if gotReason != "bad_magic" {
		t.Fatalf("reason = %q, want bad_magic", gotReason)
	}
}

func TestConnectHandshakeRejectedVersionMismatch(t *testing.T) {
	port := startFakeServer(t, identBytes("0099"), nil)
	s, err := New(Options{Host: "127.0.0.1", Port: port, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.connect(context.Background()); err == nil {
		t.Fatal("expected version mismatch error")
	}
}

func TestConnectAllowAnyVersionAcceptsMismatch(t *testing.T) {
	port := startFakeServer(t, identBytes("0099"), nil)
	s, err := New(Options{Host: "127.0.0.1", Port: port, DialTimeout: time.Second, AllowAnyVersion: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
}

func TestAuthTokenHelpers(t *testing.T) {
	id := identBytes("0103")
	copy(id[12:16], "ARuc")
	copy(id[16:20], "Kab")
	port := startFakeServer(t, id, nil)

	s, err := New(Options{Host: "127.0.0.1", Port: port, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !s.AuthRequired() {
		t.Error("expected AuthRequired")
	}
	if !s.AuthHasScheme("uc") {
		t.Error("expected uc scheme")
	}
	if got := s.AuthKey(); got != "ab" {
		t.Errorf("AuthKey() = %q, want ab", got)
	}
}

// recordingHooks implements Hooks, delegating to optional callbacks and
// no-op otherwise, for observing a single event in a test.
type recordingHooks struct {
	onHandshakeRejected func(string)
	onLoginFailed       func(string)
}

func (h *recordingHooks) Connected(string, int)    {}
func (h *recordingHooks) Disconnected(string)      {}
func (h *recordingHooks) HandshakeRejected(reason string) {
	if h.onHandshakeRejected != nil {
		h.onHandshakeRejected(reason)
	}
}
func (h *recordingHooks) LoginFailed(user string) {
	if h.onLoginFailed != nil {
		h.onLoginFailed(user)
	}
}
func (h *recordingHooks) EvalCacheHit(string)         {}
func (h *recordingHooks) EvalCacheMiss(string)        {}
func (h *recordingHooks) EvalCacheStale(string)       {}
func (h *recordingHooks) EvalCacheSetRejected(string) {}
func (h *recordingHooks) GenSnapshotError(error)      {}
func (h *recordingHooks) GenBumpError(error)          {}
