package qaprpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/unkn0wn-root/qaprpc/packet"
	"github.com/unkn0wn-root/qaprpc/xval"
)

func TestNewRequiresHostAndPort(t *testing.T) {
	if _, err := New(Options{Port: 6311}); err == nil {
		t.Fatal("expected error for missing Host")
	}
	if _, err := New(Options{Host: "localhost"}); err == nil {
		t.Fatal("expected error for missing Port")
	}
}

func TestNewDefaultsDialTimeout(t *testing.T) {
	s, err := New(Options{Host: "localhost", Port: 6311})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.dialTimeout != defaultDialTimeout {
		t.Errorf("dialTimeout = %v, want %v", s.dialTimeout, defaultDialTimeout)
	}
	if s.evalCache != nil {
		t.Error("expected no eval cache without EvalCacheProvider")
	}
}

func TestNewWiresEvalCacheWithDefaults(t *testing.T) {
	s, err := New(Options{Host: "localhost", Port: 6311, EvalCacheProvider: newFakeProvider()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.evalCache == nil {
		t.Fatal("expected eval cache to be wired")
	}
	if s.evalCache.ns != "default" {
		t.Errorf("ns = %q, want default", s.evalCache.ns)
	}
	if s.evalCache.ttl != defaultEvalCacheTTL {
		t.Errorf("ttl = %v, want %v", s.evalCache.ttl, defaultEvalCacheTTL)
	}
}

func TestEvalCachedEndToEnd(t *testing.T) {
	var requests int
	resp := &packet.Packet{
		Command: packet.CmdEval | 1,
		Entries: []packet.Entry{packet.NewSexp(xval.NewIntVector([]int32{42}, -1))},
	}

	port := startFakeServer(t, identBytes("0103"), func(conn net.Conn) {
		for {
			if _, err := packet.ReadFrom(conn); err != nil {
				return
			}
			requests++
			if _, err := resp.WriteTo(conn); err != nil {
				return
			}
		}
	})

	s, err := New(Options{
		Host:              "127.0.0.1",
		Port:              port,
		DialTimeout:       time.Second,
		EvalCacheProvider: newFakeProvider(),
		GenStore:          newFakeGenStore(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	v1, err := s.EvalCached(ctx, "answer()")
	if err != nil {
		t.Fatalf("EvalCached (miss): %v", err)
	}
	v2, err := s.EvalCached(ctx, "answer()")
	if err != nil {
		t.Fatalf("EvalCached (hit): %v", err)
	}

	if requests != 1 {
		t.Fatalf("requests = %d, want 1 (second call should hit cache)", requests)
	}
	if got := v1.IntValues(-1)[0]; got != 42 {
		t.Errorf("v1 = %d, want 42", got)
	}
	if got := v2.IntValues(-1)[0]; got != 42 {
		t.Errorf("v2 = %d, want 42", got)
	}
	s.Close()
}
