package qaprpc

import (
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/qaprpc/xval"
)

type fakeProvider struct {
	data map[string][]byte
	reject bool
}

func newFakeProvider() *fakeProvider { return &fakeProvider{data: map[string][]byte{}} }

func (p *fakeProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.data[key]
	return v, ok, nil
}

func (p *fakeProvider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	if p.reject {
		return false, nil
	}
	p.data[key] = value
	return true, nil
}

func (p *fakeProvider) Del(_ context.Context, key string) error {
	delete(p.data, key)
	return nil
}

func (p *fakeProvider) Close(context.Context) error { return nil }

type fakeGenStore struct {
	gens map[string]uint64
}

func newFakeGenStore() *fakeGenStore { return &fakeGenStore{gens: map[string]uint64{}} }

func (g *fakeGenStore) Snapshot(_ context.Context, k string) (uint64, error) { return g.gens[k], nil }

func (g *fakeGenStore) SnapshotMany(_ context.Context, ks []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(ks))
	for _, k := range ks {
		out[k] = g.gens[k]
	}
	return out, nil
}

func (g *fakeGenStore) Bump(_ context.Context, k string) (uint64, error) {
	g.gens[k]++
	return g.gens[k], nil
}

func (g *fakeGenStore) Cleanup(time.Duration)       {}
func (g *fakeGenStore) Close(context.Context) error { return nil }

func TestEvalCacheMissThenHit(t *testing.T) {
	ctx := context.Background()
	c := newEvalCache("ns", newFakeProvider(), newFakeGenStore(), time.Minute, NopLogger{}, NopHooks{})

	if _, ok := c.get(ctx, "1+1"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.set(ctx, "1+1", xval.NewIntVector([]int32{2}, -1))

	got, ok := c.get(ctx, "1+1")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if vals := got.IntValues(-1); len(vals) != 1 || vals[0] != 2 {
		t.Fatalf("got %v, want [2]", vals)
	}
}

func TestEvalCacheStaleAfterBump(t *testing.T) {
	ctx := context.Background()
	c := newEvalCache("ns", newFakeProvider(), newFakeGenStore(), time.Minute, NopLogger{}, NopHooks{})

	c.set(ctx, "x", xval.NewIntVector([]int32{1}, -1))
	c.bump(ctx)

	if _, ok := c.get(ctx, "x"); ok {
		t.Fatal("expected stale entry to miss after bump")
	}
}

func TestEvalCacheSetRejectedFiresHook(t *testing.T) {
	ctx := context.Background()
	var rejectedKey string
	hooks := &recordingHooks{}
	p := newFakeProvider()
	p.reject = true
	c := newEvalCache("ns", p, newFakeGenStore(), time.Minute, NopLogger{}, hooksWithSetRejected(hooks, func(k string) { rejectedKey = k }))

	c.set(ctx, "x", xval.NewIntVector([]int32{1}, -1))
	if rejectedKey == "" {
		t.Fatal("expected EvalCacheSetRejected to fire")
	}
}

// hooksWithSetRejected wraps hooks with a custom EvalCacheSetRejected
// callback for a single test assertion.
type setRejectedHooks struct {
	Hooks
	onSetRejected func(string)
}

func (h *setRejectedHooks) EvalCacheSetRejected(key string) { h.onSetRejected(key) }

func hooksWithSetRejected(h Hooks, fn func(string)) Hooks {
	return &setRejectedHooks{Hooks: h, onSetRejected: fn}
}
