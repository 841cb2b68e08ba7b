// usage:
//
// import (
//
//	"github.com/unkn0wn-root/qaprpc"
//	"github.com/unkn0wn-root/qaprpc/hooks/async"
//	"github.com/unkn0wn-root/qaprpc/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    EvalCacheHitEvery:  100, // sample logs: ~every 100th cache hit
//	    EvalCacheMissEvery: 10,
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	s, _ := qaprpc.New(qaprpc.Options{
//	    Host:  "localhost",
//	    Port:  6311,
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/qaprpc"
)

// Hooks wraps an inner qaprpc.Hooks so its callbacks run on a small worker
// pool instead of the session's own goroutine. Events are dropped rather
// than blocking the caller when the queue is full.
type Hooks struct {
	inner qaprpc.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ qaprpc.Hooks = (*Hooks)(nil)

func New(inner qaprpc.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the worker pool. Safe to call once.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) Connected(host string, port int) {
	h.try(func() { h.inner.Connected(host, port) })
}
func (h *Hooks) Disconnected(reason string) {
	h.try(func() { h.inner.Disconnected(reason) })
}
func (h *Hooks) HandshakeRejected(reason string) {
	h.try(func() { h.inner.HandshakeRejected(reason) })
}
func (h *Hooks) LoginFailed(user string) {
	h.try(func() { h.inner.LoginFailed(user) })
}
func (h *Hooks) EvalCacheHit(key string) {
	h.try(func() { h.inner.EvalCacheHit(key) })
}
func (h *Hooks) EvalCacheMiss(key string) {
	h.try(func() { h.inner.EvalCacheMiss(key) })
}
func (h *Hooks) EvalCacheStale(key string) {
	h.try(func() { h.inner.EvalCacheStale(key) })
}
func (h *Hooks) EvalCacheSetRejected(key string) {
	h.try(func() { h.inner.EvalCacheSetRejected(key) })
}
func (h *Hooks) GenSnapshotError(err error) {
	h.try(func() { h.inner.GenSnapshotError(err) })
}
func (h *Hooks) GenBumpError(err error) {
	h.try(func() { h.inner.GenBumpError(err) })
}
