package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/qaprpc"
)

// Options configures sampling and redaction for Hooks.
type Options struct {
	// Sampling to avoid floods on the two hottest events; 0/1 = log all.
	EvalCacheHitEvery  uint64
	EvalCacheMissEvery uint64
	// Optional key redactor, applied to eval-cache keys before logging.
	// Defaults to a SHA-256 prefix.
	Redact func(string) string
}

// Hooks is a qaprpc.Hooks implementation that logs every event through l.
// Connection, handshake, login, and generation-store events are always
// logged; EvalCacheHit/EvalCacheMiss are sampled per Options.
type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ qaprpc.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Connected(host string, port int) {
	if h.l == nil {
		return
	}
	h.l.Info("qaprpc.connected", "host", host, "port", port)
}

func (h *Hooks) Disconnected(reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("qaprpc.disconnected", "reason", reason)
}

func (h *Hooks) HandshakeRejected(reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("qaprpc.handshake_rejected", "reason", reason)
}

func (h *Hooks) LoginFailed(user string) {
	if h.l == nil {
		return
	}
	h.l.Warn("qaprpc.login_failed", "user", user)
}

func (h *Hooks) EvalCacheHit(key string) {
	if h.l == nil || !sample(h.opts.EvalCacheHitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("qaprpc.eval_cache_hit", "key", h.redact(key))
}

func (h *Hooks) EvalCacheMiss(key string) {
	if h.l == nil || !sample(h.opts.EvalCacheMissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("qaprpc.eval_cache_miss", "key", h.redact(key))
}

func (h *Hooks) EvalCacheStale(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("qaprpc.eval_cache_stale", "key", h.redact(key))
}

func (h *Hooks) EvalCacheSetRejected(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("qaprpc.eval_cache_set_rejected", "key", h.redact(key))
}

func (h *Hooks) GenSnapshotError(err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("qaprpc.gen_snapshot_error", "err", err)
}

func (h *Hooks) GenBumpError(err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("qaprpc.gen_bump_error", "err", err)
}
