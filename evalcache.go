package qaprpc

import (
	"context"
	"time"

	"github.com/unkn0wn-root/qaprpc/genstore"
	"github.com/unkn0wn-root/qaprpc/internal/util"
	"github.com/unkn0wn-root/qaprpc/internal/wire"
	"github.com/unkn0wn-root/qaprpc/provider"
	"github.com/unkn0wn-root/qaprpc/xval"
)

// evalCache memoizes Eval results against a write epoch tracked in gen.
// Every successful Assign bumps the epoch for the namespace, which makes
// every entry cached before the bump stale on its next read.
type evalCache struct {
	ns       string
	provider provider.Provider
	gen      genstore.GenStore
	ttl      time.Duration
	log      Logger
	hooks    Hooks
}

func newEvalCache(ns string, p provider.Provider, g genstore.GenStore, ttl time.Duration, log Logger, hooks Hooks) *evalCache {
	return &evalCache{ns: ns, provider: p, gen: g, ttl: ttl, log: log, hooks: hooks}
}

// key derives the provider storage key for an eval expression's text.
func (c *evalCache) key(text string) string {
	return util.BulkKey("eval:"+c.ns, []string{text})
}

func (c *evalCache) epochKey() string { return "epoch:" + c.ns }

func (c *evalCache) currentEpoch(ctx context.Context) uint64 {
	gen, err := c.gen.Snapshot(ctx, c.epochKey())
	if err != nil {
		c.hooks.GenSnapshotError(err)
		c.log.Warn("qaprpc: eval cache epoch snapshot failed", Fields{"ns": c.ns, "error": err})
		return 0
	}
	return gen
}

func (c *evalCache) bump(ctx context.Context) {
	if _, err := c.gen.Bump(ctx, c.epochKey()); err != nil {
		c.hooks.GenBumpError(err)
		c.log.Warn("qaprpc: eval cache epoch bump failed", Fields{"ns": c.ns, "error": err})
	}
}

// get returns the cached result for text, if present and not stale.
func (c *evalCache) get(ctx context.Context, text string) (*xval.Value, bool) {
	key := c.key(text)
	raw, ok, err := c.provider.Get(ctx, key)
	if err != nil || !ok {
		c.hooks.EvalCacheMiss(key)
		return nil, false
	}
	if len(raw) < 8 {
		c.hooks.EvalCacheMiss(key)
		return nil, false
	}
	storedEpoch := wire.Uint64(raw, 0)
	if storedEpoch != c.currentEpoch(ctx) {
		c.hooks.EvalCacheStale(key)
		return nil, false
	}
	v, _, err := xval.Decode(raw, 8)
	if err != nil {
		c.hooks.EvalCacheMiss(key)
		return nil, false
	}
	c.hooks.EvalCacheHit(key)
	return v, true
}

// set stores v as the cached result for text, tagged with the current
// epoch.
func (c *evalCache) set(ctx context.Context, text string, v *xval.Value) {
	key := c.key(text)
	payload := xval.Encode(v)
	buf := make([]byte, 8+len(payload))
	wire.PutUint64(buf, 0, c.currentEpoch(ctx))
	copy(buf[8:], payload)

	ok, err := c.provider.Set(ctx, key, buf, int64(len(buf)), c.ttl)
	if err != nil {
		c.log.Warn("qaprpc: eval cache set failed", Fields{"ns": c.ns, "error": err})
		return
	}
	if !ok {
		c.hooks.EvalCacheSetRejected(key)
	}
}
