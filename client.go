package qaprpc

import (
	"time"

	"github.com/unkn0wn-root/qaprpc/genstore"
	"github.com/unkn0wn-root/qaprpc/provider"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultEvalCacheTTL    = 5 * time.Minute
	defaultGenCleanupEvery = time.Minute
	defaultGenRetention    = 10 * time.Minute
)

// Options configures New. Host and Port are required; every other field
// has a usable default.
type Options struct {
	Host            string
	Port            int
	AllowAnyVersion bool
	DialTimeout     time.Duration

	Logger Logger
	Hooks  Hooks

	// EvalCacheProvider, when set, turns on the eval-result cache: Eval
	// results are memoized under EvalCacheNamespace and invalidated on the
	// next successful Assign. EvalCacheNamespace defaults to "default".
	// EvalCacheTTL defaults to 5 minutes. GenStore defaults to an
	// in-process LocalGenStore when EvalCacheProvider is set but GenStore
	// is nil.
	EvalCacheProvider  provider.Provider
	EvalCacheNamespace string
	EvalCacheTTL       time.Duration
	GenStore           genstore.GenStore
}

// New builds a Session for the given options. The returned Session does
// not connect until its first request.
func New(opts Options) (*Session, error) {
	if opts.Host == "" {
		return nil, &LogicError{Msg: "Options.Host is required"}
	}
	if opts.Port == 0 {
		return nil, &LogicError{Msg: "Options.Port is required"}
	}

	log := opts.Logger
	if log == nil {
		log = NopLogger{}
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = NopHooks{}
	}

	s := &Session{
		host:            opts.Host,
		port:            opts.Port,
		allowAnyVersion: opts.AllowAnyVersion,
		dialTimeout:     coalesce(opts.DialTimeout, defaultDialTimeout),
		log:             log,
		hooks:           hooks,
	}

	if opts.EvalCacheProvider != nil {
		gen := opts.GenStore
		if gen == nil {
			gen = genstore.NewLocalGenStore(defaultGenCleanupEvery, defaultGenRetention)
		}
		ns := coalesce(opts.EvalCacheNamespace, "default")
		ttl := coalesce(opts.EvalCacheTTL, defaultEvalCacheTTL)
		s.evalCache = newEvalCache(ns, opts.EvalCacheProvider, gen, ttl, log, hooks)
	}

	return s, nil
}
