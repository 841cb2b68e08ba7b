package qaprpc

// Hooks are lightweight callbacks for high-signal session events.
// Implementations MUST be cheap and non-blocking; the session calls them
// on hot paths (see hooks/async for a queued, worker-backed wrapper).
type Hooks interface {
	// A stream was established and the server identification validated.
	Connected(host string, port int)

	// The stream was closed, by explicit call or after a network failure.
	// reason ∈ {"explicit", "network_error"}
	Disconnected(reason string)

	// The server identification blob failed validation; the stream was
	// closed before any request was sent.
	// reason ∈ {"bad_magic", "version_mismatch"}
	HandshakeRejected(reason string)

	// A login request's response had its success bit clear.
	LoginFailed(user string)

	// An eval-result cache lookup hit, missed, or was dropped for being
	// stale (write epoch advanced since it was cached).
	EvalCacheHit(key string)
	EvalCacheMiss(key string)
	EvalCacheStale(key string)

	// The eval-result cache provider rejected a write (backpressure or
	// eviction).
	EvalCacheSetRejected(key string)

	// The write-epoch generation store failed a snapshot or bump.
	GenSnapshotError(err error)
	GenBumpError(err error)
}

// NopHooks is the default no-op implementation.
type NopHooks struct{}

func (NopHooks) Connected(string, int)       {}
func (NopHooks) Disconnected(string)         {}
func (NopHooks) HandshakeRejected(string)    {}
func (NopHooks) LoginFailed(string)          {}
func (NopHooks) EvalCacheHit(string)         {}
func (NopHooks) EvalCacheMiss(string)        {}
func (NopHooks) EvalCacheStale(string)       {}
func (NopHooks) EvalCacheSetRejected(string) {}
func (NopHooks) GenSnapshotError(error)      {}
func (NopHooks) GenBumpError(error)          {}
