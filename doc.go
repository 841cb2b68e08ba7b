// Package qaprpc implements a client for a message-oriented remote
// evaluation service that exposes a statistical/numeric runtime over TCP
// (the QAP protocol). A Session pushes values into the remote session,
// evaluates textual expressions there, retrieves typed results,
// authenticates, and shuts the service down.
//
// Components:
//   - internal/wire: little-endian byte codec shared by the packet and
//     xval layers.
//   - xval: the recursive typed value tree (X-value) carried inside SEXP
//     packet entries, and its wire codec.
//   - packet: the 16-byte packet header, tagged packet entries, commands,
//     and status codes.
//   - Session (this package): lazy connect, handshake validation, request
//     submission, last-response inspection.
//   - provider / genstore: pluggable byte store and generation counter
//     backing the optional eval-result cache.
//   - valuecodec: pluggable (de)serializers used by AssignRaw/EvalRaw to
//     round-trip arbitrary Go values through the RAW X-value kind.
//
// Eval-result caching:
//
//	obs := session's current write epoch (bumped on every successful assign)
//	v, err := session.EvalCached(ctx, text) // hits cache iff epoch unchanged
package qaprpc
