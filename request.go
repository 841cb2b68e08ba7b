package qaprpc

import (
	"context"

	"github.com/unkn0wn-root/qaprpc/packet"
	"github.com/unkn0wn-root/qaprpc/valuecodec"
	"github.com/unkn0wn-root/qaprpc/xval"
)

// Eval sends text for remote evaluation and returns the result as an
// X-value. If the response carries no entries or its first entry is not
// SEXP, the returned value is NULL.
func (s *Session) Eval(ctx context.Context, text string) (*xval.Value, error) {
	resp, err := s.submit(ctx, packet.Build(packet.CmdEval, packet.NewString(text+"\n")))
	if err != nil {
		return nil, err
	}
	if !packet.Success(resp.Command) {
		return nil, &RemoteError{Status: packet.StatusCode(resp.Command)}
	}
	if len(resp.Entries) == 0 {
		return xval.NewNull(), nil
	}
	v, ok := resp.Entries[0].Value()
	if !ok {
		return xval.NewNull(), nil
	}
	return v, nil
}

// EvalCached behaves like Eval, but first consults the session's
// eval-result cache (see Options.EvalCacheNamespace) and populates it on a
// miss. With no cache configured it is equivalent to Eval.
func (s *Session) EvalCached(ctx context.Context, text string) (*xval.Value, error) {
	if s.evalCache == nil {
		return s.Eval(ctx, text)
	}
	if v, ok := s.evalCache.get(ctx, text); ok {
		return v, nil
	}
	v, err := s.Eval(ctx, text)
	if err != nil {
		return nil, err
	}
	s.evalCache.set(ctx, text, v)
	return v, nil
}

// Assign pushes value into the remote session under name. It returns true
// iff the response's success bit is set. A successful assign bumps the
// session's write epoch, invalidating any eval-result cache entries
// computed before it.
func (s *Session) Assign(ctx context.Context, name string, value *xval.Value) (bool, error) {
	resp, err := s.submit(ctx, packet.Build(packet.CmdSetSexp, packet.NewString(name), packet.NewSexp(value)))
	if err != nil {
		return false, err
	}
	ok := packet.Success(resp.Command)
	if ok && s.evalCache != nil {
		s.evalCache.bump(ctx)
	}
	return ok, nil
}

// AssignRaw marshals v with codec and assigns it as a RAW X-value under
// name. It is a package-level function, not a method, because Go methods
// cannot carry their own type parameters.
func AssignRaw[V any](ctx context.Context, s *Session, name string, v V, codec valuecodec.Codec[V]) (bool, error) {
	b, err := codec.Encode(v)
	if err != nil {
		return false, &DecodeError{Msg: "encode raw value", Cause: err}
	}
	return s.Assign(ctx, name, xval.NewRaw(b))
}

// EvalRaw evaluates text and unmarshals the result's RAW payload with
// codec. It returns a LogicError if the result is not a RAW X-value.
func EvalRaw[V any](ctx context.Context, s *Session, text string, codec valuecodec.Codec[V]) (V, error) {
	var zero V
	v, err := s.Eval(ctx, text)
	if err != nil {
		return zero, err
	}
	if v.Kind != xval.Raw {
		return zero, &LogicError{Msg: "eval result is not a RAW value"}
	}
	out, err := codec.Decode(v.RawBytes)
	if err != nil {
		return zero, &DecodeError{Msg: "decode raw value", Cause: err}
	}
	return out, nil
}

// Hasher computes the secret sent after the username, given the key
// advertised by the server's handshake (see Session.AuthKey) and the
// caller's plaintext password. Pass nil to Login to send the password in
// plain text.
type Hasher func(key, password string) string

// Login authenticates with user and password. If hash is nil the password
// is sent as-is (scheme "pt"); otherwise hash(s.AuthKey(), password)
// replaces it in the same layout (scheme "uc"). It returns true iff the
// response's success bit is set.
func (s *Session) Login(ctx context.Context, user, password string, hash Hasher) (bool, error) {
	secret := password
	if hash != nil {
		if err := s.connect(ctx); err != nil {
			return false, err
		}
		secret = hash(s.AuthKey(), password)
	}
	resp, err := s.submit(ctx, packet.Build(packet.CmdLogin, packet.NewString(user+"\n"+secret)))
	if err != nil {
		return false, err
	}
	ok := packet.Success(resp.Command)
	if !ok {
		s.hooks.LoginFailed(user)
	}
	return ok, nil
}

// Shutdown sends the shutdown command with key (which may be empty). It
// returns true iff the response's success bit is set.
func (s *Session) Shutdown(ctx context.Context, key string) (bool, error) {
	resp, err := s.submit(ctx, packet.Build(packet.CmdShutdown, packet.NewString(key)))
	if err != nil {
		return false, err
	}
	return packet.Success(resp.Command), nil
}

// LastResponseOK reports whether the most recent response's success bit
// was set.
func (s *Session) LastResponseOK() bool {
	return s.lastResponse != nil && packet.Success(s.lastResponse.Command)
}

// LastResponseStatus extracts the most recent response's 7-bit status
// code.
func (s *Session) LastResponseStatus() packet.Status {
	if s.lastResponse == nil {
		return 0
	}
	return packet.StatusCode(s.lastResponse.Command)
}

// LastResponseEntryCount returns the most recent response's entry count.
func (s *Session) LastResponseEntryCount() int {
	if s.lastResponse == nil {
		return 0
	}
	return len(s.lastResponse.Entries)
}

// LastResponseEntryKind returns the kind of entry i in the most recent
// response.
func (s *Session) LastResponseEntryKind(i int) (packet.EntryKind, bool) {
	if s.lastResponse == nil || i < 0 || i >= len(s.lastResponse.Entries) {
		return 0, false
	}
	return s.lastResponse.Entries[i].Kind, true
}

// LastResponseString returns entry i of the most recent response as a
// string. ok is false unless entry i is a STRING entry with a
// NUL-terminated payload.
func (s *Session) LastResponseString(i int) (string, bool) {
	if s.lastResponse == nil || i < 0 || i >= len(s.lastResponse.Entries) {
		return "", false
	}
	return s.lastResponse.Entries[i].String()
}

// LastResponseValue returns entry i of the most recent response as an
// X-value. ok is false unless entry i is a SEXP entry.
func (s *Session) LastResponseValue(i int) (*xval.Value, bool) {
	if s.lastResponse == nil || i < 0 || i >= len(s.lastResponse.Entries) {
		return nil, false
	}
	return s.lastResponse.Entries[i].Value()
}
