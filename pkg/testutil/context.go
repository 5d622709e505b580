package testutil

import (
	"context"
	"net/http"
	"time"

	id "aurum/pkg/domain"
	"aurum/pkg/requestcontext"
)

// AsActor attaches an authenticated caller to the request, as the auth
// middleware does after validating a bearer token.
func AsActor(req *http.Request, actor id.Address) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// At pins the request time, as the request-time middleware does.
func At(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// Ctx builds a service-level context for actor at time t. A zero time leaves
// the clock unpinned.
func Ctx(actor id.Address, t time.Time) context.Context {
	ctx := context.Background()
	if !actor.IsZero() {
		ctx = requestcontext.WithActor(ctx, actor)
	}
	if !t.IsZero() {
		ctx = requestcontext.WithTime(ctx, t)
	}
	return ctx
}

// Address builds a deterministic address from a small integer, for fixtures.
func Address(n byte) id.Address {
	const hexdigits = "0123456789abcdef"
	b := []byte("0x0000000000000000000000000000000000000000")
	b[len(b)-2] = hexdigits[n>>4]
	b[len(b)-1] = hexdigits[n&0x0f]
	return id.Address(b)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
