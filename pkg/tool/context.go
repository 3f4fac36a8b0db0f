package tool

import "context"

type ctxKey int

const invocationKey ctxKey = iota

// Invocation is the execution metadata the engine attaches to the
// context a handler runs under.
type Invocation struct {
	ID     string
	Tool   string
	Caller Caller
}

// WithInvocation attaches invocation metadata to ctx.
func WithInvocation(ctx context.Context, inv Invocation) context.Context {
	return context.WithValue(ctx, invocationKey, inv)
}

// InvocationFromContext returns the invocation metadata attached by the
// engine, if any.
func InvocationFromContext(ctx context.Context) (Invocation, bool) {
	inv, ok := ctx.Value(invocationKey).(Invocation)
	return inv, ok
}
