package wandkit

import "context"

type detachedKey struct{}

// DetachContext returns a context that keeps all the values of its parent
// but is never canceled with it, for work outliving the request
func DetachContext(ctx context.Context) context.Context {
	return context.WithValue(context.WithoutCancel(ctx), detachedKey{}, true)
}

// IsDetached reports whether ctx derives from DetachContext
func IsDetached(ctx context.Context) bool {
	v, _ := ctx.Value(detachedKey{}).(bool)
	return v
}
