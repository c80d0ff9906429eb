package driver

import "context"

type contextKey struct{}

func InjectContext(ctx context.Context, d Driver) context.Context {
	return context.WithValue(ctx, contextKey{}, d)
}

func FromContext(ctx context.Context) (Driver, bool) {
	d, ok := ctx.Value(contextKey{}).(Driver)
	return d, ok
}
