package observability

import "context"

// Private context key types to avoid collisions.
type spanKey struct{}
type observerKey struct{}

// SpanFromContext extracts a Span from the context, or nil when absent.
func SpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return nil
	}
	span, _ := ctx.Value(spanKey{}).(Span)
	return span
}

// ContextWithSpan returns a new context with the given span attached.
func ContextWithSpan(ctx context.Context, span Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanKey{}, span)
}

// ObserverFromContext extracts an Observer from the context, or nil when absent.
func ObserverFromContext(ctx context.Context) Observer {
	if ctx == nil {
		return nil
	}
	observer, _ := ctx.Value(observerKey{}).(Observer)
	return observer
}

// ContextWithObserver returns a new context with the given observer attached.
func ContextWithObserver(ctx context.Context, observer Observer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, observerKey{}, observer)
}
