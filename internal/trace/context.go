package trace

import "context"

type ctxKey struct{}

// carrier is what the context holds: the tracer and the innermost open span.
type carrier struct {
	tracer Tracer
	span   uint64
}

func load(ctx context.Context) carrier {
	if ctx != nil {
		if c, ok := ctx.Value(ctxKey{}).(carrier); ok {
			return c
		}
	}
	return carrier{tracer: Nop}
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return load(ctx).tracer
}

// WithTracer attaches t to ctx. Spans already open in ctx stay the parent.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	c := load(ctx)
	c.tracer = t
	return context.WithValue(ctx, ctxKey{}, c)
}

// SpanID returns the innermost span opened through Start, 0 at the root.
func SpanID(ctx context.Context) uint64 {
	return load(ctx).span
}

// Start opens a span under the innermost span of ctx and returns a
// context in which the new span is the parent of everything below.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	c := load(ctx)
	s := Begin(c.tracer, scope, name, c.span)
	if s.id == 0 {
		return ctx, s
	}
	c.span = s.id
	return context.WithValue(ctx, ctxKey{}, c), s
}
