package eventing

import "context"

type (
	envelopeKey    struct{}
	correlationKey struct{}
)

// WithEnvelope attaches the delivery envelope to ctx for handlers.
func WithEnvelope(ctx context.Context, env Envelope) context.Context {
	return context.WithValue(ctx, envelopeKey{}, env)
}

// EnvelopeFromContext returns the envelope of the event being handled.
func EnvelopeFromContext(ctx context.Context) (Envelope, bool) {
	env, ok := ctx.Value(envelopeKey{}).(Envelope)
	return env, ok
}

// WithCorrelationID tags events published under ctx, usually with the HTTP request id.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, correlationID)
}

// CorrelationIDFromContext returns the id set by WithCorrelationID or carried by the
// envelope of the event being handled.
func CorrelationIDFromContext(ctx context.Context) string {
	if corr, ok := ctx.Value(correlationKey{}).(string); ok {
		return corr
	}
	if env, ok := EnvelopeFromContext(ctx); ok {
		return env.CorrelationID
	}
	return ""
}

// MetaFromContext builds envelope overrides from ctx.
func MetaFromContext(ctx context.Context) Meta {
	return Meta{CorrelationID: CorrelationIDFromContext(ctx)}
}
