package logger

import "context"

type ctxKey struct{}

// ContextWithFields returns a context carrying key-value pairs that
// WithContext attaches to every log entry. Fields accumulate across calls;
// later pairs are appended after earlier ones.
//
// Transport adapters use this to stamp request-scoped values (request id,
// upload channel, uploader id) once instead of threading them through every
// log call.
func ContextWithFields(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues) == 0 {
		return ctx
	}
	existing := FieldsFromContext(ctx)
	merged := make([]any, 0, len(existing)+len(keysAndValues))
	merged = append(merged, existing...)
	merged = append(merged, keysAndValues...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

// FieldsFromContext returns the log fields stored by ContextWithFields,
// or nil.
func FieldsFromContext(ctx context.Context) []any {
	fields, _ := ctx.Value(ctxKey{}).([]any)
	return fields
}
