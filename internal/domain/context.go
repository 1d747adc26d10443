package domain

import "context"

// updatedByKey is the context key carrying the last-writer marker.
type updatedByKey struct{}

// WithUpdatedBy returns a context carrying the opaque last-writer marker
// for any records written during the request. The marker is treated as an
// opaque passthrough; typically it holds a W3C traceparent string.
func WithUpdatedBy(ctx context.Context, marker string) context.Context {
	if marker == "" {
		return ctx
	}
	return context.WithValue(ctx, updatedByKey{}, marker)
}

// UpdatedByFromContext returns the last-writer marker from the context,
// or an empty string if none is set.
func UpdatedByFromContext(ctx context.Context) string {
	if marker, ok := ctx.Value(updatedByKey{}).(string); ok {
		return marker
	}
	return ""
}
