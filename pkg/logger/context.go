package logger

import (
	"context"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// Correlation fields (distributed tracing)
	TraceIDKey contextKey = "trace_id"
	SpanIDKey  contextKey = "span_id"

	// Results query fields
	NamespaceKey contextKey = "namespace"
	DataTypeKey  contextKey = "data_type"
	CacheKeyKey  contextKey = "cache_key"
	RecordKey    contextKey = "record"

	// Dynamic log fields
	LogFieldsKey contextKey = "log_fields"
)

// LogFields holds dynamic key-value pairs for logging
type LogFields map[string]interface{}

// -----------------------------------------------------------------------------
// Context Setters
// -----------------------------------------------------------------------------

// WithLogField adds a single dynamic log field to the context
// These fields will be extracted and included in all log entries
func WithLogField(ctx context.Context, key string, value interface{}) context.Context {
	fields := GetLogFields(ctx)
	if fields == nil {
		fields = make(LogFields)
	}
	fields[key] = value
	return context.WithValue(ctx, LogFieldsKey, fields)
}

// WithLogFields adds multiple dynamic log fields to the context
func WithLogFields(ctx context.Context, newFields LogFields) context.Context {
	fields := GetLogFields(ctx)
	if fields == nil {
		fields = make(LogFields)
	}
	for k, v := range newFields {
		fields[k] = v
	}
	return context.WithValue(ctx, LogFieldsKey, fields)
}

// WithTraceID returns a context with the trace ID set
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return WithLogField(ctx, string(TraceIDKey), traceID)
}

// WithSpanID returns a context with the span ID set
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return WithLogField(ctx, string(SpanIDKey), spanID)
}

// WithNamespace returns a context with the searched namespace set
func WithNamespace(ctx context.Context, namespace string) context.Context {
	return WithLogField(ctx, string(NamespaceKey), namespace)
}

// WithDataType returns a context with the record data type set
func WithDataType(ctx context.Context, dataType string) context.Context {
	return WithLogField(ctx, string(DataTypeKey), dataType)
}

// WithCacheKey returns a context with the response cache key set.
// Empty keys are not recorded.
func WithCacheKey(ctx context.Context, cacheKey string) context.Context {
	if cacheKey == "" {
		return ctx
	}
	return WithLogField(ctx, string(CacheKeyKey), cacheKey)
}

// WithRecord returns a context with the record path set
func WithRecord(ctx context.Context, record string) context.Context {
	return WithLogField(ctx, string(RecordKey), record)
}

// -----------------------------------------------------------------------------
// Context Getters
// -----------------------------------------------------------------------------

// GetLogFields returns the dynamic log fields from the context, or nil if not set
func GetLogFields(ctx context.Context) LogFields {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(LogFieldsKey).(LogFields); ok {
		// Return a copy to avoid mutation
		fields := make(LogFields, len(v))
		for k, val := range v {
			fields[k] = val
		}
		return fields
	}
	return nil
}
