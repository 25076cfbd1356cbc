package logger

import (
	"time"
)

// Standard field keys.
const (
	FieldComponent  = "component"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
	FieldRequestID  = "request_id"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldMethod     = "method"
	FieldURL        = "url"
	FieldStatusCode = "status_code"
	// FieldKind is the response failure classification.
	FieldKind     = "kind"
	FieldAttempt  = "attempt"
	FieldResource = "resource"
	FieldPage     = "page"
	FieldCodec    = "codec"
)

// Fields builds a map from alternating key-value pairs. Non-string keys are skipped.
//
//	log.Info("page fetched", logger.Fields(logger.FieldPage, 2, logger.FieldURL, u))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]any {
	return MergeWithError(map[string]any{FieldOperation: op}, err)
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]any {
	return MergeWithDuration(map[string]any{FieldOperation: op}, d)
}

// MergeWithError adds an error field to an existing map.
func MergeWithError(fields map[string]any, err error) map[string]any {
	if fields == nil {
		fields = make(map[string]any)
	}
	if err != nil {
		fields[FieldError] = err.Error()
	}
	return fields
}

// MergeWithDuration adds a duration field to an existing map.
func MergeWithDuration(fields map[string]any, d time.Duration) map[string]any {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}
