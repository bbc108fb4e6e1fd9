package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"

	FieldStreamID     = "stream_id"
	FieldStream       = "stream"
	FieldState        = "state"
	FieldAlgorithm    = "algorithm"
	FieldBackpressure = "backpressure"
	FieldDesiredSize  = "desired_size"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Debug("chunk enqueued", logger.Fields("desired_size", 0))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	fields := map[string]interface{}{FieldOperation: op}
	if err != nil {
		fields[FieldError] = err.Error()
	}
	return fields
}

// AlgorithmFields creates fields for a finished user algorithm.
func AlgorithmFields(algorithm string, d time.Duration, err error) map[string]interface{} {
	fields := map[string]interface{}{
		FieldAlgorithm: algorithm,
		FieldDuration:  d.Milliseconds(),
	}
	if err != nil {
		fields[FieldError] = err.Error()
	}
	return fields
}

// TransitionFields creates fields for a state change.
func TransitionFields(from, to string) map[string]interface{} {
	return map[string]interface{}{
		FieldState:  to,
		"from_state": from,
	}
}
