package logger

import "time"

// Keys shared across packages so log queries can rely on them.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRequestID = "request_id"
	FieldStreamID  = "stream_id"
	FieldEvent     = "event"
	FieldEventID   = "event_id"
	FieldChannel   = "channel"
	FieldReason    = "reason"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// F is a set of structured fields attached to one log line.
type F map[string]interface{}

// With sets key and returns f for chaining.
func (f F) With(key string, value interface{}) F {
	f[key] = value
	return f
}

// Fields pairs up alternating keys and values. Non-string keys and a
// trailing odd value are dropped.
//
//	log.Info("sent", logger.Fields(logger.FieldEvent, "clock", logger.FieldEventID, 42))
func Fields(kvs ...interface{}) F {
	f := make(F, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			f[key] = kvs[i+1]
		}
	}
	return f
}

func ErrorFields(op string, err error) F {
	return F{FieldOperation: op, FieldError: err.Error()}
}

func DurationFields(op string, d time.Duration) F {
	return F{FieldOperation: op, FieldDuration: d.Milliseconds()}
}
