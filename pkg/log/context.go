package log

import (
	"context"

	"go.uber.org/zap"
)

// Field keys shared by the dispatch components.
const (
	KeyAmbulanceID = "ambulanceID"
	KeyHospitalID  = "hospitalID"
	KeyRequestID   = "requestID"
	KeyTraceID     = "traceID"
)

// Ambulance tags an entry with an ambulance id.
func Ambulance(id int64) zap.Field { return zap.Int64(KeyAmbulanceID, id) }

// Hospital tags an entry with a hospital id.
func Hospital(id int64) zap.Field { return zap.Int64(KeyHospitalID, id) }

// Request tags an entry with an emergency request id.
func Request(id int64) zap.Field { return zap.Int64(KeyRequestID, id) }

// Trace tags an entry with the id of the inbound call that caused it.
func Trace(id string) zap.Field { return zap.String(KeyTraceID, id) }

// OptionalAmbulance tags an entry with id when it is set.
func OptionalAmbulance(id *int64) zap.Field {
	if id == nil {
		return zap.Skip()
	}
	return Ambulance(*id)
}

type fieldsKey struct{}

// IntoContext returns a copy of ctx carrying keysAndValues on top of the
// pairs already attached to it.
func IntoContext(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues) == 0 {
		return ctx
	}
	prev := contextFields(ctx)
	kv := make([]any, 0, len(prev)+len(keysAndValues))
	kv = append(append(kv, prev...), keysAndValues...)
	return context.WithValue(ctx, fieldsKey{}, kv)
}

// FromContext returns l with the pairs attached to ctx. A nil l uses the
// global logger.
func FromContext(ctx context.Context, l Logger) Logger {
	if l == nil {
		l = std
	}
	if kv := contextFields(ctx); len(kv) > 0 {
		return l.WithValues(kv...)
	}
	return l
}

func contextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	kv, _ := ctx.Value(fieldsKey{}).([]any)
	return kv
}
