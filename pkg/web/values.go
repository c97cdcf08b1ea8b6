package web

import (
	"context"
	"time"
)

type ctxKey int

const (
	valuesKey ctxKey = iota + 1
)

// Values represent state for each request.
type Values struct {
	TraceID    string
	Now        time.Time
	StatusCode int
}

func setValues(ctx context.Context, v *Values) context.Context {
	if v.Now.IsZero() {
		v.Now = time.Now().UTC()
	}
	return context.WithValue(ctx, valuesKey, v)
}

// GetValues returns the values from the context. A context that did not come
// through an App gets a throwaway value so callers never nil check.
func GetValues(ctx context.Context) *Values {
	v, ok := ctx.Value(valuesKey).(*Values)
	if !ok {
		return &Values{
			TraceID: "00000000-0000-0000-0000-000000000000",
			Now:     time.Now(),
		}
	}
	return v
}

// GetTraceID returns the trace id from the context.
func GetTraceID(ctx context.Context) string {
	return GetValues(ctx).TraceID
}

func setStatusCode(ctx context.Context, statusCode int) {
	if v, ok := ctx.Value(valuesKey).(*Values); ok {
		v.StatusCode = statusCode
	}
}
