package mid

import (
	"context"
	"net/http"
	"time"

	"github.com/ahrav/handyhire/pkg/web"
)

// RequestMetrics records per request counters.
type RequestMetrics interface {
	IncRequestsTotal(ctx context.Context, method, path string, status int)
	ObserveRequestDuration(ctx context.Context, method, path string, duration time.Duration)
}

// Metrics updates request counters. The route pattern is used as the path
// label so ids in the url do not explode cardinality.
func Metrics(metrics RequestMetrics) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			start := time.Now()
			resp := next(ctx, r)

			if metrics != nil {
				path := r.Pattern
				if path == "" {
					path = r.URL.Path
				}
				metrics.IncRequestsTotal(ctx, r.Method, path, statusOf(resp))
				metrics.ObserveRequestDuration(ctx, r.Method, path, time.Since(start))
			}

			return resp
		}

		return h
	}

	return m
}
