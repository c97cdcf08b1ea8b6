package mid

import (
	"context"
	"net/http"

	"github.com/ahrav/handyhire/internal/api/errs"
	"github.com/ahrav/handyhire/pkg/web"
)

// Limiter reports whether a request may proceed right now.
type Limiter interface {
	Allow() bool
}

// RateLimit sheds requests beyond the limiter's budget with a 429.
func RateLimit(limiter Limiter) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			if limiter != nil && !limiter.Allow() {
				return errs.Newf(errs.ResourceExhausted, "rate limit exceeded, retry shortly")
			}
			return next(ctx, r)
		}

		return h
	}

	return m
}
