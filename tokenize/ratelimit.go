package tokenize

import (
	"context"

	"golang.org/x/time/rate"

	"furiganafmt/model"
)

// Conversion is the capability Converter provides.
type Conversion interface {
	Convert(ctx context.Context, text string, opts model.ConvertOptions) (string, error)
}

// RateLimited throttles calls into another Conversion.
type RateLimited struct {
	next    Conversion
	limiter *rate.Limiter
}

// WithRateLimit wraps next so it is called at most perSecond times a second.
// A non-positive rate returns next unchanged.
func WithRateLimit(next Conversion, perSecond float64, burst int) Conversion {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Convert waits for the limiter, then delegates.
func (r *RateLimited) Convert(ctx context.Context, text string, opts model.ConvertOptions) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.next.Convert(ctx, text, opts)
}
