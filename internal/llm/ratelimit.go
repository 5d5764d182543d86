package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited shares one token bucket across every caller of the wrapped Completer.
type RateLimited struct {
	next    Completer
	limiter *rate.Limiter
}

var _ Completer = (*RateLimited)(nil)

// NewRateLimited allows perMinute calls per minute with a burst of one.
func NewRateLimited(next Completer, perMinute int) *RateLimited {
	if perMinute <= 0 {
		return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *RateLimited) Complete(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for completion slot: %w", err)
	}
	return r.next.Complete(ctx, req)
}
