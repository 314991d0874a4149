package statsclient

import (
	"context"

	"golang.org/x/time/rate"
)

// authLimiter throttles calls to the auth endpoint so a misbehaving upstream
// that rejects every token cannot turn repeated operator retries into a
// login storm.
type authLimiter struct {
	limiter *rate.Limiter
}

// newAuthLimiter allows rps token requests per second with a burst of 2,
// enough for one acquisition plus the re-acquisition after a 401.
// rps <= 0 disables throttling.
func newAuthLimiter(rps float64) *authLimiter {
	if rps <= 0 {
		return &authLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &authLimiter{limiter: rate.NewLimiter(rate.Limit(rps), 2)}
}

// Wait blocks until the next token request is allowed.
func (l *authLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
