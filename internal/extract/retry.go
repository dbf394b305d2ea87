package extract

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bid-compare/pkg/anthropic"
)

// backoff controls retries of API calls with exponential backoff and jitter.
type backoff struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Jitter      float64
}

func defaultBackoff(maxAttempts int) backoff {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return backoff{
		MaxAttempts: maxAttempts,
		Initial:     time.Second,
		Max:         30 * time.Second,
		Jitter:      0.25,
	}
}

func (b backoff) delay(attempt int) time.Duration {
	d := float64(b.Initial) * math.Pow(2, float64(attempt))
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// retryable reports whether an API error is worth another attempt.
func retryable(err error) bool {
	if anthropic.IsRateLimited(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// withRetry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done.
func withRetry[T any](ctx context.Context, b backoff, doc string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < b.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt >= b.MaxAttempts-1 {
			break
		}

		zap.L().Warn("extract: retrying request",
			zap.String("document", doc),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}
