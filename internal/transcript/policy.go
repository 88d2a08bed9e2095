package transcript

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffFunc returns the delay before the next attempt. attempt is the
// 1-based number of the attempt that just failed.
type BackoffFunc func(attempt int) time.Duration

// Policy bounds how a Fetcher retries the provider.
type Policy struct {
	MaxAttempts int           // total provider attempts, at least 1
	Timeout     time.Duration // per-attempt deadline; 0 disables the race
	Backoff     BackoffFunc   // nil means no delay between attempts
}

// DefaultPolicy makes two attempts of 8s each with capped exponential backoff.
var DefaultPolicy = Policy{
	MaxAttempts: 2,
	Timeout:     8 * time.Second,
	Backoff:     ExponentialBackoff(time.Second, 3*time.Second, 0),
}

// ExponentialBackoff returns base*2^attempt capped at ceiling. jitter in [0,1]
// spreads each delay uniformly by +/- that fraction, and the cap still holds.
func ExponentialBackoff(base, ceiling time.Duration, jitter float64) BackoffFunc {
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		wait := float64(base) * math.Pow(2, float64(attempt))
		if jitter > 0 {
			wait *= 1 + jitter*(2*rand.Float64()-1) //nolint:gosec // non-cryptographic use
		}
		if ceiling > 0 && wait > float64(ceiling) {
			wait = float64(ceiling)
		}
		if wait < 0 {
			wait = 0
		}
		return time.Duration(wait)
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}
