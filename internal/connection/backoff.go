package connection

import (
	"math"
	"time"
)

// Backoff computes reconnect delays: min(Base * Multiplier^attempt, Max).
// There is no attempt limit; reconnection continues for as long as a
// credential is present.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff is 1s doubling up to 30s.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:       1 * time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
	}
}

// Delay returns the wait before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(b.Base) * math.Pow(mult, float64(attempt))
	if math.IsInf(d, 0) || d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}
