package stream

import (
	"math"
	"time"
)

// backoffMultiplier grows the delay between consecutive failed attempts.
const backoffMultiplier = 1.5

// retryDelay computes the backoff delay before reconnection attempt k
// (k >= 1): base * 1.5^(k-1), capped at max.
func retryDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(base) * math.Pow(backoffMultiplier, float64(attempt-1)))
	if d > max || d < 0 {
		return max
	}
	return d
}
