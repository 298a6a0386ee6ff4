package notify

import "time"

const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
)

// backoff returns the delay before the given retry attempt (1-based),
// doubling from backoffBase up to backoffCap.
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	if d > backoffCap {
		return backoffCap
	}
	return d
}
