package syncqueue

import "time"

// Backoff returns the delay before an entry that has failed retryCount times
// is retried: 2^retryCount * base, capped at ceiling.
func Backoff(retryCount int, base, ceiling time.Duration) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	// Past 2^20 the cap always wins; avoid shifting into overflow.
	if retryCount > 20 {
		return ceiling
	}
	d := base * time.Duration(int64(1)<<uint(retryCount))
	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}
