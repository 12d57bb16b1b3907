package conn

import (
	"math/rand"
	"time"
)

// nextBackoff returns the delay before reconnection attempt number attempt
// (zero-based). Delays double from min up to max with up to 20% jitter so
// reconnecting clients do not stampede the backend in lockstep.
func nextBackoff(attempt int, min, max time.Duration) time.Duration {
	if min <= 0 {
		min = time.Second
	}
	if max < min {
		max = min
	}

	delay := min
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/5 + 1))
	return delay + jitter
}
