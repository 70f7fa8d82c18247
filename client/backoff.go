package client

import (
	"math/rand"
	"time"
)

// Reconnect backoff defaults: capped exponential with jitter. The source
// portal left the reconnection policy unspecified; this is a deliberate
// default, documented rather than inherited.
const (
	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffCap  = 30 * time.Second
	jitterFraction     = 0.25
)

// backoffDelay returns the wait before reconnect attempt n (n >= 1):
// base*2^(n-1), capped, with up to 25% added jitter so a fleet of clients
// does not reconnect in lockstep.
func backoffDelay(base, cap time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = defaultBackoffBase
	}
	if cap <= 0 {
		cap = defaultBackoffCap
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cap {
			d = cap
			break
		}
	}

	jitter := time.Duration(rand.Int63n(int64(float64(d)*jitterFraction) + 1))
	d += jitter
	if d > cap {
		d = cap
	}
	return d
}
