package scraper

import "time"

// Backoff throttles request cadence in response to blocked URLs. With no
// consecutive blocks the delay is the normal inter-request delay; after n
// consecutive blocks it is min(base*2^(n-1), max) plus jitter.
type Backoff struct {
	normal time.Duration
	base   time.Duration
	max    time.Duration
	jitter float64

	consecutive int
}

// NewBackoff returns a Backoff in the normal state.
func NewBackoff(normal, base, max time.Duration, jitter float64) *Backoff {
	return &Backoff{normal: normal, base: base, max: max, jitter: jitter}
}

// OnBlock escalates after a blocked URL.
func (b *Backoff) OnBlock() {
	b.consecutive++
}

// OnSuccess returns to the normal state.
func (b *Backoff) OnSuccess() {
	b.consecutive = 0
}

// Consecutive is the current run of blocked URLs.
func (b *Backoff) Consecutive() int {
	return b.consecutive
}

// Base is the delay before jitter.
func (b *Backoff) Base() time.Duration {
	if b.consecutive == 0 {
		return b.normal
	}
	d := b.base
	for i := 1; i < b.consecutive && d < b.max; i++ {
		d *= 2
	}
	if d > b.max {
		d = b.max
	}
	return d
}

// Delay applies jitter to Base. r is a uniform sample in [-1, 1); the normal
// delay is never jittered.
func (b *Backoff) Delay(r float64) time.Duration {
	base := b.Base()
	if b.consecutive == 0 || b.jitter == 0 {
		return base
	}
	return base + time.Duration(float64(base)*b.jitter*r)
}
