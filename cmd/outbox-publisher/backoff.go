package main

import (
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// backoff doubles from base up to max after each failure. Every delay
// gets up to jitterWindow added so idle publishers do not poll in step.
type backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
	jitter  func(n int64) int64
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max, current: base, jitter: rand.Int64N}
}

// Next returns the delay after a failure and advances the backoff.
func (b *backoff) Next() time.Duration {
	if b.current <= 0 {
		b.current = b.base
	}
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return b.withJitter(b.current)
}

// Idle returns the delay after an empty poll.
func (b *backoff) Idle() time.Duration {
	return b.withJitter(b.base)
}

func (b *backoff) Reset() {
	b.current = b.base
}

func (b *backoff) withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(b.jitter(int64(jitterWindow)))
}
