// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code injects
// Real(); tests inject Fake() and advance time deterministically.
//
// The signaling poll loop and the negotiation timeout are both driven
// through this interface, so their behavior under races (a tick firing
// while a poll is in flight, a timeout firing after teardown) can be
// exercised without wall-clock sleeps.
package clock

import "time"

// Clock is the time source used by every component that schedules work.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once duration d has elapsed.
	After(d time.Duration) <-chan time.Time

	// AfterFunc waits for duration d, then calls f in its own goroutine
	// (real clock) or synchronously during Advance (fake clock). The
	// returned Timer can cancel the pending call with Stop.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker delivers ticks on C at the given interval. Panics if
	// d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. The C channel has capacity 1, matching
// time.Ticker: if the consumer falls behind, ticks are dropped.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. No more ticks arrive on C after Stop
// returns. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Timer is a scheduled one-shot event created by AfterFunc. Its C field
// is always nil, matching time.AfterFunc.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the timer from firing. Returns true if the call stopped
// the timer, false if it had already fired or been stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }
