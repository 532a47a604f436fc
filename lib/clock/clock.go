// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations for testability. Production
// code injects Real(); tests inject Fake() and advance time explicitly.
//
// The session negotiator is the main consumer: its candidate-gathering
// deadline must be exercisable in tests without a fifteen-second wait.
package clock

import "time"

// Clock provides the time operations the session layer depends on.
// Production functions that would call time.Now or time.After should
// accept a Clock (or be methods on a struct carrying one) instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d has elapsed. Equivalent to time.After. If d <= 0,
	// the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}
