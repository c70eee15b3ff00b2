// Package clock supplies wall-clock time to the consensus core behind a
// small interface, the same test-overridable seam tendermint/libs/time
// gives its own callers.
package clock

import "time"

// System is a consensus.Clock backed by the OS clock.
type System struct{}

func (System) UtcNow() time.Time { return time.Now().UTC() }

// Fixed is a consensus.Clock that always returns a fixed instant, advanced
// explicitly by tests.
type Fixed struct {
	now time.Time
}

func NewFixed(now time.Time) *Fixed { return &Fixed{now: now} }

func (f *Fixed) UtcNow() time.Time { return f.now }

func (f *Fixed) Advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *Fixed) Set(t time.Time) { f.now = t }
