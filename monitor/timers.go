// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Cooldown rate limits an action to once per period.
type Cooldown struct {
	clock  clockwork.Clock
	period time.Duration
	last   time.Time
}

// NewCooldown returns a Cooldown that is immediately ready.
func NewCooldown(clock clockwork.Clock, period time.Duration) *Cooldown {
	return &Cooldown{clock: clock, period: period}
}

// Ready reports whether period elapsed since the last Mark, or Mark was
// never called.
func (c *Cooldown) Ready() bool {
	return c.last.IsZero() || c.clock.Since(c.last) >= c.period
}

// Mark restarts the period.
func (c *Cooldown) Mark() {
	c.last = c.clock.Now()
}

// Window is a fixed length period started on demand. Once it has run out it
// stays expired until closed.
type Window struct {
	clock  clockwork.Clock
	length time.Duration
	start  time.Time
}

// NewWindow returns a closed Window.
func NewWindow(clock clockwork.Clock, length time.Duration) *Window {
	return &Window{clock: clock, length: length}
}

// Open starts the window now, restarting it if already open.
func (w *Window) Open() {
	w.start = w.clock.Now()
}

// Close closes the window.
func (w *Window) Close() {
	w.start = time.Time{}
}

// IsOpen is true from Open until Close, including once expired.
func (w *Window) IsOpen() bool {
	return !w.start.IsZero()
}

// Active is true while the window is open and not older than its length.
func (w *Window) Active() bool {
	return w.IsOpen() && w.clock.Since(w.start) <= w.length
}

// Expired is true once an open window is older than its length.
func (w *Window) Expired() bool {
	return w.IsOpen() && w.clock.Since(w.start) > w.length
}
