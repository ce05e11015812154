// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"
	"periph.io/x/conn/v3/gpio"
)

// Side identifies one of the two switches.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// edgePoll bounds how long a watcher waits for an edge before checking for
// cancellation.
const edgePoll = 100 * time.Millisecond

// Switches holds the flags raised by the switch edges until the loop
// consumes them. Trigger is safe to call from any goroutine; Take belongs to
// the loop.
type Switches struct {
	clock    clockwork.Clock
	debounce time.Duration

	left  atomic.Bool
	right atomic.Bool
	// last is the UnixNano time of the last accepted edge on either switch,
	// 0 before the first one.
	last atomic.Int64
}

// NewSwitches returns Switches ignoring edges closer than debounce to the
// previously accepted one.
func NewSwitches(clock clockwork.Clock, debounce time.Duration) *Switches {
	return &Switches{clock: clock, debounce: debounce}
}

// Trigger records an edge on side. It returns false when the edge was
// dropped by the debounce.
func (s *Switches) Trigger(side Side) bool {
	now := s.clock.Now().UnixNano()
	prev := s.last.Load()
	if prev != 0 && time.Duration(now-prev) <= s.debounce {
		return false
	}
	// Losing the race means the other switch was just accepted.
	if !s.last.CompareAndSwap(prev, now) {
		return false
	}
	if side == Left {
		s.left.Store(true)
	} else {
		s.right.Store(true)
	}
	return true
}

// Take returns the pending switch and clears both flags. Left wins when both
// are set.
func (s *Switches) Take() (Side, bool) {
	left := s.left.Swap(false)
	right := s.right.Swap(false)
	switch {
	case left:
		return Left, true
	case right:
		return Right, true
	default:
		return Left, false
	}
}

// Watch configures pin for rising edges with the given pull and calls
// Trigger for every edge until ctx is done. Edge detection is disabled on
// return.
func (s *Switches) Watch(ctx context.Context, side Side, pin gpio.PinIn, pull gpio.Pull) error {
	if err := pin.In(pull, gpio.RisingEdge); err != nil {
		return fmt.Errorf("monitor: %s switch %s: %w", side, pin, err)
	}
	for {
		select {
		case <-ctx.Done():
			return pin.In(gpio.PullNoChange, gpio.NoEdge)
		default:
		}
		if pin.WaitForEdge(edgePoll) {
			s.Trigger(side)
		}
	}
}
