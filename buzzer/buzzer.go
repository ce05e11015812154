// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package buzzer plays tones on a passive piezo buzzer connected to a PWM
// capable GPIO pin.
//
// Tones don't block: Tone starts the square wave and arms a timer that
// silences the pin once the duration elapsed. Starting a tone while another
// one is playing replaces it.
package buzzer

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Dev is a piezo buzzer.
type Dev struct {
	pin   gpio.PinOut
	clock clockwork.Clock

	mu      sync.Mutex
	timer   clockwork.Timer
	playing physic.Frequency
	// gen identifies the current tone so a stale timer doesn't silence a
	// newer one.
	gen uint64
}

// New returns a silent buzzer on pin. A nil clock uses the real time.
func New(pin gpio.PinOut, clock clockwork.Clock) (*Dev, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	d := &Dev{pin: pin, clock: clock}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("buzzer: %w", err)
	}
	return d, nil
}

// Tone plays a square wave at f for the duration d. A zero f stops any tone
// in progress. A zero d plays until the next call to Tone or Halt.
func (dev *Dev) Tone(f physic.Frequency, d time.Duration) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.gen++
	if dev.timer != nil {
		dev.timer.Stop()
		dev.timer = nil
	}
	if f <= 0 {
		return dev.silence()
	}
	if err := dev.pin.PWM(gpio.DutyHalf, f); err != nil {
		return fmt.Errorf("buzzer: %w", err)
	}
	dev.playing = f
	if d > 0 {
		gen := dev.gen
		dev.timer = dev.clock.AfterFunc(d, func() {
			dev.mu.Lock()
			defer dev.mu.Unlock()
			if dev.gen == gen {
				_ = dev.silence()
			}
		})
	}
	return nil
}

// silence must be called with mu held.
func (dev *Dev) silence() error {
	dev.playing = 0
	if err := dev.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("buzzer: %w", err)
	}
	return nil
}

// Playing returns the frequency of the tone in progress, or 0.
func (dev *Dev) Playing() physic.Frequency {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.playing
}

// Halt silences the buzzer. Implements conn.Resource.
func (dev *Dev) Halt() error {
	return dev.Tone(0, 0)
}

func (dev *Dev) String() string {
	return fmt.Sprintf("buzzer{%s}", dev.pin)
}

var _ conn.Resource = &Dev{}
