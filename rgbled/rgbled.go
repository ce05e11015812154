// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rgbled drives a single tri-color indicator LED.
//
// Three backends are provided: Dev drives one GPIO pin per color with PWM,
// PCA9633 drives the LED through an NXP PCA9633 I²C controller, and Console
// emulates the LED with an ANSI colored block on the terminal. All of them
// take a color.NRGBA; the alpha channel is ignored.
package rgbled

import (
	"errors"
	"fmt"
	"image/color"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Setter is implemented by every backend.
type Setter interface {
	conn.Resource
	// Set displays c. It replaces all three channels at once.
	Set(c color.NRGBA) error
}

// Opts represents the options for a PWM driven LED.
type Opts struct {
	// Frequency is the PWM frequency. Default is 5kHz.
	Frequency physic.Frequency
	// Invert must be set for common-anode LEDs, where a low pin lights the
	// color.
	Invert bool
}

// DefaultOpts holds the default options for a PWM driven LED.
var DefaultOpts = Opts{Frequency: 5 * physic.KiloHertz}

// Dev is an RGB LED with each color on its own PWM capable pin.
type Dev struct {
	pins [3]gpio.PinOut
	opts Opts

	mu      sync.Mutex
	current color.NRGBA
}

// New returns a Dev using the three pins, and turns the LED off. The Opts can
// be nil.
func New(red, green, blue gpio.PinOut, opts *Opts) (*Dev, error) {
	if red == nil || green == nil || blue == nil {
		return nil, errors.New("rgbled: missing pin")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{pins: [3]gpio.PinOut{red, green, blue}, opts: *opts}
	if d.opts.Frequency <= 0 {
		d.opts.Frequency = DefaultOpts.Frequency
	}
	return d, d.Set(color.NRGBA{})
}

// Set implements Setter. A channel at 0 or 255 is driven as a plain level,
// anything in between is PWMd.
func (d *Dev) Set(c color.NRGBA) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range [3]uint8{c.R, c.G, c.B} {
		if err := d.out(d.pins[i], v); err != nil {
			return fmt.Errorf("rgbled: %s: %w", d.pins[i], err)
		}
	}
	d.current = c
	return nil
}

func (d *Dev) out(p gpio.PinOut, v uint8) error {
	if d.opts.Invert {
		v = 0xff - v
	}
	switch v {
	case 0:
		return p.Out(gpio.Low)
	case 0xff:
		return p.Out(gpio.High)
	default:
		return p.PWM(intensityToDuty(v), d.opts.Frequency)
	}
}

// intensityToDuty maps an 8 bit intensity onto the full duty range.
func intensityToDuty(v uint8) gpio.Duty {
	return gpio.Duty(int64(v) * int64(gpio.DutyMax) / 0xff)
}

// Color returns the last color set.
func (d *Dev) Color() color.NRGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Halt turns the LED off. Implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Set(color.NRGBA{})
}

func (d *Dev) String() string {
	return fmt.Sprintf("rgbled{%s, %s, %s}", d.pins[0], d.pins[1], d.pins[2])
}

var _ Setter = &Dev{}
