// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rgbled

import (
	"fmt"
	"image/color"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

// PCA9633DefaultAddress is the address with all address pins low.
const PCA9633DefaultAddress uint16 = 0x62

type ledMode byte

const (
	modeOff ledMode = iota
	modeOn
	modePWM
)

const (
	// Register offsets from the datasheet.
	regMode1  byte = 0x00
	regMode2  byte = 0x01
	regPWM0   byte = 0x02
	regLEDOut byte = 0x08

	// Auto-increment and ALLCALL. SLEEP (bit 4) clear starts the oscillator.
	mode1Default byte = 0x81
	// Open-drain outputs, off when OE is high.
	mode2Default byte = 0x01
	mode2Totem   byte = 0x04
	mode2Invert  byte = 0x10
)

// PCA9633Opts represents the options for an LED behind a PCA9633. The red,
// green and blue cathodes are expected on LED0, LED1 and LED2.
type PCA9633Opts struct {
	Address uint16
	// TotemPole selects push-pull outputs instead of open drain, for LEDs
	// driven through a transistor.
	TotemPole bool
	// Invert inverts the output logic.
	Invert bool
}

// PCA9633 is an RGB LED driven by an NXP PCA9633 four-channel controller.
//
// Datasheet: https://www.nxp.com/docs/en/data-sheet/PCA9633.pdf
type PCA9633 struct {
	d *i2c.Dev

	mu    sync.Mutex
	modes [4]ledMode
}

// NewPCA9633 initializes the controller and turns the LED off. The opts can
// be nil.
func NewPCA9633(bus i2c.Bus, opts *PCA9633Opts) (*PCA9633, error) {
	if opts == nil {
		opts = &PCA9633Opts{}
	}
	addr := opts.Address
	if addr == 0 {
		addr = PCA9633DefaultAddress
	}
	mode2 := mode2Default
	if opts.TotemPole {
		mode2 |= mode2Totem
	}
	if opts.Invert {
		mode2 |= mode2Invert
	}
	dev := &PCA9633{d: &i2c.Dev{Bus: bus, Addr: addr}}
	if err := dev.d.Tx([]byte{regMode1, mode1Default}, nil); err != nil {
		return nil, pcaWrap(err)
	}
	if err := dev.d.Tx([]byte{regMode2, mode2}, nil); err != nil {
		return nil, pcaWrap(err)
	}
	// Force the first LEDOUT write.
	dev.modes = [4]ledMode{modeOn, modeOn, modeOn, modeOn}
	return dev, dev.Set(color.NRGBA{})
}

func pcaWrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("rgbled: pca9633: %w", err)
}

// Set implements Setter. Channels at 0 are switched fully off and channels
// at 255 fully on; PWM registers are only written for values in between.
func (dev *PCA9633) Set(c color.NRGBA) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	modes := dev.modes
	for i, v := range [3]uint8{c.R, c.G, c.B} {
		switch v {
		case 0:
			modes[i] = modeOff
		case 0xff:
			modes[i] = modeOn
		default:
			modes[i] = modePWM
			if err := dev.d.Tx([]byte{regPWM0 + byte(i), v}, nil); err != nil {
				return pcaWrap(err)
			}
		}
	}
	// LED3 is unused.
	modes[3] = modeOff
	return dev.setModes(modes)
}

// setModes writes LEDOUT if any channel mode changed.
func (dev *PCA9633) setModes(modes [4]ledMode) error {
	if modes == dev.modes {
		return nil
	}
	var out byte
	for i, m := range modes {
		out |= byte(m) << (i * 2)
	}
	if err := dev.d.Tx([]byte{regLEDOut, out}, nil); err != nil {
		return pcaWrap(err)
	}
	dev.modes = modes
	return nil
}

// Halt turns the LED off. Implements conn.Resource.
func (dev *PCA9633) Halt() error {
	return dev.Set(color.NRGBA{})
}

func (dev *PCA9633) String() string {
	return fmt.Sprintf("PCA9633{%s}", dev.d)
}

var _ Setter = &PCA9633{}
