// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Model selects the single-wire sensor variant.
type Model int

const (
	DHT22 Model = iota
	DHT11
)

func (m Model) String() string {
	switch m {
	case DHT22:
		return "DHT22"
	case DHT11:
		return "DHT11"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// startSignal is how long the host holds the line low to request a sample.
func (m Model) startSignal() time.Duration {
	if m == DHT11 {
		return 18 * time.Millisecond
	}
	return 1100 * time.Microsecond
}

// MinInterval is the shortest sampling period supported by the sensor.
func (m Model) MinInterval() time.Duration {
	if m == DHT11 {
		return time.Second
	}
	return 2 * time.Second
}

var (
	// ErrTimeout is returned when the sensor stops answering mid-frame.
	ErrTimeout = errors.New("dht: timeout waiting for sensor")
	// ErrShortRead is returned when fewer than 40 bits were captured.
	ErrShortRead = errors.New("dht: incomplete frame")
	// ErrChecksum is returned when the frame checksum doesn't match.
	ErrChecksum = errors.New("dht: checksum mismatch")
)

const (
	frameBits = 40
	// Maximum time a single level may last before the frame is considered
	// over. The longest legal pulse is the 80µs response.
	pulseTimeout = 200 * time.Microsecond
)

// Opts holds the configuration options for the device.
type Opts struct {
	// Retries is the number of additional attempts Sense makes when a read
	// fails. Default is 2.
	Retries int
	// RetryDelay is the wait between attempts. The sensor needs some rest
	// after an aborted frame. Default is 100ms.
	RetryDelay time.Duration
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	Retries:    2,
	RetryDelay: 100 * time.Millisecond,
}

// Dev is a DHT11 or DHT22 connected to a single GPIO pin.
type Dev struct {
	pin   gpio.PinIO
	model Model
	opts  Opts

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a Dev reading from pin. The pin is left as an input with
// pull-up, which is the idle state of the bus. The Opts can be nil.
func New(pin gpio.PinIO, model Model, opts *Opts) (*Dev, error) {
	if model != DHT22 && model != DHT11 {
		return nil, fmt.Errorf("dht: unknown model %s", model)
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{pin: pin, model: model, opts: *opts}
	if d.opts.Retries < 0 {
		d.opts.Retries = 0
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("dht: %w", err)
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.model, d.pin)
}

// Sense implements physic.SenseEnv. A failed frame is retried up to
// Opts.Retries times before the last error is returned.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	for attempt := 0; attempt <= d.opts.Retries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.opts.RetryDelay)
		}
		var frame [5]byte
		if frame, err = d.read(); err != nil {
			continue
		}
		if err = parse(d.model, frame, e); err == nil {
			return nil
		}
	}
	return err
}

// read sends the start signal and captures one frame.
func (d *Dev) read() ([5]byte, error) {
	if err := d.pin.Out(gpio.Low); err != nil {
		return [5]byte{}, fmt.Errorf("dht: %w", err)
	}
	time.Sleep(d.model.startSignal())
	if err := d.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return [5]byte{}, fmt.Errorf("dht: %w", err)
	}
	return decode(capture(d.pin, 2*frameBits+4))
}

// pulse is a run of a single level on the line.
type pulse struct {
	level gpio.Level
	d     time.Duration
}

// capture busy-polls pin and records up to limit level runs. It stops early
// when a level lasts longer than pulseTimeout.
func capture(pin gpio.PinIn, limit int) []pulse {
	pulses := make([]pulse, 0, limit)
	level := pin.Read()
	start := time.Now()
	for len(pulses) < limit {
		l := pin.Read()
		now := time.Now()
		if l != level {
			pulses = append(pulses, pulse{level, now.Sub(start)})
			level, start = l, now
			continue
		}
		if now.Sub(start) > pulseTimeout {
			pulses = append(pulses, pulse{level, now.Sub(start)})
			break
		}
	}
	return pulses
}

// decode turns captured level runs into the five frame bytes.
//
// The capture starts right after the host released the line, so it may begin
// with the tail of the pull-up high. The sensor response is a low followed
// by a high, then every bit is a low followed by a high whose length carries
// the value: a high longer than its preceding low is a 1.
func decode(pulses []pulse) ([5]byte, error) {
	var frame [5]byte
	i := 0
	for i < len(pulses) && pulses[i].level == gpio.High {
		i++
	}
	// Response low and high.
	if len(pulses)-i < 2 {
		if len(pulses) == 0 || pulses[len(pulses)-1].d > pulseTimeout {
			return frame, ErrTimeout
		}
		return frame, ErrShortRead
	}
	i += 2
	for bit := 0; bit < frameBits; bit++ {
		if i+1 >= len(pulses) {
			if pulses[len(pulses)-1].d > pulseTimeout {
				return frame, ErrTimeout
			}
			return frame, ErrShortRead
		}
		low, high := pulses[i], pulses[i+1]
		if low.d > pulseTimeout || high.d > pulseTimeout {
			return frame, ErrTimeout
		}
		if low.level != gpio.Low || high.level != gpio.High {
			return frame, ErrShortRead
		}
		frame[bit/8] <<= 1
		if high.d > low.d {
			frame[bit/8] |= 1
		}
		i += 2
	}
	return frame, nil
}

// parse validates the checksum and converts the frame to physical units.
func parse(m Model, frame [5]byte, e *physic.Env) error {
	if frame[0]+frame[1]+frame[2]+frame[3] != frame[4] {
		return ErrChecksum
	}
	e.Pressure = 0
	if m == DHT11 {
		// Integral and decimal bytes. Newer parts report negative temperatures
		// with bit 7 of the decimal byte.
		e.Humidity = physic.RelativeHumidity(frame[0])*physic.PercentRH +
			physic.RelativeHumidity(frame[1])*physic.MilliRH
		t := physic.Temperature(frame[2])*physic.Celsius +
			physic.Temperature(frame[3]&0x7f)*(physic.Celsius/10)
		if frame[3]&0x80 != 0 {
			t = -t
		}
		e.Temperature = physic.ZeroCelsius + t
		return nil
	}
	e.Humidity = physic.RelativeHumidity(tenths(frame[0], frame[1])) * physic.MilliRH
	e.Temperature = physic.ZeroCelsius + (physic.Celsius/10)*physic.Temperature(tenths(frame[2], frame[3]))
	return nil
}

// tenths decodes the sign-and-magnitude 16 bit value used by the DHT22 and
// AM2320.
func tenths(hi, lo byte) int {
	v := int(hi&0x7f)<<8 | int(lo)
	if hi&0x80 != 0 {
		return -v
	}
	return v
}

// SenseContinuous implements physic.SenseEnv. Failed reads are skipped. Call
// Halt() to stop sensing and close the channel.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < d.model.MinInterval() {
		return nil, fmt.Errorf("dht: invalid duration. minimum %s", d.model.MinInterval())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("dht: sense continuous already running")
	}
	d.stop = make(chan struct{})
	ch := make(chan physic.Env, 16)
	d.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer d.wg.Done()
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e := physic.Env{}
				if err := d.Sense(&e); err == nil && len(ch) < cap(ch) {
					ch <- e
				}
			}
		}
	}(d.stop)
	return ch, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Pressure = 0
	if d.model == DHT11 {
		e.Temperature = physic.Celsius
		e.Humidity = physic.PercentRH
		return
	}
	e.Temperature = physic.Celsius / 10
	e.Humidity = physic.MilliRH
}

// Halt stops a running SenseContinuous() and leaves the line idle high.
// Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
	return d.pin.In(gpio.PullUp, gpio.NoEdge)
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
