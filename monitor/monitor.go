// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor drives the environmental monitor: it samples the
// temperature and humidity sensor, colors the indicator light by temperature
// and lets two switches briefly override the color with a confirmation tone.
//
// Everything happens in a single loop calling Step. The switches only raise
// flags from their own goroutines, see Switches.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
)

// ErrSensorRead wraps every failed sample.
var ErrSensorRead = errors.New("monitor: sensor read failed")

// Sensor measures temperature and relative humidity.
type Sensor interface {
	Sense(e *physic.Env) error
}

// Indicator shows a color.
type Indicator interface {
	Set(c color.NRGBA) error
}

// Buzzer plays a tone for a duration without blocking.
type Buzzer interface {
	Tone(f physic.Frequency, d time.Duration) error
}

// Reading is the last valid sample.
type Reading struct {
	// Temperature in °C.
	Temperature float64
	// Humidity in %RH.
	Humidity float64
	At       time.Time
}

func readingFromEnv(e *physic.Env, at time.Time) Reading {
	return Reading{
		Temperature: e.Temperature.Celsius(),
		Humidity:    float64(e.Humidity) / float64(physic.PercentRH),
		At:          at,
	}
}

// Tone is a buzzer feedback.
type Tone struct {
	Frequency physic.Frequency
	Duration  time.Duration
}

// Feedback tones.
var (
	ToneLeft     = Tone{1500 * physic.Hertz, 100 * time.Millisecond}
	ToneRight    = Tone{2000 * physic.Hertz, 100 * time.Millisecond}
	ToneError    = Tone{1000 * physic.Hertz, 200 * time.Millisecond}
	ToneStartup1 = Tone{2000 * physic.Hertz, 100 * time.Millisecond}
	ToneStartup2 = Tone{2500 * physic.Hertz, 100 * time.Millisecond}
)

// Opts holds the monitor timing and thresholds. Zero durations use the
// DefaultOpts value, so a zero Debounce means 50ms, not no debounce.
type Opts struct {
	// SampleInterval is the minimum time between two sensor reads.
	SampleInterval time.Duration
	// Override is how long a switch color is kept.
	Override time.Duration
	// Debounce is the minimum time between two accepted switch edges.
	Debounce time.Duration
	// LoopInterval is the period of Run.
	LoopInterval time.Duration
	// Hot and Cold are the ambient thresholds in °C. Both zero means
	// DefaultOpts thresholds.
	Hot  float64
	Cold float64

	// Clock defaults to the real clock.
	Clock clockwork.Clock
	// Log defaults to a no-op logger.
	Log *zap.SugaredLogger
}

// DefaultOpts are the recommended options.
var DefaultOpts = Opts{
	SampleInterval: 2 * time.Second,
	Override:       2 * time.Second,
	Debounce:       50 * time.Millisecond,
	LoopInterval:   10 * time.Millisecond,
	Hot:            30,
	Cold:           15,
}

// Monitor owns the loop state. Step and Run must be called from a single
// goroutine; Switches may be triggered from any.
type Monitor struct {
	sensor Sensor
	light  Indicator
	buzzer Buzzer
	opts   Opts
	clock  clockwork.Clock
	log    *zap.SugaredLogger

	switches *Switches
	sampling *Cooldown
	override *Window
	ready    atomic.Bool

	reading    Reading
	hasReading bool
	failures   int
	// shown is the last color written successfully, to skip identical writes.
	shown   color.NRGBA
	isShown bool
}

// New returns a monitor using the given devices. It does nothing until
// Startup completes.
func New(sensor Sensor, light Indicator, buzzer Buzzer, opts *Opts) *Monitor {
	o := DefaultOpts
	if opts != nil {
		o = *opts
		if o.SampleInterval == 0 {
			o.SampleInterval = DefaultOpts.SampleInterval
		}
		if o.Override == 0 {
			o.Override = DefaultOpts.Override
		}
		if o.Debounce == 0 {
			o.Debounce = DefaultOpts.Debounce
		}
		if o.LoopInterval == 0 {
			o.LoopInterval = DefaultOpts.LoopInterval
		}
		if o.Hot == 0 && o.Cold == 0 {
			o.Hot, o.Cold = DefaultOpts.Hot, DefaultOpts.Cold
		}
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Log == nil {
		o.Log = zap.NewNop().Sugar()
	}
	return &Monitor{
		sensor:   sensor,
		light:    light,
		buzzer:   buzzer,
		opts:     o,
		clock:    o.Clock,
		log:      o.Log,
		switches: NewSwitches(o.Clock, o.Debounce),
		sampling: NewCooldown(o.Clock, o.SampleInterval),
		override: NewWindow(o.Clock, o.Override),
	}
}

// Switches returns the switch flags to feed from the edge watchers.
func (m *Monitor) Switches() *Switches {
	return m.switches
}

// Ready reports whether Startup completed.
func (m *Monitor) Ready() bool {
	return m.ready.Load()
}

// Reading returns the last valid sample, false before the first one.
func (m *Monitor) Reading() (Reading, bool) {
	return m.reading, m.hasReading
}

// Failures returns the number of failed samples.
func (m *Monitor) Failures() int {
	return m.failures
}

// Startup lights white, plays the two startup tones and turns the light off.
// The loop starts doing work once it returns nil.
func (m *Monitor) Startup(ctx context.Context) error {
	m.show(White)
	m.tone(ToneStartup1)
	if err := m.sleep(ctx, 200*time.Millisecond); err != nil {
		return err
	}
	m.tone(ToneStartup2)
	if err := m.sleep(ctx, 100*time.Millisecond); err != nil {
		return err
	}
	m.show(Off)
	m.log.Infow("system initialized",
		"sample_interval", m.opts.SampleInterval,
		"override", m.opts.Override,
		"hot", m.opts.Hot,
		"cold", m.opts.Cold)
	m.ready.Store(true)
	return nil
}

// Step runs one loop iteration: sample when due, consume a pending switch,
// expire the override and otherwise show the ambient color.
func (m *Monitor) Step() {
	if !m.ready.Load() {
		return
	}
	m.sample()
	if side, ok := m.switches.Take(); ok {
		m.press(side)
	}
	if m.override.Expired() {
		m.override.Close()
		m.show(Off)
		return
	}
	if !m.override.IsOpen() {
		m.show(AmbientColor(m.reading.Temperature, m.opts.Hot, m.opts.Cold))
	}
}

// Run calls Startup then Step every LoopInterval until ctx is done. The light
// and buzzer are turned off on return.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.shutdown()
	if err := m.Startup(ctx); err != nil {
		return err
	}
	t := m.clock.NewTicker(m.opts.LoopInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Chan():
			m.Step()
		}
	}
}

func (m *Monitor) sample() {
	if !m.sampling.Ready() {
		return
	}
	m.sampling.Mark()
	var e physic.Env
	// physic units are integers and can't hold NaN: drivers report a bad
	// frame as an error.
	if err := m.sensor.Sense(&e); err != nil {
		m.failures++
		m.log.Errorw("failed to read sensor", "err", fmt.Errorf("%w: %w", ErrSensorRead, err), "failures", m.failures)
		m.show(Red)
		m.tone(ToneError)
		return
	}
	r := readingFromEnv(&e, m.clock.Now())
	m.reading = r
	m.hasReading = true
	m.log.Infow("reading",
		"temperature", fmt.Sprintf("%.1f°C", r.Temperature),
		"humidity", fmt.Sprintf("%.1f%%", r.Humidity))
}

func (m *Monitor) press(side Side) {
	c, t, name := Pink, ToneLeft, "pink"
	if side == Right {
		c, t, name = Cyan, ToneRight, "cyan"
	}
	m.override.Open()
	m.show(c)
	m.tone(t)
	m.log.Infow("switch pressed", "switch", side, "color", name, "for", m.opts.Override)
}

func (m *Monitor) show(c color.NRGBA) {
	if m.isShown && m.shown == c {
		return
	}
	if err := m.light.Set(c); err != nil {
		m.isShown = false
		m.log.Warnw("failed to set indicator", "color", c, "err", err)
		return
	}
	m.shown, m.isShown = c, true
}

func (m *Monitor) tone(t Tone) {
	if err := m.buzzer.Tone(t.Frequency, t.Duration); err != nil {
		m.log.Warnw("failed to play tone", "frequency", t.Frequency, "err", err)
	}
}

func (m *Monitor) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.clock.After(d):
		return nil
	}
}

func (m *Monitor) shutdown() {
	m.ready.Store(false)
	if err := m.light.Set(Off); err != nil {
		m.log.Warnw("failed to turn off indicator", "err", err)
	}
	if err := m.buzzer.Tone(0, 0); err != nil {
		m.log.Warnw("failed to silence buzzer", "err", err)
	}
	m.isShown = false
}
