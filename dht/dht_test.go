// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

// frameToPulses synthesizes what capture() records for a well formed frame.
func frameToPulses(frame [5]byte) []pulse {
	p := []pulse{
		{gpio.High, 30 * time.Microsecond},
		{gpio.Low, 80 * time.Microsecond},
		{gpio.High, 80 * time.Microsecond},
	}
	for _, b := range frame {
		for bit := 7; bit >= 0; bit-- {
			p = append(p, pulse{gpio.Low, 50 * time.Microsecond})
			if b&(1<<bit) != 0 {
				p = append(p, pulse{gpio.High, 70 * time.Microsecond})
			} else {
				p = append(p, pulse{gpio.High, 27 * time.Microsecond})
			}
		}
	}
	return append(p, pulse{gpio.Low, 50 * time.Microsecond}, pulse{gpio.High, pulseTimeout + time.Microsecond})
}

func TestDecode(t *testing.T) {
	frames := [][5]byte{
		{0x02, 0x8c, 0x01, 0x5f, 0xee},
		{0x00, 0x00, 0x00, 0x00, 0x00},
		{0xff, 0xff, 0xff, 0xff, 0xfc},
		{0x01, 0x5c, 0x80, 0x65, 0x42},
	}
	for _, want := range frames {
		got, err := decode(frameToPulses(want))
		if err != nil {
			t.Errorf("decode(%#v): %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("decode() = %#v, expected %#v", got, want)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	full := frameToPulses([5]byte{0x02, 0x8c, 0x01, 0x5f, 0xee})
	tests := []struct {
		name   string
		pulses []pulse
		err    error
	}{
		{"no answer", []pulse{{gpio.High, pulseTimeout + time.Microsecond}}, ErrTimeout},
		{"empty", nil, ErrTimeout},
		{"stalled mid frame", append(append([]pulse{}, full[:20]...), pulse{gpio.Low, pulseTimeout + time.Microsecond}), ErrTimeout},
		{"truncated", full[:41], ErrShortRead},
	}
	for _, test := range tests {
		if _, err := decode(test.pulses); !errors.Is(err, test.err) {
			t.Errorf("%s: got %v, expected %v", test.name, err, test.err)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		model Model
		frame [5]byte
		temp  physic.Temperature
		rh    physic.RelativeHumidity
	}{
		// 65.2%, 35.1°C
		{DHT22, [5]byte{0x02, 0x8c, 0x01, 0x5f, 0xee}, physic.ZeroCelsius + 35_100*physic.MilliKelvin, 65*physic.PercentRH + 2*physic.MilliRH},
		// 34.8%, -10.1°C
		{DHT22, [5]byte{0x01, 0x5c, 0x80, 0x65, 0x42}, physic.ZeroCelsius - 10_100*physic.MilliKelvin, 34*physic.PercentRH + 8*physic.MilliRH},
		// 45.0%, 23.4°C
		{DHT11, [5]byte{45, 0, 23, 4, 72}, physic.ZeroCelsius + 23_400*physic.MilliKelvin, 45 * physic.PercentRH},
		// 30.0%, -2.5°C
		{DHT11, [5]byte{30, 0, 2, 0x85, 0xa5}, physic.ZeroCelsius - 2_500*physic.MilliKelvin, 30 * physic.PercentRH},
	}
	for _, test := range tests {
		e := physic.Env{}
		if err := parse(test.model, test.frame, &e); err != nil {
			t.Errorf("%s %#v: %v", test.model, test.frame, err)
			continue
		}
		if e.Temperature != test.temp {
			t.Errorf("%s temperature %s(%d) != %s(%d)", test.model, e.Temperature, e.Temperature, test.temp, test.temp)
		}
		if e.Humidity != test.rh {
			t.Errorf("%s humidity %s(%d) != %s(%d)", test.model, e.Humidity, e.Humidity, test.rh, test.rh)
		}
	}
}

func TestParseChecksum(t *testing.T) {
	e := physic.Env{Temperature: physic.ZeroCelsius}
	err := parse(DHT22, [5]byte{0x02, 0x8c, 0x01, 0x5f, 0xef}, &e)
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
	if e.Temperature != physic.ZeroCelsius {
		t.Error("corrupt frame modified the reading")
	}
}

func TestSenseNoSensor(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO4", Num: 4}
	d, err := New(pin, DHT22, &Opts{Retries: 0})
	if err != nil {
		t.Fatal(err)
	}
	if pin.P != gpio.PullUp {
		t.Errorf("pin pull %s, expected %s", pin.P, gpio.PullUp)
	}
	e := physic.Env{}
	if err := d.Sense(&e); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if err := d.Halt(); err != nil {
		t.Error(err)
	}
}

func TestBasic(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO4", Num: 4}
	if _, err := New(pin, Model(7), nil); err == nil {
		t.Error("New() accepted an unknown model")
	}
	d, err := New(pin, DHT11, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s := d.String(); len(s) == 0 {
		t.Error("invalid value for String()")
	}
	env := &physic.Env{}
	d.Precision(env)
	if env.Temperature != physic.Celsius || env.Humidity != physic.PercentRH {
		t.Errorf("incorrect DHT11 precision %s %s", env.Temperature, env.Humidity)
	}
	if _, err := d.SenseContinuous(500 * time.Millisecond); err == nil {
		t.Error("SenseContinuous() accepted invalid reading interval")
	}
	if DHT22.MinInterval() != 2*time.Second {
		t.Errorf("DHT22 minimum interval %s", DHT22.MinInterval())
	}
}

func TestTenths(t *testing.T) {
	tests := []struct {
		hi, lo byte
		want   int
	}{
		{0x00, 0xef, 239},
		{0x01, 0x5c, 348},
		{0x80, 0x65, -101},
		{0x80, 0x00, 0},
	}
	for _, test := range tests {
		if got := tenths(test.hi, test.lo); got != test.want {
			t.Errorf("tenths(%#x, %#x) = %d, expected %d", test.hi, test.lo, got, test.want)
		}
	}
}
