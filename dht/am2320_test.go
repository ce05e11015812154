// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

// Playback values for a single sense operation.
var pbAM2320 = []i2ctest.IO{
	{Addr: AM2320Address, W: []uint8{0x0}},
	{Addr: AM2320Address, W: []uint8{0x3, 0x0, 0x4}, R: []uint8{0x3, 0x4, 0x1, 0x5c, 0x0, 0xef, 0x71, 0x8a}}}

func TestAM2320Sense(t *testing.T) {
	bus := &i2ctest.Playback{Ops: pbAM2320}
	d := NewAM2320(bus)
	e := physic.Env{}
	if err := d.Sense(&e); err != nil {
		t.Fatal(err)
	}
	// 23.9°C and 34.8%.
	if expected := physic.ZeroCelsius + 23_900*physic.MilliKelvin; e.Temperature != expected {
		t.Errorf("incorrect temperature value read. Expected: %s (%d) Found: %s (%d)",
			expected, expected, e.Temperature, e.Temperature)
	}
	if expected := 34*physic.PercentRH + 8*physic.MilliRH; e.Humidity != expected {
		t.Errorf("incorrect humidity value read. Expected: %s (%d) Found: %s (%d)",
			expected, expected, e.Humidity, e.Humidity)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAM2320Corrupt(t *testing.T) {
	ops := []i2ctest.IO{
		pbAM2320[0],
		{Addr: AM2320Address, W: []uint8{0x3, 0x0, 0x4}, R: []uint8{0x3, 0x4, 0x1, 0x5d, 0x0, 0xef, 0x71, 0x8a}},
	}
	d := NewAM2320(&i2ctest.Playback{Ops: ops})
	e := physic.Env{}
	if err := d.Sense(&e); !errors.Is(err, ErrChecksum) {
		t.Errorf("expected ErrChecksum, got %v", err)
	}
}

func TestCRC16(t *testing.T) {
	// Vendor supplied example.
	frame := []byte{0x03, 0x04, 0x01, 0xf4, 0x00, 0xfa, 0x31, 0xa5}
	if got := crc16(frame[:6]); got != 0xa531 {
		t.Errorf("crc16() = %#x, expected 0xa531", got)
	}
	frame[0] ^= 0xff
	if crc16(frame[:6]) == 0xa531 {
		t.Error("corruption not detected")
	}
}

func TestAM2320Basic(t *testing.T) {
	d := NewAM2320(&i2ctest.Playback{})
	env := &physic.Env{}
	d.Precision(env)
	if 10*env.Temperature != physic.Celsius {
		t.Error("incorrect temperature precision value")
	}
	if env.Humidity != physic.MilliRH {
		t.Error("incorrect humidity precision")
	}
	if len(d.String()) == 0 {
		t.Error("invalid value for String()")
	}
	if _, err := d.SenseContinuous(time.Second); err == nil {
		t.Error("SenseContinuous() accepted invalid reading interval")
	}
	if err := d.Halt(); err != nil {
		t.Error(err)
	}
}

func TestAM2320SenseContinuous(t *testing.T) {
	const readCount = 2
	var ops []i2ctest.IO
	for i := 0; i < readCount; i++ {
		ops = append(ops, pbAM2320...)
	}
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
	d := NewAM2320(bus)
	ch, err := d.SenseContinuous(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.SenseContinuous(2 * time.Second); err == nil {
		t.Error("second SenseContinuous() should fail while running")
	}
	expected := physic.ZeroCelsius + 23_900*physic.MilliKelvin
	for i := 0; i < readCount; i++ {
		select {
		case e := <-ch:
			if e.Temperature != expected {
				t.Errorf("reading %d: temperature %s, expected %s", i, e.Temperature, expected)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("reading %d: timed out", i)
		}
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed by Halt()")
	}
	// Restarting after Halt() is allowed.
	ch, err = d.SenseContinuous(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	for range ch {
	}
}
