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
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// AM2320Address is the fixed address of the AM2320. The datasheet states
// 0xb8, which is the 8 bit write address.
const AM2320Address uint16 = 0x5c

const (
	am2320ReadRegisters byte = 0x03
	am2320Humidity      byte = 0x00

	am2320MinInterval = 2 * time.Second
)

// AM2320 is the I²C variant of the DHT22.
type AM2320 struct {
	d *i2c.Dev
	// wakeRetries bounds the wake-up writes, which NACK while the sensor
	// leaves sleep mode.
	wakeRetries int
	wakeDelay   time.Duration

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewAM2320 returns an AM2320 on the bus at AM2320Address.
func NewAM2320(b i2c.Bus) *AM2320 {
	return &AM2320{
		d:           &i2c.Dev{Bus: b, Addr: AM2320Address},
		wakeRetries: 5,
		wakeDelay:   100 * time.Millisecond,
	}
}

func (a *AM2320) String() string {
	return fmt.Sprintf("AM2320{%s}", a.d)
}

// crc16 is the Modbus CRC used by the AM2320, computed over everything but
// the two trailing CRC bytes.
func crc16(b []byte) uint16 {
	crc := uint16(0xffff)
	for _, v := range b {
		crc ^= uint16(v)
		for i := 0; i < 8; i++ {
			if crc&0x01 != 0 {
				crc = crc>>1 ^ 0xa001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// readRegisters wakes the sensor and returns count registers from addr.
func (a *AM2320) readRegisters(addr, count byte) ([]byte, error) {
	var err error
	for i := 0; i < a.wakeRetries; i++ {
		if err = a.d.Tx([]byte{0}, nil); err == nil {
			break
		}
		time.Sleep(a.wakeDelay)
	}
	// The reply is {function, count, registers..., crc low, crc high}.
	w := []byte{am2320ReadRegisters, addr, count}
	r := make([]byte, int(count)+4)
	if err = a.d.Tx(w, r); err != nil {
		return nil, fmt.Errorf("dht: am2320: %w", err)
	}
	if r[0] != w[0] || r[1] != count {
		return nil, errors.New("dht: am2320: unexpected reply header")
	}
	n := len(r)
	if crc16(r[:n-2]) != uint16(r[n-2])|uint16(r[n-1])<<8 {
		return nil, ErrChecksum
	}
	return r[2 : 2+count], nil
}

// Sense implements physic.SenseEnv. Don't poll more often than every
// 2 seconds, the sensor self-heats.
func (a *AM2320) Sense(e *physic.Env) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.readRegisters(am2320Humidity, 4)
	if err != nil {
		return err
	}
	e.Pressure = 0
	e.Humidity = physic.RelativeHumidity(tenths(r[0], r[1])) * physic.MilliRH
	e.Temperature = physic.ZeroCelsius + (physic.Celsius/10)*physic.Temperature(tenths(r[2], r[3]))
	return nil
}

// SenseContinuous implements physic.SenseEnv. The minimum interval is
// 2 seconds. Failed reads are skipped. Call Halt() to stop sensing and close
// the channel.
func (a *AM2320) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < am2320MinInterval {
		return nil, fmt.Errorf("dht: am2320: invalid duration. minimum %s", am2320MinInterval)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		return nil, errors.New("dht: am2320: sense continuous already running")
	}
	a.stop = make(chan struct{})
	ch := make(chan physic.Env, 16)
	a.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer a.wg.Done()
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e := physic.Env{}
				if err := a.Sense(&e); err == nil && len(ch) < cap(ch) {
					ch <- e
				}
			}
		}
	}(a.stop)
	return ch, nil
}

// Precision implements physic.SenseEnv.
func (a *AM2320) Precision(e *physic.Env) {
	e.Temperature = physic.Celsius / 10
	e.Pressure = 0
	e.Humidity = physic.MilliRH
}

// Halt stops a running SenseContinuous(). The sensor goes back to sleep on
// its own. Implements conn.Resource.
func (a *AM2320) Halt() error {
	a.mu.Lock()
	stop := a.stop
	a.stop = nil
	a.mu.Unlock()
	if stop != nil {
		close(stop)
		a.wg.Wait()
	}
	return nil
}

var _ conn.Resource = &AM2320{}
var _ physic.SenseEnv = &AM2320{}
