// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// envmon samples a DHT22 style sensor and shows the temperature on an RGB
// LED. Two switches briefly override the color with a confirmation tone.
//
// Configuration is read from envmon.yaml and ENVMON_ environment variables,
// see package internal/config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GermanBionicSystems/envmon/buzzer"
	"github.com/GermanBionicSystems/envmon/dht"
	"github.com/GermanBionicSystems/envmon/internal/config"
	"github.com/GermanBionicSystems/envmon/internal/logger"
	"github.com/GermanBionicSystems/envmon/monitor"
	"github.com/GermanBionicSystems/envmon/rgbled"
	"github.com/jonboulle/clockwork"
	"github.com/sanity-io/litter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// device is what gets halted on exit.
type device interface {
	Halt() error
}

type sensor interface {
	monitor.Sensor
	device
}

type indicator interface {
	monitor.Indicator
	device
}

func main() {
	configDir := flag.String("config", "", "directory holding envmon.yaml")
	flag.Parse()

	var paths []string
	if *configDir != "" {
		paths = []string{*configDir}
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "envmon: %s\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()
	log.Debugf("configuration:\n%s", litter.Sdump(cfg))

	if err := mainImpl(&cfg, log); err != nil {
		log.Errorw("exiting", "err", err)
		_ = log.Sync()
		os.Exit(1)
	}
}

func mainImpl(cfg *config.Config, log *zap.SugaredLogger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host: %w", err)
	}

	s, err := openSensor(&cfg.Sensor)
	if err != nil {
		return err
	}
	defer halt(log, s)

	light, err := openIndicator(&cfg.Indicator)
	if err != nil {
		return err
	}
	defer halt(log, light)

	bzPin, err := pin("buzzer.pin", cfg.Buzzer.Pin)
	if err != nil {
		return err
	}
	bz, err := buzzer.New(bzPin, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	defer halt(log, bz)

	left, err := pin("switches.left", cfg.Switches.Left)
	if err != nil {
		return err
	}
	right, err := pin("switches.right", cfg.Switches.Right)
	if err != nil {
		return err
	}

	interval := cfg.Sensor.Interval
	if m, ok := sensorModel(cfg.Sensor.Model); ok && interval < m.MinInterval() {
		log.Warnw("sensor interval too short, raising it", "interval", interval, "min", m.MinInterval())
		interval = m.MinInterval()
	}
	mon := monitor.New(s, light, bz, &monitor.Opts{
		SampleInterval: interval,
		Override:       cfg.Display.Override,
		Debounce:       cfg.Switches.Debounce,
		LoopInterval:   cfg.Loop.Interval,
		Hot:            cfg.Display.Hot,
		Cold:           cfg.Display.Cold,
		Log:            log,
	})
	log.Infow("starting",
		"sensor", s,
		"indicator", light,
		"buzzer", bz,
		"left", left,
		"right", right)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	sw := mon.Switches()
	g.Go(func() error {
		return sw.Watch(ctx, monitor.Left, left, toPull(cfg.Switches.LeftPull))
	})
	g.Go(func() error {
		return sw.Watch(ctx, monitor.Right, right, toPull(cfg.Switches.RightPull))
	})
	g.Go(func() error {
		return mon.Run(ctx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}

func openSensor(c *config.Sensor) (sensor, error) {
	if c.Model == config.ModelAM2320 {
		bus, err := i2creg.Open(c.I2CBus)
		if err != nil {
			return nil, fmt.Errorf("sensor.i2c_bus: %w", err)
		}
		return &closingSensor{AM2320: dht.NewAM2320(bus), closer: bus}, nil
	}
	m, _ := sensorModel(c.Model)
	p, err := pin("sensor.pin", c.Pin)
	if err != nil {
		return nil, err
	}
	opts := dht.DefaultOpts
	opts.Retries = c.Retries
	dev, err := dht.New(p, m, &opts)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func openIndicator(c *config.Indicator) (indicator, error) {
	switch c.Driver {
	case config.DriverPCA9633:
		bus, err := i2creg.Open(c.I2CBus)
		if err != nil {
			return nil, fmt.Errorf("indicator.i2c_bus: %w", err)
		}
		dev, err := rgbled.NewPCA9633(bus, &rgbled.PCA9633Opts{Address: c.Address, Invert: c.Invert})
		if err != nil {
			_ = bus.Close()
			return nil, err
		}
		return dev, nil
	case config.DriverConsole:
		return rgbled.NewConsole(nil), nil
	default:
		var pins [3]gpio.PinIO
		for i, name := range []string{c.Red, c.Green, c.Blue} {
			p, err := pin("indicator", name)
			if err != nil {
				return nil, err
			}
			pins[i] = p
		}
		dev, err := rgbled.New(pins[0], pins[1], pins[2], &rgbled.Opts{
			Frequency: physic.Frequency(c.Frequency) * physic.Hertz,
			Invert:    c.Invert,
		})
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
}

// closingSensor releases the I²C bus along with the sensor.
type closingSensor struct {
	*dht.AM2320
	closer interface{ Close() error }
}

func (c *closingSensor) Halt() error {
	return errors.Join(c.AM2320.Halt(), c.closer.Close())
}

func sensorModel(name string) (dht.Model, bool) {
	switch name {
	case config.ModelDHT22:
		return dht.DHT22, true
	case config.ModelDHT11:
		return dht.DHT11, true
	default:
		return dht.DHT22, false
	}
}

func pin(key, name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%s: no pin named %q", key, name)
	}
	return p, nil
}

func toPull(s string) gpio.Pull {
	switch s {
	case config.PullUp:
		return gpio.PullUp
	case config.PullDown:
		return gpio.PullDown
	default:
		return gpio.Float
	}
}

func halt(log *zap.SugaredLogger, d device) {
	if err := d.Halt(); err != nil {
		log.Warnw("failed to halt", "device", d, "err", err)
	}
}
