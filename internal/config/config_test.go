// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if c.Sensor.Model != ModelDHT22 || c.Sensor.Pin != "GPIO4" {
		t.Errorf("sensor defaults: %+v", c.Sensor)
	}
	if c.Sensor.Interval != 2*time.Second {
		t.Errorf("sensor.interval = %s, want 2s", c.Sensor.Interval)
	}
	if c.Switches.Debounce != 50*time.Millisecond {
		t.Errorf("switches.debounce = %s, want 50ms", c.Switches.Debounce)
	}
	if c.Switches.LeftPull != PullUp || c.Switches.RightPull != PullDown {
		t.Errorf("switch pulls: %q %q", c.Switches.LeftPull, c.Switches.RightPull)
	}
	if c.Display.Override != 2*time.Second || c.Display.Hot != 30 || c.Display.Cold != 15 {
		t.Errorf("display defaults: %+v", c.Display)
	}
	if c.Indicator.Driver != DriverPWM || c.Indicator.Frequency != 5000 || c.Indicator.Address != 0x62 {
		t.Errorf("indicator defaults: %+v", c.Indicator)
	}
	if c.Loop.Interval != 10*time.Millisecond {
		t.Errorf("loop.interval = %s", c.Loop.Interval)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ENVMON_SENSOR_MODEL", "dht11")
	t.Setenv("ENVMON_SENSOR_INTERVAL", "5s")
	t.Setenv("ENVMON_INDICATOR_DRIVER", "console")
	t.Setenv("ENVMON_INDICATOR_ADDRESS", "96")
	t.Setenv("ENVMON_DISPLAY_HOT", "27.5")
	t.Setenv("ENVMON_SWITCHES_LEFT_PULL", "none")

	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if c.Sensor.Model != ModelDHT11 || c.Sensor.Interval != 5*time.Second {
		t.Errorf("sensor: %+v", c.Sensor)
	}
	if c.Indicator.Driver != DriverConsole || c.Indicator.Address != 96 {
		t.Errorf("indicator: %+v", c.Indicator)
	}
	if c.Display.Hot != 27.5 {
		t.Errorf("display.hot = %v", c.Display.Hot)
	}
	if c.Switches.LeftPull != PullNone {
		t.Errorf("switches.left_pull = %q", c.Switches.LeftPull)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "sensor:\n  model: am2320\n  i2c_bus: \"1\"\ndisplay:\n  cold: 10\n"
	if err := os.WriteFile(filepath.Join(dir, "envmon.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c.Sensor.Model != ModelAM2320 || c.Sensor.I2CBus != "1" {
		t.Errorf("sensor: %+v", c.Sensor)
	}
	if c.Display.Cold != 10 || c.Display.Hot != 30 {
		t.Errorf("display: %+v", c.Display)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"model", func(c *Config) { c.Sensor.Model = "bme280" }, "sensor.model"},
		{"driver", func(c *Config) { c.Indicator.Driver = "neopixel" }, "indicator.driver"},
		{"pull", func(c *Config) { c.Switches.RightPull = "sideways" }, "switches.right_pull"},
		{"thresholds", func(c *Config) { c.Display.Cold = 40 }, "cold threshold"},
		{"override", func(c *Config) { c.Display.Override = 0 }, "display.override"},
		{"debounce", func(c *Config) { c.Switches.Debounce = 0 }, "switches.debounce"},
		{"negative debounce", func(c *Config) { c.Switches.Debounce = -time.Millisecond }, "switches.debounce"},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"pins", func(c *Config) { c.Indicator.Green = "" }, "indicator"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Load(t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(&c)
			err = c.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
