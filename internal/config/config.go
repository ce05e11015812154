// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the monitor configuration.
//
// Every key has a built-in default, so the monitor runs without any file.
// An optional envmon.yaml is looked up in /etc/envmon and the working
// directory, and ENVMON_ prefixed environment variables override both, with
// dots replaced by underscores (ENVMON_SENSOR_PIN=GPIO17).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultPaths are searched for envmon.yaml.
var DefaultPaths = []string{"/etc/envmon", "."}

// Sensor models.
const (
	ModelDHT22  = "dht22"
	ModelDHT11  = "dht11"
	ModelAM2320 = "am2320"
)

// Indicator drivers.
const (
	DriverPWM     = "pwm"
	DriverPCA9633 = "pca9633"
	DriverConsole = "console"
)

// Pull resistor settings for the switches.
const (
	PullUp   = "up"
	PullDown = "down"
	PullNone = "none"
)

type Config struct {
	Log       Log       `mapstructure:"log"`
	Loop      Loop      `mapstructure:"loop"`
	Sensor    Sensor    `mapstructure:"sensor"`
	Indicator Indicator `mapstructure:"indicator"`
	Buzzer    Buzzer    `mapstructure:"buzzer"`
	Switches  Switches  `mapstructure:"switches"`
	Display   Display   `mapstructure:"display"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Loop struct {
	// Interval between two loop iterations.
	Interval time.Duration `mapstructure:"interval"`
}

type Sensor struct {
	Model string `mapstructure:"model"`
	// Pin is the data pin of single-wire sensors.
	Pin string `mapstructure:"pin"`
	// I2CBus is the bus of the AM2320, "" for the first one.
	I2CBus   string        `mapstructure:"i2c_bus"`
	Interval time.Duration `mapstructure:"interval"`
	Retries  int           `mapstructure:"retries"`
}

type Indicator struct {
	Driver string `mapstructure:"driver"`
	Red    string `mapstructure:"red"`
	Green  string `mapstructure:"green"`
	Blue   string `mapstructure:"blue"`
	// Frequency of the PWM channels, in Hz.
	Frequency int  `mapstructure:"frequency"`
	Invert    bool `mapstructure:"invert"`

	I2CBus  string `mapstructure:"i2c_bus"`
	Address uint16 `mapstructure:"address"`
}

type Buzzer struct {
	Pin string `mapstructure:"pin"`
}

type Switches struct {
	Left      string        `mapstructure:"left"`
	Right     string        `mapstructure:"right"`
	LeftPull  string        `mapstructure:"left_pull"`
	RightPull string        `mapstructure:"right_pull"`
	Debounce  time.Duration `mapstructure:"debounce"`
}

type Display struct {
	// Override is how long a switch color is shown.
	Override time.Duration `mapstructure:"override"`
	// Hot and Cold are the ambient thresholds in °C.
	Hot  float64 `mapstructure:"hot"`
	Cold float64 `mapstructure:"cold"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("loop.interval", 10*time.Millisecond)

	v.SetDefault("sensor.model", ModelDHT22)
	v.SetDefault("sensor.pin", "GPIO4")
	v.SetDefault("sensor.i2c_bus", "")
	v.SetDefault("sensor.interval", 2*time.Second)
	v.SetDefault("sensor.retries", 2)

	v.SetDefault("indicator.driver", DriverPWM)
	v.SetDefault("indicator.red", "GPIO17")
	v.SetDefault("indicator.green", "GPIO27")
	v.SetDefault("indicator.blue", "GPIO22")
	v.SetDefault("indicator.frequency", 5000)
	v.SetDefault("indicator.invert", false)
	v.SetDefault("indicator.i2c_bus", "")
	v.SetDefault("indicator.address", 0x62)

	v.SetDefault("buzzer.pin", "GPIO18")

	v.SetDefault("switches.left", "GPIO5")
	v.SetDefault("switches.right", "GPIO6")
	v.SetDefault("switches.left_pull", PullUp)
	v.SetDefault("switches.right_pull", PullDown)
	v.SetDefault("switches.debounce", 50*time.Millisecond)

	v.SetDefault("display.override", 2*time.Second)
	v.SetDefault("display.hot", 30.0)
	v.SetDefault("display.cold", 15.0)
}

// Load reads the configuration. paths replaces DefaultPaths when given.
func Load(paths ...string) (Config, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("envmon")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("ENVMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, c.Validate()
}

// Validate checks the values that can't be caught by decoding.
func (c *Config) Validate() error {
	var errs []error
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if c.Loop.Interval <= 0 {
		errs = append(errs, errors.New("loop.interval: must be positive"))
	}
	switch c.Sensor.Model {
	case ModelDHT22, ModelDHT11:
		if c.Sensor.Pin == "" {
			errs = append(errs, errors.New("sensor.pin: required"))
		}
	case ModelAM2320:
	default:
		errs = append(errs, fmt.Errorf("sensor.model: unknown model %q", c.Sensor.Model))
	}
	if c.Sensor.Interval <= 0 {
		errs = append(errs, errors.New("sensor.interval: must be positive"))
	}
	if c.Sensor.Retries < 0 {
		errs = append(errs, errors.New("sensor.retries: must not be negative"))
	}
	switch c.Indicator.Driver {
	case DriverPWM:
		if c.Indicator.Red == "" || c.Indicator.Green == "" || c.Indicator.Blue == "" {
			errs = append(errs, errors.New("indicator: red, green and blue pins are required"))
		}
		if c.Indicator.Frequency <= 0 {
			errs = append(errs, errors.New("indicator.frequency: must be positive"))
		}
	case DriverPCA9633, DriverConsole:
	default:
		errs = append(errs, fmt.Errorf("indicator.driver: unknown driver %q", c.Indicator.Driver))
	}
	if c.Buzzer.Pin == "" {
		errs = append(errs, errors.New("buzzer.pin: required"))
	}
	if c.Switches.Left == "" || c.Switches.Right == "" {
		errs = append(errs, errors.New("switches: left and right pins are required"))
	}
	for key, pull := range map[string]string{"switches.left_pull": c.Switches.LeftPull, "switches.right_pull": c.Switches.RightPull} {
		switch pull {
		case PullUp, PullDown, PullNone:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown pull %q", key, pull))
		}
	}
	if c.Switches.Debounce <= 0 {
		errs = append(errs, errors.New("switches.debounce: must be positive"))
	}
	if c.Display.Override <= 0 {
		errs = append(errs, errors.New("display.override: must be positive"))
	}
	if c.Display.Cold > c.Display.Hot {
		errs = append(errs, fmt.Errorf("display: cold threshold %.1f above hot threshold %.1f", c.Display.Cold, c.Display.Hot))
	}
	if len(errs) != 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
