// go-dtof
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-dtof.
//
// go-dtof is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-dtof is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-dtof; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ZaparooProject/go-dtof"
	"github.com/ZaparooProject/go-dtof/detection"
	"github.com/ZaparooProject/go-dtof/transport/uart"
)

const envPrefix = "DTOF"

// LumberjackConfig configures rotating file output
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig configures the log level and outputs
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MeasureConfig selects the measure mode and its coordinates
type MeasureConfig struct {
	Mode  string `mapstructure:"mode"`
	Line  int    `mapstructure:"line"`
	Point int    `mapstructure:"point"`
	Start int    `mapstructure:"start"`
	End   int    `mapstructure:"end"`
}

// DetectConfig configures port auto-detection
type DetectConfig struct {
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config holds the dtofread configuration
type Config struct {
	Port        string           `mapstructure:"port"`
	FrameMode   string           `mapstructure:"frame_mode"`
	MetricsAddr string           `mapstructure:"metrics_addr"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Measure     MeasureConfig    `mapstructure:"measure"`
	Detect      DetectConfig     `mapstructure:"detect"`
	Serial      uart.PortOptions `mapstructure:"serial"`
	Timeout     time.Duration    `mapstructure:"timeout"`
	Interval    time.Duration    `mapstructure:"interval"`
	Count       int              `mapstructure:"count"`
	Simulate    bool             `mapstructure:"simulate"`
	Debug       bool             `mapstructure:"debug"`
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"port":         "port",
	"baud":         "serial.baud_rate",
	"frame-mode":   "frame_mode",
	"mode":         "measure.mode",
	"line":         "measure.line",
	"point":        "measure.point",
	"start":        "measure.start",
	"end":          "measure.end",
	"timeout":      "timeout",
	"interval":     "interval",
	"count":        "count",
	"simulate":     "simulate",
	"debug":        "debug",
	"metrics-addr": "metrics_addr",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"log-file":     "logging.file.filename",
	"detect-mode":  "detect.mode",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "")
	v.SetDefault("frame_mode", "single")
	v.SetDefault("timeout", "500ms")
	v.SetDefault("interval", "2s")
	v.SetDefault("count", 0)
	v.SetDefault("simulate", false)
	v.SetDefault("debug", false)
	v.SetDefault("metrics_addr", "")

	v.SetDefault("measure.mode", "full")
	v.SetDefault("measure.line", 4)
	v.SetDefault("measure.point", 32)
	v.SetDefault("measure.start", 10)
	v.SetDefault("measure.end", 20)

	v.SetDefault("serial.baud_rate", uart.DefaultBaudRate)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "none")
	v.SetDefault("serial.read_timeout", uart.DefaultReadTimeout.String())

	v.SetDefault("detect.mode", "safe")
	v.SetDefault("detect.timeout", "500ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.max_size", 10)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 7)
	v.SetDefault("logging.file.compress", false)
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", "", "Configuration file (yaml, toml or json). Defaults to $DTOF_CONFIG.")
	fs.String("port", "", "Serial port (e.g. /dev/ttyUSB0 or COM3). Leave empty for auto-detection.")
	fs.Int("baud", uart.DefaultBaudRate, "Serial baud rate")
	fs.String("frame-mode", "single", "Frame mode: single or continuous")
	fs.String("mode", "full", "Measure mode: full, single or multi")
	fs.Int("line", 4, "Line for single and multi point modes")
	fs.Int("point", 32, "Point for single point mode")
	fs.Int("start", 10, "First point for multi point mode")
	fs.Int("end", 20, "Last point for multi point mode")
	fs.Duration("timeout", 500*time.Millisecond, "Timeout for each frame")
	fs.Duration("interval", 2*time.Second, "Minimum time between frames")
	fs.Int("count", 0, "Number of frames to read (0 reads until interrupted)")
	fs.Bool("simulate", false, "Use a simulated sensor instead of a serial port")
	fs.Bool("debug", false, "Enable protocol debug output")
	fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
	fs.String("log-format", "console", "Log format: console or json")
	fs.String("log-file", "", "Also write logs to this file with rotation")
	fs.String("detect-mode", "safe", "Auto-detection mode: passive, safe or full")
	return fs, configPath
}

// loadConfig builds the configuration from defaults, an optional config file,
// DTOF_ environment variables and finally explicitly set flags
func loadConfig(args []string) (*Config, error) {
	fs, configPath := newFlagSet("dtofread")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := *configPath
	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("dtofread")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/dtofread")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.frameMode(); err != nil {
		return err
	}
	if _, err := c.measureMode(); err != nil {
		return err
	}
	if _, err := c.detectMode(); err != nil {
		return err
	}
	if _, err := c.Serial.Normalize(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if c.Timeout < 0 || c.Interval < 0 || c.Count < 0 {
		return errors.New("timeout, interval and count must not be negative")
	}
	return nil
}

func (c *Config) frameMode() (dtof.FrameMode, error) {
	switch strings.ToLower(c.FrameMode) {
	case "single":
		return dtof.FrameModeSingle, nil
	case "continuous":
		return dtof.FrameModeContinuous, nil
	default:
		return 0, fmt.Errorf("unknown frame mode %q", c.FrameMode)
	}
}

func (c *Config) measureMode() (dtof.MeasureMode, error) {
	m := c.Measure
	switch strings.ToLower(m.Mode) {
	case "full":
		return dtof.FullMode(), nil
	case "single":
		return dtof.SinglePoint(m.Line, m.Point), nil
	case "multi":
		return dtof.MultiPoint(m.Line, m.Start, m.End), nil
	default:
		return dtof.MeasureMode{}, fmt.Errorf("unknown measure mode %q", m.Mode)
	}
}

func (c *Config) detectMode() (detection.Mode, error) {
	switch strings.ToLower(c.Detect.Mode) {
	case "passive":
		return detection.Passive, nil
	case "safe", "":
		return detection.Safe, nil
	case "full":
		return detection.Full, nil
	default:
		return 0, fmt.Errorf("unknown detection mode %q", c.Detect.Mode)
	}
}
