// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/SnellerInc/semlayer/warehouse"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Config is the contents of the
// file named by --config.
type Config struct {
	// Model is the path of a model definition;
	// the built-in Amplitude model is used
	// when it is empty.
	Model string `toml:"model"`
	// LogLevel is a zerolog level name.
	LogLevel string `toml:"log_level"`
	// MetricsAddr, if set, is the listen
	// address of the Prometheus handler.
	MetricsAddr string `toml:"metrics_addr"`
	// Timeout bounds the execution of
	// each query; zero means no bound.
	Timeout string `toml:"timeout"`

	Warehouse warehouse.Config `toml:"warehouse"`
}

// loadConfig reads the TOML file at path.
// A missing path yields the zero Config.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if extra := md.Undecoded(); len(extra) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, extra[0].String())
	}
	return cfg, nil
}

func (c *Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: timeout: %w", err)
	}
	return d, nil
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl := zerolog.WarnLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), err
		}
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
