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

// Command semlayer inspects and queries a
// semantic model of dimensions and measures.
//
//	semlayer describe [entity]
//	semlayer sql -e sessions -d plan_tier -m session_count
//	semlayer query -e sessions -d plan_tier -m session_count -o out.ndjson.zst -f ndjson
//	semlayer examples [--run name | --sql name]
//	semlayer check [model.yaml]
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/SnellerInc/semlayer/amplitude"
	"github.com/SnellerInc/semlayer/expr"
	"github.com/SnellerInc/semlayer/model"
	"github.com/SnellerInc/semlayer/semantic"
	"github.com/SnellerInc/semlayer/warehouse"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app().Run(ctx, os.Args); err != nil {
		exit(err)
	}
}

// env is the state shared by every command
type env struct {
	cfg     *Config
	logger  zerolog.Logger
	metrics *warehouse.Metrics
}

func setup(cmd *cli.Command) (*env, error) {
	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("model") {
		cfg.Model = cmd.String("model")
	}
	if cmd.IsSet("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("metrics-addr") {
		cfg.MetricsAddr = cmd.String("metrics-addr")
	}
	if cmd.IsSet("driver") {
		cfg.Warehouse.Driver = cmd.String("driver")
	}
	if cmd.IsSet("dsn") {
		cfg.Warehouse.DSN = cmd.String("dsn")
	}
	if cmd.IsSet("dialect") {
		cfg.Warehouse.Dialect = cmd.String("dialect")
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		e.metrics, err = warehouse.NewMetrics(reg)
		if err != nil {
			return nil, err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			err := http.ListenAndServe(cfg.MetricsAddr, mux)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics listener")
			}
		}()
	}
	return e, nil
}

// open connects to the configured warehouse
func (e *env) open(ctx context.Context) (*warehouse.Warehouse, error) {
	if e.cfg.Warehouse.Driver == "" {
		return nil, fmt.Errorf("no warehouse configured (set --driver and --dsn or [warehouse] in the config file)")
	}
	opts := []warehouse.Option{warehouse.WithLogger(e.logger)}
	if e.metrics != nil {
		opts = append(opts, warehouse.WithMetrics(e.metrics))
	}
	return warehouse.Open(ctx, &e.cfg.Warehouse, opts...)
}

// dialect returns the dialect used to render SQL
// without a connection: the configured dialect,
// or DuckDB
func (e *env) dialect() (*expr.Dialect, error) {
	switch {
	case e.cfg.Warehouse.Dialect != "":
		return expr.DialectByName(e.cfg.Warehouse.Dialect)
	case e.cfg.Warehouse.Driver != "":
		return expr.DialectByName(e.cfg.Warehouse.Driver)
	}
	return expr.DuckDB, nil
}

// registry loads the configured model;
// d describes entities that do not list
// their columns and may be nil
func (e *env) registry(ctx context.Context, d model.Describer) (*semantic.Registry, error) {
	if e.cfg.Model == "" {
		return amplitude.Registry(nil, nil)
	}
	return loadModel(ctx, e.cfg.Model, d)
}

func loadModel(ctx context.Context, path string, d model.Describer) (*semantic.Registry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return model.Load(ctx, os.DirFS(filepath.Dir(abs)), filepath.Base(abs), d)
}

func app() *cli.Command {
	return &cli.Command{
		Name:  "semlayer",
		Usage: "query a semantic model of dimensions and measures",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML configuration file",
				Sources: cli.EnvVars("SEMLAYER_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "model definition (.yaml, .json or .toml); default is the built-in Amplitude model",
				Sources: cli.EnvVars("SEMLAYER_MODEL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("SEMLAYER_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "serve Prometheus metrics on this address",
				Sources: cli.EnvVars("SEMLAYER_METRICS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "driver",
				Usage:   "database/sql driver (sqlite, mysql)",
				Sources: cli.EnvVars("SEMLAYER_DRIVER"),
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "warehouse data source name",
				Sources: cli.EnvVars("SEMLAYER_DSN"),
			},
			&cli.StringFlag{
				Name:    "dialect",
				Usage:   "SQL dialect (duckdb, sqlite, mysql)",
				Sources: cli.EnvVars("SEMLAYER_DIALECT"),
			},
		},
		Commands: []*cli.Command{
			describeCmd(),
			sqlCmd(),
			queryCmd(),
			examplesCmd(),
			checkCmd(),
		},
	}
}
