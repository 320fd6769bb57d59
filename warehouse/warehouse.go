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

package warehouse

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/SnellerInc/semlayer/expr"
	"github.com/SnellerInc/semlayer/semantic"

	"github.com/cenkalti/backoff/v4"
	"github.com/dchest/siphash"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	// drivers available to Open
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// DefaultConnectTimeout is the time Open
// spends retrying the initial connection
// when Config.ConnectTimeout is zero.
const DefaultConnectTimeout = 10 * time.Second

// Config describes a warehouse connection.
type Config struct {
	// Driver is the database/sql driver name
	// ("sqlite", "mysql", or any other driver
	// linked into the binary).
	Driver string `toml:"driver"`
	// DSN is the driver-specific data source name.
	DSN string `toml:"dsn"`
	// Dialect is the SQL dialect of the warehouse.
	// If it is empty, the dialect is derived
	// from the driver name.
	Dialect string `toml:"dialect"`
	// MaxOpenConns limits the size of the pool.
	// Zero means no limit.
	MaxOpenConns int `toml:"max_open_conns"`
	// ConnectTimeout bounds the retries
	// of the initial connection.
	ConnectTimeout duration `toml:"connect_timeout"`
}

// duration is a time.Duration
// written as text ("5s") in TOML
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Timeout returns the effective connect timeout.
func (c *Config) Timeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(c.ConnectTimeout)
}

// SetTimeout sets the connect timeout.
func (c *Config) SetTimeout(d time.Duration) { c.ConnectTimeout = duration(d) }

func (c *Config) dialect() (*expr.Dialect, error) {
	if c.Dialect != "" {
		return expr.DialectByName(c.Dialect)
	}
	return expr.DialectByName(c.Driver)
}

// Warehouse is a semantic.Executor
// backed by a database/sql pool.
// A Warehouse is safe to use from
// multiple goroutines.
type Warehouse struct {
	db      *sql.DB
	dialect *expr.Dialect
	logger  zerolog.Logger
	metrics *Metrics
	clock   func() time.Time
}

var _ semantic.Executor = (*Warehouse)(nil)

// Option is an optional argument to Open and New.
type Option func(w *Warehouse)

// WithLogger is an option that sets the
// logger for query events. The default
// logger discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Warehouse) {
		w.logger = l
	}
}

// WithMetrics is an option that records
// query statistics into m.
func WithMetrics(m *Metrics) Option {
	return func(w *Warehouse) {
		w.metrics = m
	}
}

// New wraps an existing connection pool.
func New(db *sql.DB, d *expr.Dialect, opts ...Option) *Warehouse {
	w := &Warehouse{
		db:      db,
		dialect: d,
		logger:  zerolog.Nop(),
		clock:   time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Open opens a connection pool described by cfg
// and waits for the warehouse to accept a
// connection, retrying with exponential backoff
// for up to cfg.Timeout().
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Warehouse, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("warehouse: no driver configured")
	}
	d, err := cfg.dialect()
	if err != nil {
		return nil, fmt.Errorf("warehouse: %w", err)
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("warehouse: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	w := New(db, d, opts...)
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.Timeout()
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		err := db.PingContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			w.logger.Warn().Err(err).Int("attempt", attempt).
				Str("driver", cfg.Driver).Msg("warehouse not ready")
		}
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("warehouse: connecting to %s: %w", cfg.Driver, err)
	}
	w.logger.Info().Str("driver", cfg.Driver).Str("dialect", d.Name).Msg("warehouse connected")
	return w, nil
}

// Close closes the connection pool.
func (w *Warehouse) Close() error { return w.db.Close() }

// DB returns the underlying connection pool.
func (w *Warehouse) DB() *sql.DB { return w.db }

// Dialect implements semantic.Executor.Dialect
func (w *Warehouse) Dialect() *expr.Dialect { return w.dialect }

// Fingerprint returns a stable identifier
// for the text of a query, suitable for
// grouping log lines and metrics of
// repeated queries.
func Fingerprint(query string) string {
	const (
		k0 = 0x5d1ec3a8b0f4e927
		k1 = 0x3b7a6e21c94d08f5
	)
	lo, hi := siphash.Hash128(k0, k1, []byte(query))
	var mem [16]byte
	binary.LittleEndian.PutUint64(mem[:8], lo)
	binary.LittleEndian.PutUint64(mem[8:], hi)
	return base64.RawURLEncoding.EncodeToString(mem[:])
}

// Execute implements semantic.Executor.Execute
//
// The query is run exactly once; the result
// is read completely before Execute returns.
// Byte slices produced by the driver are
// returned as strings.
func (w *Warehouse) Execute(ctx context.Context, query string) (*semantic.Result, error) {
	id := uuid.New()
	start := w.clock()
	res, err := w.query(ctx, query)
	elapsed := w.clock().Sub(start)
	ev := w.logger.Debug()
	if err != nil {
		ev = w.logger.Error().Err(err)
	}
	ev = ev.Str("query_id", id.String()).
		Str("fingerprint", Fingerprint(query)).
		Dur("elapsed", elapsed)
	if res != nil {
		ev = ev.Int("rows", res.Len())
	}
	ev.Msg("query")
	if w.metrics != nil {
		w.metrics.observe(res, elapsed, err)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (w *Warehouse) query(ctx context.Context, query string) (*semantic.Result, error) {
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &semantic.Result{Columns: cols}
	for rows.Next() {
		row := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i := range row {
			row[i] = normalize(row[i])
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// normalize converts driver values that
// alias driver-owned memory into values
// that are safe to retain
func normalize(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case sql.RawBytes:
		return string(v)
	}
	return v
}
