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
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/SnellerInc/semlayer/expr"
	"github.com/SnellerInc/semlayer/semantic"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T, opts ...Option) (*Warehouse, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, expr.DuckDB, opts...), mock
}

func TestExecute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	var logs bytes.Buffer
	w, mock := newMock(t, WithMetrics(m), WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)))

	const query = "SELECT plan_tier, COUNT(*) AS session_count FROM amplitude.sessions_fct GROUP BY plan_tier"
	mock.ExpectQuery(query).WillReturnRows(
		sqlmock.NewRows([]string{"plan_tier", "session_count"}).
			AddRow([]byte("free"), int64(2)).
			AddRow([]byte("premium"), int64(1)))

	res, err := w.Execute(context.Background(), query)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"plan_tier", "session_count"}, res.Columns)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, "free", res.Value(0, "plan_tier"))
	assert.Equal(t, int64(1), res.Value(1, "session_count"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("ok")))
	assert.Contains(t, logs.String(), Fingerprint(query))
	assert.Contains(t, logs.String(), `"query_id"`)
}

func TestExecuteError(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	w, mock := newMock(t, WithMetrics(m))
	boom := errors.New("relation does not exist")
	mock.ExpectQuery("SELECT 1").WillReturnError(boom)

	_, err = w.Execute(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("error")))
	require.NoError(t, mock.ExpectationsWereMet())
}

// the semantic layer runs the compiled text
// exactly once and wraps driver failures
func TestQueryExecute(t *testing.T) {
	w, mock := newMock(t)
	base := semantic.NewBaseTable("amplitude", "sessions_fct",
		semantic.Column{Name: "plan_tier", Type: expr.StringType},
		semantic.Column{Name: "session_revenue", Type: expr.FloatType})
	tbl, err := semantic.NewTable("sessions", base)
	require.NoError(t, err)
	require.NoError(t, tbl.RegisterDimension("plan_tier", nil, ""))
	require.NoError(t, tbl.RegisterMeasure("total_revenue", func(s *semantic.Scope) expr.Node {
		return s.Col("session_revenue").Sum()
	}, ""))
	q, err := tbl.Query().GroupBy("plan_tier")
	require.NoError(t, err)
	q, err = q.Aggregate([]string{"total_revenue"})
	require.NoError(t, err)
	text, err := q.SQL(expr.DuckDB)
	require.NoError(t, err)

	mock.ExpectQuery(text).WillReturnRows(
		sqlmock.NewRows([]string{"plan_tier", "total_revenue"}).AddRow("free", 10.5))
	res, err := q.Execute(context.Background(), w)
	require.NoError(t, err)
	f, ok := res.Float(0, "total_revenue")
	assert.True(t, ok)
	assert.Equal(t, 10.5, f)

	boom := errors.New("connection reset")
	mock.ExpectQuery(text).WillReturnError(boom)
	_, err = q.Execute(context.Background(), w)
	var ee *semantic.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, text, ee.SQL)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeInformationSchema(t *testing.T) {
	w, mock := newMock(t)
	mock.ExpectQuery("SELECT column_name, data_type FROM information_schema.columns " +
		"WHERE table_catalog = ? AND table_name = ? ORDER BY ordinal_position").
		WithArgs("amplitude", "users_fct").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("user_id", "VARCHAR").
			AddRow("lifetime_revenue", "DECIMAL(18,2)").
			AddRow("first_seen", "TIMESTAMP WITH TIME ZONE").
			AddRow("is_active", "BOOLEAN"))
	bt, err := w.Describe(context.Background(), expr.TableRef{Database: "amplitude", Name: "users_fct"})
	require.NoError(t, err)
	assert.Equal(t, []semantic.Column{
		{Name: "user_id", Type: expr.StringType},
		{Name: "lifetime_revenue", Type: expr.FloatType},
		{Name: "first_seen", Type: expr.TimeType},
		{Name: "is_active", Type: expr.BoolType},
	}, bt.Columns)

	mock.ExpectQuery("SELECT column_name, data_type FROM information_schema.columns " +
		"WHERE table_catalog = current_database() AND table_name = ? ORDER BY ordinal_position").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}))
	_, err = w.Describe(context.Background(), expr.TableRef{Name: "missing"})
	assert.ErrorContains(t, err, "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("SELECT 1")
	assert.Equal(t, a, Fingerprint("SELECT 1"))
	assert.NotEqual(t, a, Fingerprint("SELECT 2"))
	assert.Len(t, a, 22)
}

func TestConfigDialect(t *testing.T) {
	testcases := []struct {
		cfg  Config
		want *expr.Dialect
	}{
		{Config{Driver: "sqlite"}, expr.SQLite},
		{Config{Driver: "mysql"}, expr.MySQL},
		{Config{Driver: "duckdb"}, expr.DuckDB},
		{Config{Driver: "sqlite", Dialect: "duckdb"}, expr.DuckDB},
	}
	for _, tc := range testcases {
		d, err := tc.cfg.dialect()
		require.NoError(t, err)
		assert.Same(t, tc.want, d)
	}
	_, err := (&Config{Driver: "postgres"}).dialect()
	assert.Error(t, err)

	var c Config
	assert.Equal(t, DefaultConnectTimeout, c.Timeout())
	require.NoError(t, c.ConnectTimeout.UnmarshalText([]byte("250ms")))
	assert.Equal(t, "250ms", c.Timeout().String())
}
