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

package semantic

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/SnellerInc/semlayer/expr"

	"golang.org/x/exp/slices"
)

// Executor executes query text against
// a database. Execute is a blocking call;
// timeouts and cancellation are provided
// by ctx.
type Executor interface {
	// Dialect is the dialect of
	// the queries that Execute accepts.
	Dialect() *expr.Dialect
	Execute(ctx context.Context, query string) (*Result, error)
}

// Result is a materialized query result.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows in r.
func (r *Result) Len() int { return len(r.Rows) }

// Index returns the position of the
// named column in r, or -1.
func (r *Result) Index(name string) int {
	return slices.Index(r.Columns, name)
}

// Value returns the value of the named
// column in row i, or nil if there is no
// such column.
func (r *Result) Value(i int, name string) any {
	j := r.Index(name)
	if j < 0 || i < 0 || i >= len(r.Rows) || j >= len(r.Rows[i]) {
		return nil
	}
	return r.Rows[i][j]
}

// Float returns the value of the named column
// in row i as a float64. The boolean result is
// false if the value is NULL or not a number.
func (r *Result) Float(i int, name string) (float64, bool) {
	return toFloat(r.Value(i, name))
}

// String returns the value of the named column
// in row i formatted as text. NULL is the empty string.
func (r *Result) String(i int, name string) string {
	return FormatValue(r.Value(i, name))
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), !math.IsNaN(float64(v))
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	}
	return 0, false
}

// FormatValue formats a result value as text.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// Records returns the rows of r as maps
// from column name to value.
func (r *Result) Records() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for j := range r.Columns {
			if j < len(row) {
				rec[r.Columns[j]] = row[j]
			}
		}
		out[i] = rec
	}
	return out
}
