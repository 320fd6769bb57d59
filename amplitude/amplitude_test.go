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

package amplitude

import (
	"context"
	"testing"
	"time"

	"github.com/SnellerInc/semlayer/expr"
	"github.com/SnellerInc/semlayer/model"
	"github.com/SnellerInc/semlayer/semantic"
)

func testRegistry(t *testing.T) *semantic.Registry {
	t.Helper()
	r, err := Registry(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// the YAML model and the Go definitions
// must describe the same entities
func TestModelMatchesRegistry(t *testing.T) {
	m, err := Model()
	if err != nil {
		t.Fatal(err)
	}
	fromModel, err := model.Build(context.Background(), m, nil)
	if err != nil {
		t.Fatal(err)
	}
	fromCode := testRegistry(t)
	for _, want := range fromCode.Tables() {
		got, err := fromModel.Table(want.Name())
		if err != nil {
			t.Fatal(err)
		}
		if got.Base().Ref != want.Base().Ref {
			t.Errorf("%s: table %s != %s", want.Name(), got.Base().Ref.String(), want.Base().Ref.String())
		}
		if len(got.Base().Columns) != len(want.Base().Columns) {
			t.Errorf("%s: %d columns, want %d", want.Name(), len(got.Base().Columns), len(want.Base().Columns))
		}
		for i, c := range want.Base().Columns {
			if i < len(got.Base().Columns) && got.Base().Columns[i] != c {
				t.Errorf("%s: column %d is %+v, want %+v", want.Name(), i, got.Base().Columns[i], c)
			}
		}
		wantDims, gotDims := want.Dimensions(), got.Dimensions()
		if len(wantDims) != len(gotDims) {
			t.Fatalf("%s: %d dimensions, want %d", want.Name(), len(gotDims), len(wantDims))
		}
		for i := range wantDims {
			if gotDims[i].Name != wantDims[i].Name || gotDims[i].Description != wantDims[i].Description ||
				!expr.Equal(gotDims[i].Expr, wantDims[i].Expr) {
				t.Errorf("%s: dimension %d: got %+v, want %+v", want.Name(), i, gotDims[i], wantDims[i])
			}
		}
		wantMeasures, gotMeasures := want.Measures(), got.Measures()
		if len(wantMeasures) != len(gotMeasures) {
			t.Fatalf("%s: %d measures, want %d", want.Name(), len(gotMeasures), len(wantMeasures))
		}
		for i := range wantMeasures {
			w, g := wantMeasures[i], gotMeasures[i]
			if g.Name != w.Name || g.Description != w.Description {
				t.Errorf("%s: measure %d is %s (%q), want %s (%q)", want.Name(), i, g.Name, g.Description, w.Name, w.Description)
				continue
			}
			if !expr.Equal(g.Expr, w.Expr) {
				t.Errorf("%s.%s: model gives %s, code gives %s", want.Name(), w.Name, expr.ToString(g.Expr), expr.ToString(w.Expr))
			}
		}
	}
}

func TestMeasureText(t *testing.T) {
	r := testRegistry(t)
	testcases := []struct {
		entity, measure, want string
	}{
		{"sessions", "events_per_minute", "CAST(SUM(total_events) AS DOUBLE) / NULLIF(CAST(SUM(session_duration_seconds) AS DOUBLE) / NULLIF(60, 0), 0)"},
		{"sessions", "bounce_rate", "AVG(CAST(total_events = 1 AS BIGINT)) * 100"},
		{"sessions", "median_session_duration", "QUANTILE_CONT(session_duration_seconds, 0.5)"},
		{"users", "casual_users", "SUM(CAST(events_30d >= 10 AND events_30d <= 100 AND (sessions_30d >= 5 AND sessions_30d <= 20) AS BIGINT))"},
		{"users", "stickiness_30d", "CAST(SUM(days_active_30d) AS DOUBLE) / NULLIF(SUM(CAST(is_active_30d = TRUE AS BIGINT)), 0)"},
		{"users", "market_share", "CAST(COUNT(*) AS DOUBLE) / NULLIF(ALL(COUNT(*)), 0) * 100"},
	}
	for _, tc := range testcases {
		tbl, err := r.Table(tc.entity)
		if err != nil {
			t.Fatal(err)
		}
		m, ok := tbl.Measure(tc.measure)
		if !ok {
			t.Errorf("%s: no measure %s", tc.entity, tc.measure)
			continue
		}
		if got := expr.ToString(m.Expr); got != tc.want {
			t.Errorf("%s.%s:\ngot  %s\nwant %s", tc.entity, tc.measure, got, tc.want)
		}
	}
}

func TestExamples(t *testing.T) {
	r := testRegistry(t)
	now := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for _, ex := range Examples() {
		if seen[ex.Name] {
			t.Errorf("duplicate example %s", ex.Name)
		}
		seen[ex.Name] = true
		q, err := ex.Query(r, now)
		if err != nil {
			t.Errorf("%s: %s", ex.Name, err)
			continue
		}
		for _, d := range []*expr.Dialect{expr.DuckDB, expr.SQLite, expr.MySQL} {
			if _, err := q.SQL(d); err != nil {
				t.Errorf("%s: %s: %s", ex.Name, d, err)
			}
		}
	}
	if _, ok := ExampleByName("quality-score"); !ok {
		t.Error("missing example quality-score")
	}
	if _, ok := ExampleByName("nope"); ok {
		t.Error("found an example that does not exist")
	}
}

func TestExampleSQL(t *testing.T) {
	r := testRegistry(t)
	now := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	testcases := []struct {
		name, want string
	}{
		{
			"by-plan-tier",
			"SELECT plan_tier, COUNT(*) AS session_count, AVG(session_duration_seconds) AS avg_session_duration, " +
				"AVG(CAST(has_conversion = TRUE AS BIGINT)) * 100 AS conversion_rate, " +
				"CAST(COUNT(*) AS DOUBLE) / NULLIF((SELECT COUNT(*) FROM amplitude.sessions_fct), 0) * 100 AS market_share " +
				"FROM amplitude.sessions_fct GROUP BY plan_tier ORDER BY session_count DESC",
		},
		{
			"recent",
			"SELECT plan_tier, COUNT(*) AS session_count, SUM(session_revenue) AS total_revenue, " +
				"AVG(CAST(has_conversion = TRUE AS BIGINT)) * 100 AS conversion_rate " +
				"FROM amplitude.sessions_fct WHERE session_start_time >= TIMESTAMP '2024-03-01 12:00:00' " +
				"GROUP BY plan_tier ORDER BY session_count DESC",
		},
		{
			"inline",
			"SELECT plan_tier, COUNT(*) AS session_count, SUM(session_revenue) AS total_revenue, " +
				"CAST(SUM(session_revenue) AS DOUBLE) / NULLIF(COUNT(*), 0) AS revenue_per_session, " +
				"AVG(CAST(session_revenue > 50 AS BIGINT)) * 100 AS high_value_pct, " +
				"AVG(total_events) FILTER (WHERE session_duration_seconds > 30) AS engaged_events " +
				"FROM amplitude.sessions_fct GROUP BY plan_tier ORDER BY total_revenue DESC",
		},
		{
			"engaged",
			"SELECT traffic_source, COUNT(*) AS session_count, AVG(total_events) AS avg_events_per_session, " +
				"AVG(CAST(has_conversion = TRUE AS BIGINT)) * 100 AS conversion_rate " +
				"FROM amplitude.sessions_fct WHERE session_duration_seconds > 60 AND total_events > 3 " +
				"GROUP BY traffic_source LIMIT 10",
		},
	}
	for _, tc := range testcases {
		ex, ok := ExampleByName(tc.name)
		if !ok {
			t.Fatalf("no example %s", tc.name)
		}
		q, err := ex.Query(r, now)
		if err != nil {
			t.Fatal(err)
		}
		got, err := q.SQL(expr.DuckDB)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("%s:\ngot  %s\nwant %s", tc.name, got, tc.want)
		}
	}
}
