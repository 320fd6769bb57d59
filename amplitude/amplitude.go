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

// Package amplitude defines the semantic model
// of Amplitude product analytics exports: a
// sessions entity over amplitude.sessions_fct
// and a users entity over amplitude.users_fct.
//
// The same model is available programmatically
// (Sessions, Users, Registry) and as data (Model),
// along with a catalogue of example queries.
package amplitude

import (
	"github.com/SnellerInc/semlayer/expr"
	"github.com/SnellerInc/semlayer/semantic"
)

// Database is the warehouse database
// holding the Amplitude tables.
const Database = "amplitude"

func col(name string, t expr.TypeSet) semantic.Column {
	return semantic.Column{Name: name, Type: t}
}

// SessionsSchema returns the columns of
// amplitude.sessions_fct, one row per session.
func SessionsSchema() *semantic.BaseTable {
	return semantic.NewBaseTable(Database, "sessions_fct",
		col("session_id", expr.StringType),
		col("device_id", expr.StringType),
		col("user_id", expr.StringType),
		col("email", expr.StringType),
		col("session_date", expr.TimeType),
		col("session_start_time", expr.TimeType),
		col("session_duration_seconds", expr.FloatType),
		col("plan_tier", expr.StringType),
		col("is_identified", expr.BoolType),
		col("is_customer", expr.BoolType),
		col("max_lifecycle_stage", expr.StringType),
		col("max_funnel_step", expr.IntegerType),
		col("has_conversion", expr.BoolType),
		col("reached_activation", expr.BoolType),
		col("traffic_source", expr.StringType),
		col("utm_source", expr.StringType),
		col("utm_medium", expr.StringType),
		col("utm_campaign", expr.StringType),
		col("total_events", expr.IntegerType),
		col("session_revenue", expr.FloatType),
		col("awareness_events", expr.IntegerType),
		col("interest_events", expr.IntegerType),
		col("consideration_events", expr.IntegerType),
		col("trial_events", expr.IntegerType),
		col("activation_events", expr.IntegerType),
		col("retention_events", expr.IntegerType),
		col("expansion_events", expr.IntegerType),
		col("churn_risk_events", expr.IntegerType),
	)
}

// UsersSchema returns the columns of
// amplitude.users_fct, one row per user.
func UsersSchema() *semantic.BaseTable {
	return semantic.NewBaseTable(Database, "users_fct",
		col("user_key", expr.StringType),
		col("user_id", expr.StringType),
		col("email", expr.StringType),
		col("first_event_date", expr.TimeType),
		col("last_event_date", expr.TimeType),
		col("days_since_last_event", expr.IntegerType),
		col("current_plan_tier", expr.StringType),
		col("max_lifecycle_stage_name", expr.StringType),
		col("is_active_7d", expr.BoolType),
		col("is_active_30d", expr.BoolType),
		col("is_paying_customer", expr.BoolType),
		col("has_activated", expr.IntegerType),
		col("first_touch_utm_source", expr.StringType),
		col("first_touch_utm_medium", expr.StringType),
		col("first_touch_utm_campaign", expr.StringType),
		col("total_events", expr.IntegerType),
		col("total_sessions", expr.IntegerType),
		col("total_days_active", expr.IntegerType),
		col("events_7d", expr.IntegerType),
		col("sessions_7d", expr.IntegerType),
		col("events_30d", expr.IntegerType),
		col("sessions_30d", expr.IntegerType),
		col("days_active_30d", expr.IntegerType),
		col("total_revenue", expr.FloatType),
		col("revenue_30d", expr.FloatType),
	)
}

// Registry returns a registry holding the
// sessions and users entities over the given
// base tables. Nil base tables are replaced
// with SessionsSchema() and UsersSchema().
func Registry(sessions, users *semantic.BaseTable) (*semantic.Registry, error) {
	if sessions == nil {
		sessions = SessionsSchema()
	}
	if users == nil {
		users = UsersSchema()
	}
	st, err := Sessions(sessions)
	if err != nil {
		return nil, err
	}
	ut, err := Users(users)
	if err != nil {
		return nil, err
	}
	r := semantic.NewRegistry()
	if err := r.Add(st); err != nil {
		return nil, err
	}
	if err := r.Add(ut); err != nil {
		return nil, err
	}
	return r, nil
}

// percent returns 100 * the fraction
// of rows for which c holds
func percent(c semantic.Cond) expr.Node {
	return expr.Mul(c.Mean(), expr.Integer(100))
}

// share returns 100 * m / ALL(m)
func share(s *semantic.Scope, m string) expr.Node {
	return expr.Mul(expr.Div(s.Measure(m), s.All(s.Measure(m))), expr.Integer(100))
}
