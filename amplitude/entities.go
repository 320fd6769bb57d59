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
	"github.com/SnellerInc/semlayer/expr"
	"github.com/SnellerInc/semlayer/semantic"
)

type fn = func(s *semantic.Scope) expr.Node

func measure(name, desc string, f fn) semantic.MeasureDef {
	return semantic.MeasureDef{Name: name, Func: f, Description: desc}
}

func sum(column string) fn {
	return func(s *semantic.Scope) expr.Node { return s.Col(column).Sum() }
}

func mean(column string) fn {
	return func(s *semantic.Scope) expr.Node { return s.Col(column).Mean() }
}

func dim(name, desc string) semantic.DimensionDef {
	return semantic.DimensionDef{Name: name, Description: desc}
}

// Sessions returns the sessions entity over base,
// which must provide the columns of SessionsSchema.
func Sessions(base *semantic.BaseTable) (*semantic.Table, error) {
	t, err := semantic.NewTable("sessions", base)
	if err != nil {
		return nil, err
	}
	err = t.WithDimensions(
		// identity
		dim("session_id", ""),
		dim("device_id", ""),
		dim("user_id", ""),
		dim("email", ""),
		// time
		dim("session_date", ""),
		dim("session_start_time", ""),
		// plan and status
		dim("plan_tier", "User subscription tier (trial, starter, premium, business, enterprise)"),
		dim("is_identified", ""),
		dim("is_customer", ""),
		// lifecycle
		dim("max_lifecycle_stage", "Highest lifecycle stage reached in session"),
		dim("max_funnel_step", ""),
		// conversion
		dim("has_conversion", ""),
		dim("reached_activation", ""),
		// attribution
		dim("traffic_source", "Primary traffic source channel"),
		dim("utm_source", ""),
		dim("utm_medium", ""),
		dim("utm_campaign", ""),
	)
	if err != nil {
		return nil, err
	}
	err = t.WithMeasures(
		measure("session_count", "Total number of sessions", func(s *semantic.Scope) expr.Node {
			return s.Count()
		}),

		measure("avg_session_duration", "Average session duration in seconds", mean("session_duration_seconds")),
		measure("median_session_duration", "", func(s *semantic.Scope) expr.Node {
			return s.Col("session_duration_seconds").Median()
		}),
		measure("total_session_duration", "", sum("session_duration_seconds")),

		measure("total_events", "Total events across all sessions", sum("total_events")),
		measure("avg_events_per_session", "", mean("total_events")),
		measure("events_per_minute", "", func(s *semantic.Scope) expr.Node {
			minutes := expr.Div(s.Measure("total_session_duration"), expr.Integer(60))
			return expr.Div(s.Col("total_events").Sum(), minutes)
		}),

		measure("total_revenue", "Total revenue generated from sessions", sum("session_revenue")),
		measure("avg_revenue_per_session", "", mean("session_revenue")),
		measure("revenue_per_event", "", func(s *semantic.Scope) expr.Node {
			return expr.Div(s.Measure("total_revenue"), s.Measure("total_events"))
		}),

		measure("conversion_rate", "Percentage of sessions with conversions", func(s *semantic.Scope) expr.Node {
			return percent(s.Col("has_conversion").Eq(true))
		}),
		measure("activation_rate", "", func(s *semantic.Scope) expr.Node {
			return percent(s.Col("reached_activation").Eq(true))
		}),
		measure("identified_rate", "", func(s *semantic.Scope) expr.Node {
			return percent(s.Col("is_identified").Eq(true))
		}),

		measure("bounce_rate", "Percentage of single-event sessions", func(s *semantic.Scope) expr.Node {
			return percent(s.Col("total_events").Eq(1))
		}),
		measure("engaged_session_rate", "", func(s *semantic.Scope) expr.Node {
			return percent(s.Col("session_duration_seconds").Gt(30))
		}),

		measure("awareness_events", "", sum("awareness_events")),
		measure("interest_events", "", sum("interest_events")),
		measure("consideration_events", "", sum("consideration_events")),
		measure("trial_events", "", sum("trial_events")),
		measure("activation_events", "", sum("activation_events")),
		measure("retention_events", "", sum("retention_events")),
		measure("expansion_events", "", sum("expansion_events")),
		measure("churn_risk_events", "", sum("churn_risk_events")),

		measure("avg_funnel_depth", "", mean("max_funnel_step")),
		measure("max_funnel_reached", "", func(s *semantic.Scope) expr.Node {
			return s.Col("max_funnel_step").Max()
		}),

		measure("market_share", "Percentage of total sessions", func(s *semantic.Scope) expr.Node {
			return share(s, "session_count")
		}),
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Users returns the users entity over base,
// which must provide the columns of UsersSchema.
func Users(base *semantic.BaseTable) (*semantic.Table, error) {
	t, err := semantic.NewTable("users", base)
	if err != nil {
		return nil, err
	}
	err = t.WithDimensions(
		dim("user_key", ""),
		dim("user_id", ""),
		dim("email", ""),

		dim("first_event_date", ""),
		dim("last_event_date", ""),
		dim("days_since_last_event", ""),

		dim("current_plan_tier", "Current subscription tier"),
		dim("max_lifecycle_stage_name", "Highest lifecycle stage reached by user"),
		dim("is_active_7d", ""),
		dim("is_active_30d", ""),
		dim("is_paying_customer", ""),

		dim("first_touch_utm_source", ""),
		dim("first_touch_utm_medium", ""),
		dim("first_touch_utm_campaign", ""),
	)
	if err != nil {
		return nil, err
	}
	active7d := func(s *semantic.Scope) semantic.Cond { return s.Col("is_active_7d").Eq(true) }
	active30d := func(s *semantic.Scope) semantic.Cond { return s.Col("is_active_30d").Eq(true) }
	paying := func(s *semantic.Scope) semantic.Cond { return s.Col("is_paying_customer").Eq(true) }
	activated := func(s *semantic.Scope) semantic.Cond { return s.Col("has_activated").Eq(1) }
	err = t.WithMeasures(
		measure("user_count", "Total number of users", func(s *semantic.Scope) expr.Node {
			return s.Count()
		}),
		measure("active_users_7d", "Users active in last 7 days", func(s *semantic.Scope) expr.Node {
			return active7d(s).Sum()
		}),
		measure("active_users_30d", "", func(s *semantic.Scope) expr.Node {
			return active30d(s).Sum()
		}),
		measure("paying_customers", "", func(s *semantic.Scope) expr.Node {
			return paying(s).Sum()
		}),
		measure("activated_users", "", func(s *semantic.Scope) expr.Node {
			return activated(s).Sum()
		}),

		measure("avg_lifetime_events", "Average events per user (lifetime)", mean("total_events")),
		measure("avg_lifetime_sessions", "", mean("total_sessions")),
		measure("avg_days_active", "", mean("total_days_active")),

		measure("avg_events_7d", "", mean("events_7d")),
		measure("avg_sessions_7d", "", mean("sessions_7d")),
		measure("avg_events_30d", "", mean("events_30d")),
		measure("avg_sessions_30d", "", mean("sessions_30d")),

		measure("total_ltv", "Total lifetime value across all users", sum("total_revenue")),
		measure("avg_ltv", "", mean("total_revenue")),
		measure("avg_revenue_30d", "", mean("revenue_30d")),
		measure("revenue_per_active_user", "", func(s *semantic.Scope) expr.Node {
			return expr.Div(s.Measure("total_ltv"), s.Measure("active_users_30d"))
		}),

		measure("retention_rate_7d", "Percentage of users active in last 7 days", func(s *semantic.Scope) expr.Node {
			return percent(active7d(s))
		}),
		measure("retention_rate_30d", "", func(s *semantic.Scope) expr.Node {
			return percent(active30d(s))
		}),
		measure("activation_rate", "", func(s *semantic.Scope) expr.Node {
			return percent(activated(s))
		}),
		measure("paying_rate", "", func(s *semantic.Scope) expr.Node {
			return percent(paying(s))
		}),

		measure("power_users", "Users with >100 events and >20 sessions in last 30 days", func(s *semantic.Scope) expr.Node {
			return s.Col("events_30d").Gt(100).And(s.Col("sessions_30d").Gt(20)).Sum()
		}),
		measure("casual_users", "", func(s *semantic.Scope) expr.Node {
			return s.Col("events_30d").Between(10, 100).And(s.Col("sessions_30d").Between(5, 20)).Sum()
		}),
		measure("at_risk_users", "", func(s *semantic.Scope) expr.Node {
			return s.Col("days_since_last_event").Gt(30).And(s.Col("is_active_30d").Eq(false)).Sum()
		}),

		measure("stickiness_30d", "Average days active per active user (30d)", func(s *semantic.Scope) expr.Node {
			return expr.Div(s.Col("days_active_30d").Sum(), s.Measure("active_users_30d"))
		}),

		measure("market_share", "", func(s *semantic.Scope) expr.Node {
			return share(s, "user_count")
		}),
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
