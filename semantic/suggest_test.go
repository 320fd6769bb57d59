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
	"errors"
	"testing"
)

func TestDistance(t *testing.T) {
	testcases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"plan_tier", "plan_tier", 0},
		{"plan_teir", "plan_tier", 1},
		{"plan_ter", "plan_tier", 1},
		{"plan_tierr", "plan_tier", 1},
		{"kitten", "sitting", 3},
		{"ca", "abc", 3},
		{"żółw", "zółw", 1},
	}
	for i := range testcases {
		tc := &testcases[i]
		if got := distance(tc.a, tc.b); got != tc.want {
			t.Errorf("distance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	names := []string{"session_count", "total_revenue", "plan_tier", "device_type"}
	testcases := []struct {
		in, want string
	}{
		{"sesion_count", "session_count"},
		{"total_revenu", "total_revenue"},
		{"plan", ""},
		{"xyz", ""},
		{"plan_tier", ""},
	}
	for _, tc := range testcases {
		if got := suggest(tc.in, names); got != tc.want {
			t.Errorf("suggest(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUnknownNameSuggestion(t *testing.T) {
	tbl := testTable(t)
	_, err := tbl.Query().Aggregate([]string{"total_revenu"})
	var ue *UnknownNameError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnknownNameError, got %v", err)
	}
	if ue.Suggest != "total_revenue" {
		t.Errorf("suggestion %q", ue.Suggest)
	}
	want := `sessions: unknown measure "total_revenu" (did you mean "total_revenue"?)`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	_, err = tbl.Query().GroupBy("zzz")
	if !errors.As(err, &ue) || ue.Suggest != "" {
		t.Errorf("unexpected suggestion for zzz: %v", err)
	}
}
