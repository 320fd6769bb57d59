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

package expr

import (
	"fmt"
	"testing"
)

func TestQuote(t *testing.T) {
	tcs := []struct {
		in, out string
	}{
		{"foo", "'foo'"},
		{"", "''"},
		{"it's", "'it''s'"},
		{"'xyz'", "'''xyz'''"},
		{`a\b`, `'a\b'`},
		{"żółw", "'żółw'"},
	}
	for i := range tcs {
		tc := &tcs[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			quoted := Quote(tc.in)
			if quoted != tc.out {
				t.Logf("got  = %s", quoted)
				t.Logf("want = %s", tc.out)
				t.Errorf("wrong quote")
			}
			// the parser must read back
			// exactly what was quoted
			n, err := Parse(quoted)
			if err != nil {
				t.Fatal(err)
			}
			if n != String(tc.in) {
				t.Errorf("parsed %#v", n)
			}
		})
	}
}

func TestQuoteID(t *testing.T) {
	tcs := []struct {
		in, out string
	}{
		{"plan_tier", "plan_tier"},
		{"PlanTier2", "PlanTier2"},
		{"2x", `"2x"`},
		{"select", `"select"`},
		{"Order", `"Order"`},
		{"a-b", `"a-b"`},
		{`x"y`, `"x""y"`},
		{"", `""`},
	}
	for i := range tcs {
		if got := QuoteID(tcs[i].in); got != tcs[i].out {
			t.Errorf("QuoteID(%q) = %s, want %s", tcs[i].in, got, tcs[i].out)
		}
	}
}
