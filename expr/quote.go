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
	"strings"
)

// Quote produces a SQL single-quoted string.
// Single quotes are escaped by doubling them.
func Quote(s string) string {
	var buf strings.Builder
	quote(&buf, s, false)
	return buf.String()
}

func quote(out *strings.Builder, s string, backslash bool) {
	out.WriteByte('\'')
	for _, r := range s {
		switch {
		case r == '\'':
			out.WriteString("''")
		case r == '\\' && backslash:
			out.WriteString(`\\`)
		default:
			out.WriteRune(r)
		}
	}
	out.WriteByte('\'')
}

// reserved is the set of words that
// cannot appear as a bare identifier
// in any of the supported dialects
var reserved = map[string]struct{}{
	"all": {}, "and": {}, "as": {}, "asc": {}, "between": {}, "by": {},
	"case": {}, "cast": {}, "create": {}, "cross": {}, "date": {},
	"default": {}, "desc": {}, "distinct": {}, "else": {}, "end": {},
	"except": {}, "exists": {}, "false": {}, "from": {}, "full": {},
	"group": {}, "having": {}, "in": {}, "inner": {}, "interval": {},
	"is": {}, "join": {}, "key": {}, "left": {}, "like": {}, "limit": {},
	"not": {}, "null": {}, "offset": {}, "on": {}, "or": {}, "order": {},
	"outer": {}, "right": {}, "select": {}, "table": {}, "then": {},
	"timestamp": {}, "to": {}, "true": {}, "union": {}, "user": {},
	"using": {}, "values": {}, "when": {}, "where": {}, "window": {},
	"with": {},
}

// IsKeyword returns whether s is a reserved
// word that must be quoted when used as
// an identifier.
func IsKeyword(s string) bool {
	_, ok := reserved[strings.ToLower(s)]
	return ok
}

// QuoteID produces a textual SQL identifier
// for the DuckDB dialect; the returned string will
// be double-quoted if it is not a plain identifier
// or if it is a keyword.
func QuoteID(s string) string {
	return quoteID(s, '"')
}

func plainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return !IsKeyword(s)
}

func quoteID(s string, q byte) string {
	if plainIdent(s) {
		return s
	}
	var buf strings.Builder
	buf.WriteByte(q)
	for i := 0; i < len(s); i++ {
		if s[i] == q {
			buf.WriteByte(q)
		}
		buf.WriteByte(s[i])
	}
	buf.WriteByte(q)
	return buf.String()
}
