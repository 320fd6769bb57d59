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

// TypeSet is a bitmask of the
// types an expression may evaluate to.
type TypeSet uint16

const (
	BoolType    TypeSet = 1 << iota
	IntegerType         // signed 64-bit integers
	FloatType           // double-precision floats
	StringType
	TimeType // dates and timestamps
	NullType

	// NoType is the empty TypeSet;
	// an expression with NoType cannot
	// be evaluated.
	NoType TypeSet = 0
	// NumericType is the set of
	// number types.
	NumericType = IntegerType | FloatType
	// AnyType is the TypeSet that
	// contains all types.
	AnyType = BoolType | NumericType | StringType | TimeType | NullType
)

// Only returns whether or not t
// contains only the types in set.
// (In other words, Only computes
// whether or not the intersection
// of t and set is equal to t.)
func (t TypeSet) Only(set TypeSet) bool {
	return (t &^ set) == 0
}

// AnyOf returns whether or not t
// contains any of the types in set.
func (t TypeSet) AnyOf(set TypeSet) bool {
	return (t & set) != 0
}

// Scalar returns t without NullType.
func (t TypeSet) Scalar() TypeSet { return t &^ NullType }

func (t TypeSet) String() string {
	if t == AnyType {
		return "any"
	}
	if t == NoType {
		return "none"
	}
	var parts []string
	names := []struct {
		bit  TypeSet
		name string
	}{
		{BoolType, "bool"},
		{IntegerType, "integer"},
		{FloatType, "float"},
		{StringType, "string"},
		{TimeType, "time"},
		{NullType, "null"},
	}
	for i := range names {
		if t&names[i].bit != 0 {
			parts = append(parts, names[i].name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseType maps a type name onto a TypeSet.
// ParseType accepts the short names used in
// model files (bool, int, float, string, time)
// as well as the column type names reported
// by the supported databases (BIGINT, DOUBLE,
// VARCHAR(255), TIMESTAMP WITH TIME ZONE, ...).
// Unrecognized names yield AnyType.
func ParseType(name string) TypeSet {
	s := strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexAny(s, "( "); i > 0 {
		// strip VARCHAR(255), DECIMAL(18, 2),
		// TIMESTAMP WITH TIME ZONE, BIGINT UNSIGNED
		s = s[:i]
	}
	switch s {
	case "bool", "boolean", "logical":
		return BoolType
	case "int", "integer", "int2", "int4", "int8", "tinyint", "smallint",
		"mediumint", "bigint", "hugeint", "ubigint", "uinteger", "usmallint",
		"utinyint", "long", "short":
		return IntegerType
	case "float", "float4", "float8", "double", "real", "decimal",
		"numeric", "number":
		return FloatType
	case "string", "text", "varchar", "char", "character", "uuid",
		"json", "enum", "tinytext", "mediumtext", "longtext", "clob":
		return StringType
	case "time", "date", "datetime", "timestamp", "timestamptz",
		"timestamp_s", "timestamp_ms", "timestamp_ns":
		return TimeType
	}
	return AnyType
}
