// Copyright 2026 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package types

import "github.com/cockroachdb/redact"

// T is the type of a single column produced by a query graph node. Types are
// only compared as column signatures; values are never evaluated.
type T uint8

const (
	// Unknown is the type of an expression whose type could not be
	// determined, such as a NULL constant.
	Unknown T = iota
	Bool
	Int
	Float
	Decimal
	String
	Bytes
	Timestamp
)

var typeNames = [...]string{
	Unknown:   "unknown",
	Bool:      "bool",
	Int:       "int",
	Float:     "float",
	Decimal:   "decimal",
	String:    "string",
	Bytes:     "bytes",
	Timestamp: "timestamp",
}

// String implements fmt.Stringer.
func (t T) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// SafeValue implements redact.SafeValue. Type names never carry user data.
func (t T) SafeValue() {}

var _ redact.SafeValue = T(0)

// FromString returns the type with the given name.
func FromString(name string) (T, bool) {
	for i, n := range typeNames {
		if n == name {
			return T(i), true
		}
	}
	switch name {
	case "integer", "int8", "bigint":
		return Int, true
	case "boolean":
		return Bool, true
	case "text", "varchar":
		return String, true
	}
	return Unknown, false
}

// Numeric returns true if values of the type support arithmetic.
func (t T) Numeric() bool {
	switch t {
	case Int, Float, Decimal:
		return true
	}
	return false
}

// Equivalent returns true if two column signatures have the same length and
// the same type at every position.
func Equivalent(a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
