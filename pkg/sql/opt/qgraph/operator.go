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

package qgraph

// Operator identifies the kind of a query graph node.
type Operator uint8

const (
	UnknownOp Operator = iota

	// ScanOp reads a subset of the columns of a base table. It has no inputs.
	ScanOp

	// FilterOp discards the rows of its input for which the predicate is not
	// true. Its output columns are the columns of its input.
	FilterOp

	// ProjectOp computes one output column per projection.
	ProjectOp

	// JoinOp combines the rows of its two inputs according to the join
	// condition, and outputs a chosen subset of the combined columns.
	JoinOp

	// LimitOp returns at most Count rows of its input.
	LimitOp

	// SortOp orders the rows of its input.
	SortOp

	// GroupByOp groups the rows of its input and computes aggregates per group.
	// Its output is the grouping columns followed by one column per aggregate.
	GroupByOp

	// This should be last.
	numOperators
)

type operatorInfo struct {
	name string
	// arity is the number of inputs every node of this operator has.
	arity int
	// passthrough is set for operators that output every column of their
	// single input unchanged.
	passthrough bool
}

var operatorTab = [numOperators]operatorInfo{
	UnknownOp: {name: "unknown"},
	ScanOp:    {name: "scan", arity: 0},
	FilterOp:  {name: "filter", arity: 1, passthrough: true},
	ProjectOp: {name: "project", arity: 1},
	JoinOp:    {name: "join", arity: 2},
	LimitOp:   {name: "limit", arity: 1, passthrough: true},
	SortOp:    {name: "sort", arity: 1, passthrough: true},
	GroupByOp: {name: "group-by", arity: 1},
}

func (op Operator) String() string {
	if op >= numOperators {
		return "unknown"
	}
	return operatorTab[op].name
}

// SafeValue implements redact.SafeValue.
func (Operator) SafeValue() {}

// Arity returns the number of inputs of nodes with this operator.
func (op Operator) Arity() int {
	return operatorTab[op].arity
}

// Passthrough returns true if nodes with this operator output all columns of
// their input, in order.
func (op Operator) Passthrough() bool {
	return operatorTab[op].passthrough
}

// JoinKind is the flavor of a JoinOp node.
type JoinKind uint8

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left"
	}
	return "unknown"
}

// BinaryOp is the operator of a BinaryExpr.
type BinaryOp uint8

const (
	EqOp BinaryOp = iota
	NeOp
	LtOp
	LeOp
	GtOp
	GeOp
	AndOp
	OrOp
	PlusOp
	MinusOp
	MultOp
	DivOp

	numBinaryOps
)

var binaryOpTab = [numBinaryOps]struct {
	sym, name string
}{
	EqOp:    {"=", "eq"},
	NeOp:    {"!=", "ne"},
	LtOp:    {"<", "lt"},
	LeOp:    {"<=", "le"},
	GtOp:    {">", "gt"},
	GeOp:    {">=", "ge"},
	AndOp:   {"AND", "and"},
	OrOp:    {"OR", "or"},
	PlusOp:  {"+", "plus"},
	MinusOp: {"-", "minus"},
	MultOp:  {"*", "mult"},
	DivOp:   {"/", "div"},
}

func (op BinaryOp) String() string {
	if op >= numBinaryOps {
		return "?"
	}
	return binaryOpTab[op].sym
}

// BinaryOpFromName returns the operator with the given short name (eq, lt,
// and, plus, ...).
func BinaryOpFromName(name string) (BinaryOp, bool) {
	for i := range binaryOpTab {
		if binaryOpTab[i].name == name || binaryOpTab[i].sym == name {
			return BinaryOp(i), true
		}
	}
	return 0, false
}

// Comparison returns true for operators that compare their operands.
func (op BinaryOp) Comparison() bool {
	return op <= GeOp
}

// Logical returns true for AND and OR.
func (op BinaryOp) Logical() bool {
	return op == AndOp || op == OrOp
}

// AggFunc is an aggregate function computed by a GroupByOp node.
type AggFunc uint8

const (
	CountRowsAgg AggFunc = iota
	CountAgg
	SumAgg
	MinAgg
	MaxAgg

	numAggFuncs
)

var aggFuncNames = [numAggFuncs]string{
	CountRowsAgg: "count_rows",
	CountAgg:     "count",
	SumAgg:       "sum",
	MinAgg:       "min",
	MaxAgg:       "max",
}

func (f AggFunc) String() string {
	if f >= numAggFuncs {
		return "unknown"
	}
	return aggFuncNames[f]
}

// AggFuncFromName returns the aggregate function with the given name.
func AggFuncFromName(name string) (AggFunc, bool) {
	for i, n := range aggFuncNames {
		if n == name {
			return AggFunc(i), true
		}
	}
	return 0, false
}

// HasArg returns false for aggregates that take no argument column.
func (f AggFunc) HasArg() bool {
	return f != CountRowsAgg
}
