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

import (
	"strconv"

	"github.com/cockroachdb/qgraph/pkg/sql/types"
)

// NodeID identifies a node in a Graph. IDs are assigned densely, in creation
// order, and are never reused within a graph.
type NodeID int32

// SafeValue implements redact.SafeValue.
func (NodeID) SafeValue() {}

func (id NodeID) String() string {
	return strconv.Itoa(int(id))
}

// ScanColumn is a base table column read by a ScanOp node.
type ScanColumn struct {
	Name string
	Typ  types.T
}

// OrderingColumn is one column of a SortOp ordering.
type OrderingColumn struct {
	Col  int
	Desc bool
}

// Aggregate is one aggregate computed by a GroupByOp node. Arg is an offset
// into the input row; it is ignored for aggregates without an argument.
type Aggregate struct {
	Func AggFunc
	Arg  int
}

// Node is a single operator of the query graph. Only the fields that belong
// to Op are meaningful.
//
// Nodes are immutable once added to a graph, with the single exception of
// Inputs, which Graph.ApplyReplacements rewrites in place. Rules construct
// modified nodes from a Copy.
type Node struct {
	Op     Operator
	Inputs []NodeID

	// Table and ScanCols describe a ScanOp. MaxRows is an optional upper bound
	// on the table's row count; zero means unknown.
	Table    string
	ScanCols []ScanColumn
	MaxRows  int64

	// Predicate is the filter of a FilterOp, or the join condition of a JoinOp.
	// A nil predicate is always true.
	Predicate ScalarExpr

	// JoinKind and Cols describe a JoinOp. Cols lists the offsets of the
	// combined input row that the join outputs, in output order.
	JoinKind JoinKind
	Cols     []int

	// Projections are the output expressions of a ProjectOp.
	Projections []ScalarExpr

	// Count is the row limit of a LimitOp.
	Count int64

	// Ordering is the sort order of a SortOp.
	Ordering []OrderingColumn

	// GroupCols and Aggs describe a GroupByOp.
	GroupCols []int
	Aggs      []Aggregate
}

// Copy returns a copy of the node that shares no mutable state with n.
// Scalar expressions are immutable and remain shared.
func (n *Node) Copy() *Node {
	c := *n
	c.Inputs = append([]NodeID(nil), n.Inputs...)
	c.ScanCols = append([]ScanColumn(nil), n.ScanCols...)
	c.Cols = append([]int(nil), n.Cols...)
	c.Projections = append([]ScalarExpr(nil), n.Projections...)
	c.Ordering = append([]OrderingColumn(nil), n.Ordering...)
	c.GroupCols = append([]int(nil), n.GroupCols...)
	c.Aggs = append([]Aggregate(nil), n.Aggs...)
	return &c
}

// RemapColumns returns a copy of n in which every reference into the combined
// input row has been renumbered through remap. The inputs are unchanged.
func (n *Node) RemapColumns(remap func(col int) int) *Node {
	c := n.Copy()
	if c.Predicate != nil {
		c.Predicate = RemapScalar(c.Predicate, remap)
	}
	for i := range c.Cols {
		c.Cols[i] = remap(c.Cols[i])
	}
	for i := range c.Projections {
		c.Projections[i] = RemapScalar(c.Projections[i], remap)
	}
	for i := range c.Ordering {
		c.Ordering[i].Col = remap(c.Ordering[i].Col)
	}
	for i := range c.GroupCols {
		c.GroupCols[i] = remap(c.GroupCols[i])
	}
	for i := range c.Aggs {
		if c.Aggs[i].Func.HasArg() {
			c.Aggs[i].Arg = remap(c.Aggs[i].Arg)
		}
	}
	return c
}

// referencedCols returns the columns of the combined input row that n
// references in its parameters. It does not include columns that a
// passthrough operator forwards to its output.
func (n *Node) referencedCols() ColSet {
	var cols ColSet
	if n.Predicate != nil {
		addScalarCols(n.Predicate, &cols)
	}
	for _, c := range n.Cols {
		cols.Add(c)
	}
	for _, p := range n.Projections {
		addScalarCols(p, &cols)
	}
	for _, o := range n.Ordering {
		cols.Add(o.Col)
	}
	for _, c := range n.GroupCols {
		cols.Add(c)
	}
	for _, a := range n.Aggs {
		if a.Func.HasArg() {
			cols.Add(a.Arg)
		}
	}
	return cols
}

func aggType(f AggFunc, arg types.T) types.T {
	switch f {
	case CountRowsAgg, CountAgg:
		return types.Int
	case SumAgg:
		if arg == types.Int {
			return types.Decimal
		}
	}
	return arg
}
