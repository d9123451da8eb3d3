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
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/qgraph/pkg/sql/types"
)

// ScalarExpr is a scalar expression evaluated over the combined input row of
// a node. Column references are offsets into that row: for a join, the left
// input's columns come first, followed by the right input's columns.
//
// Scalar expressions are immutable. Rewrites that need a different expression
// build a new one, usually through RemapScalar.
type ScalarExpr interface {
	// Type returns the type the expression evaluates to.
	Type() types.T

	// Format writes the expression in the notation used by Graph.String.
	Format(buf *strings.Builder)

	scalar()
}

// ColRef references the column at offset Index of the combined input row.
type ColRef struct {
	Index int
	Typ   types.T
}

// Const is a constant value. A nil Value is NULL.
type Const struct {
	Value interface{}
	Typ   types.T
}

// BinaryExpr applies a binary operator to two scalar operands.
type BinaryExpr struct {
	Op    BinaryOp
	Left  ScalarExpr
	Right ScalarExpr
}

func (*ColRef) scalar()     {}
func (*Const) scalar()      {}
func (*BinaryExpr) scalar() {}

// Type is part of the ScalarExpr interface.
func (c *ColRef) Type() types.T { return c.Typ }

// Type is part of the ScalarExpr interface.
func (c *Const) Type() types.T { return c.Typ }

// Type is part of the ScalarExpr interface.
func (b *BinaryExpr) Type() types.T {
	if b.Op.Comparison() || b.Op.Logical() {
		return types.Bool
	}
	return b.Left.Type()
}

// Format is part of the ScalarExpr interface.
func (c *ColRef) Format(buf *strings.Builder) {
	buf.WriteByte('@')
	buf.WriteString(strconv.Itoa(c.Index))
}

// Format is part of the ScalarExpr interface.
func (c *Const) Format(buf *strings.Builder) {
	switch v := c.Value.(type) {
	case nil:
		buf.WriteString("NULL")
	case string:
		buf.WriteByte('\'')
		buf.WriteString(v)
		buf.WriteByte('\'')
	default:
		fmt.Fprintf(buf, "%v", v)
	}
}

// Format is part of the ScalarExpr interface.
func (b *BinaryExpr) Format(buf *strings.Builder) {
	buf.WriteByte('(')
	b.Left.Format(buf)
	buf.WriteByte(' ')
	buf.WriteString(b.Op.String())
	buf.WriteByte(' ')
	b.Right.Format(buf)
	buf.WriteByte(')')
}

// FormatScalar returns the expression in the notation used by Graph.String.
func FormatScalar(e ScalarExpr) string {
	if e == nil {
		return "true"
	}
	var buf strings.Builder
	e.Format(&buf)
	return buf.String()
}

// ScalarCols returns the set of input columns referenced by the expression.
func ScalarCols(e ScalarExpr) ColSet {
	var cols ColSet
	addScalarCols(e, &cols)
	return cols
}

func addScalarCols(e ScalarExpr, cols *ColSet) {
	switch t := e.(type) {
	case *ColRef:
		cols.Add(t.Index)
	case *BinaryExpr:
		addScalarCols(t.Left, cols)
		addScalarCols(t.Right, cols)
	}
}

// RemapScalar returns an expression identical to e, except that every column
// reference has been renumbered through remap. Subtrees without column
// references are shared with e.
func RemapScalar(e ScalarExpr, remap func(col int) int) ScalarExpr {
	switch t := e.(type) {
	case *ColRef:
		if idx := remap(t.Index); idx != t.Index {
			return &ColRef{Index: idx, Typ: t.Typ}
		}
		return t
	case *BinaryExpr:
		left := RemapScalar(t.Left, remap)
		right := RemapScalar(t.Right, remap)
		if left == t.Left && right == t.Right {
			return t
		}
		return &BinaryExpr{Op: t.Op, Left: left, Right: right}
	}
	return e
}

// And returns the conjunction of two predicates. A nil predicate is
// equivalent to true.
func And(left, right ScalarExpr) ScalarExpr {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	}
	return &BinaryExpr{Op: AndOp, Left: left, Right: right}
}
