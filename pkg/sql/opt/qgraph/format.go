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
	"strings"
)

// FmtFlags controls the output of Graph.Format.
type FmtFlags uint8

const (
	// FmtShowIDs appends the node id to every line.
	FmtShowIDs FmtFlags = 1 << iota
	// FmtShowTypes appends the output column types to every line.
	FmtShowTypes
)

// String renders the plan rooted at the entry node, one node per line, with
// inputs indented below their parent.
func (g *Graph) String() string {
	return g.Format(0)
}

// Format renders the plan rooted at the entry node. A node reachable through
// several paths is printed once per path.
func (g *Graph) Format(flags FmtFlags) string {
	var buf strings.Builder
	depth := 0
	Walk(g, VisitorFuncs{
		Pre: func(g *Graph, id *NodeID) Action {
			for i := 0; i < depth; i++ {
				buf.WriteString("  ")
			}
			buf.WriteString(g.FormatNode(*id))
			if flags&FmtShowTypes != 0 {
				fmt.Fprintf(&buf, " %v", g.ColumnTypes(*id))
			}
			if flags&FmtShowIDs != 0 {
				fmt.Fprintf(&buf, " #%d", *id)
			}
			buf.WriteByte('\n')
			depth++
			return VisitInputs
		},
		Post: func(g *Graph, id *NodeID) Action {
			depth--
			return Continue
		},
	})
	return buf.String()
}

// FormatNode renders a single node, without its inputs.
func (g *Graph) FormatNode(id NodeID) string {
	n := g.Node(id)
	var buf strings.Builder
	switch n.Op {
	case ScanOp:
		fmt.Fprintf(&buf, "scan %s (", n.Table)
		for i, c := range n.ScanCols {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "%s:%s", c.Name, c.Typ)
		}
		buf.WriteByte(')')
		if n.MaxRows > 0 {
			fmt.Fprintf(&buf, " max-rows=%d", n.MaxRows)
		}

	case FilterOp:
		buf.WriteString("filter ")
		buf.WriteString(FormatScalar(n.Predicate))

	case ProjectOp:
		buf.WriteString("project")
		for i, p := range n.Projections {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte(' ')
			p.Format(&buf)
		}

	case JoinOp:
		fmt.Fprintf(&buf, "%s-join on %s cols=%s", n.JoinKind, FormatScalar(n.Predicate), formatCols(n.Cols))

	case LimitOp:
		fmt.Fprintf(&buf, "limit %d", n.Count)

	case SortOp:
		buf.WriteString("sort ")
		for i, o := range n.Ordering {
			if i > 0 {
				buf.WriteByte(',')
			}
			if o.Desc {
				buf.WriteByte('-')
			} else {
				buf.WriteByte('+')
			}
			fmt.Fprintf(&buf, "@%d", o.Col)
		}

	case GroupByOp:
		fmt.Fprintf(&buf, "group-by %s aggs=(", formatCols(n.GroupCols))
		for i, a := range n.Aggs {
			if i > 0 {
				buf.WriteString(", ")
			}
			if a.Func.HasArg() {
				fmt.Fprintf(&buf, "%s(@%d)", a.Func, a.Arg)
			} else {
				fmt.Fprintf(&buf, "%s()", a.Func)
			}
		}
		buf.WriteByte(')')

	default:
		buf.WriteString(n.Op.String())
	}
	return buf.String()
}
