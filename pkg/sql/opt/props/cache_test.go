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

package props_test

import (
	"testing"

	"github.com/cockroachdb/qgraph/pkg/sql/opt/props"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func scan(g *qgraph.Graph, table string, maxRows int64, typs ...types.T) qgraph.NodeID {
	n := &qgraph.Node{Op: qgraph.ScanOp, Table: table, MaxRows: maxRows}
	for _, t := range typs {
		n.ScanCols = append(n.ScanCols, qgraph.ScanColumn{Name: table, Typ: t})
	}
	return g.AddNode(n)
}

func TestCacheMaxRows(t *testing.T) {
	g := qgraph.New()
	a := scan(g, "a", 10, types.Int)
	b := scan(g, "b", 0, types.Int)
	c := scan(g, "c", 3, types.Int)
	empty := scan(g, "e", 0, types.Int)
	lim := g.AddNode(&qgraph.Node{Op: qgraph.LimitOp, Inputs: []qgraph.NodeID{b}, Count: 5})
	bigLim := g.AddNode(&qgraph.Node{Op: qgraph.LimitOp, Inputs: []qgraph.NodeID{a}, Count: 50})
	inner := g.AddNode(&qgraph.Node{Op: qgraph.JoinOp, Inputs: []qgraph.NodeID{a, c}, Cols: []int{0}})
	unknown := g.AddNode(&qgraph.Node{Op: qgraph.JoinOp, Inputs: []qgraph.NodeID{a, b}, Cols: []int{0}})
	left := g.AddNode(&qgraph.Node{
		Op: qgraph.JoinOp, JoinKind: qgraph.LeftJoin, Inputs: []qgraph.NodeID{c, lim}, Cols: []int{0, 1},
	})
	scalarAgg := g.AddNode(&qgraph.Node{
		Op: qgraph.GroupByOp, Inputs: []qgraph.NodeID{b}, Aggs: []qgraph.Aggregate{{Func: qgraph.CountRowsAgg}},
	})

	c0 := props.New(g)
	require.Equal(t, props.MaxRows{Rows: 10, Known: true}, c0.MaxRows(a))
	require.Equal(t, props.MaxRows{}, c0.MaxRows(b))
	require.Equal(t, props.MaxRows{}, c0.MaxRows(empty))
	require.Equal(t, props.MaxRows{Rows: 5, Known: true}, c0.MaxRows(lim))
	require.Equal(t, props.MaxRows{Rows: 10, Known: true}, c0.MaxRows(bigLim))
	require.Equal(t, props.MaxRows{Rows: 30, Known: true}, c0.MaxRows(inner))
	require.Equal(t, props.MaxRows{}, c0.MaxRows(unknown))
	require.Equal(t, props.MaxRows{Rows: 15, Known: true}, c0.MaxRows(left))
	require.Equal(t, props.MaxRows{Rows: 1, Known: true}, c0.MaxRows(scalarAgg))
}

func TestCacheInvalidation(t *testing.T) {
	g := qgraph.New()
	a := scan(g, "a", 10, types.Int, types.String)
	lim := g.AddNode(&qgraph.Node{Op: qgraph.LimitOp, Inputs: []qgraph.NodeID{a}, Count: 100})
	p := g.AddNode(&qgraph.Node{
		Op:          qgraph.ProjectOp,
		Inputs:      []qgraph.NodeID{lim},
		Projections: []qgraph.ScalarExpr{&qgraph.ColRef{Index: 1, Typ: types.String}},
	})
	g.SetEntryNode(p)

	c := props.FromGraph(g)
	require.Same(t, c, props.FromGraph(g))

	require.Equal(t, []types.T{types.String}, c.ColumnTypes(p))
	require.Equal(t, qgraph.MakeColSet(1), c.OuterCols(p))
	require.Equal(t, props.MaxRows{Rows: 10, Known: true}, c.MaxRows(p))
	misses := c.Misses
	require.Equal(t, props.MaxRows{Rows: 10, Known: true}, c.MaxRows(p))
	require.Equal(t, misses, c.Misses)
	require.Equal(t, 1, c.Hits)

	// Replace the scan with a smaller one. The project's cached bound is
	// discarded along with its input's, and recomputed from the new plan.
	a2 := scan(g, "a", 2, types.Int, types.String)
	_, err := g.ApplyReplacements(qgraph.Batch{{Old: a, New: a2}})
	require.NoError(t, err)
	require.Equal(t, props.MaxRows{Rows: 2, Known: true}, c.MaxRows(lim))
	require.Equal(t, props.MaxRows{Rows: 2, Known: true}, c.MaxRows(p))

	c.Invalidate(p)
	require.Equal(t, props.MaxRows{Rows: 2, Known: true}, c.MaxRows(p))
}
