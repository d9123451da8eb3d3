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

package norm

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func intScan(table string, n int) *qgraph.Node {
	s := &qgraph.Node{Op: qgraph.ScanOp, Table: table}
	for i := 0; i < n; i++ {
		s.ScanCols = append(s.ScanCols, qgraph.ScanColumn{Name: fmt.Sprintf("%s%d", table, i), Typ: types.Int})
	}
	return s
}

func project(input qgraph.NodeID, cols ...int) *qgraph.Node {
	p := &qgraph.Node{Op: qgraph.ProjectOp, Inputs: []qgraph.NodeID{input}}
	for _, c := range cols {
		p.Projections = append(p.Projections, &qgraph.ColRef{Index: c, Typ: types.Int})
	}
	return p
}

func allCols(n int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = i
	}
	return res
}

// commit applies PruneCols to id and commits the batch.
func commit(t *testing.T, g *qgraph.Graph, id qgraph.NodeID) qgraph.Batch {
	t.Helper()
	b, err := PruneCols.Apply(g, id)
	require.NoError(t, err)
	require.NotNil(t, b)
	_, err = g.ApplyReplacements(b)
	require.NoError(t, err)
	return b
}

// TestPruneJoinCols prunes a join of two 10-column scans whose parents use
// columns {0,3,4} and {12,15,18} of the join.
func TestPruneJoinCols(t *testing.T) {
	g := qgraph.New()
	a := g.AddNode(intScan("a", 10))
	b := g.AddNode(intScan("b", 10))
	j := g.AddNode(&qgraph.Node{
		Op:     qgraph.JoinOp,
		Inputs: []qgraph.NodeID{a, b},
		Predicate: &qgraph.BinaryExpr{
			Op:    qgraph.EqOp,
			Left:  &qgraph.ColRef{Index: 0, Typ: types.Int},
			Right: &qgraph.ColRef{Index: 10, Typ: types.Int},
		},
		Cols: allCols(20),
	})
	p1 := g.AddNode(project(j, 0, 3, 4))
	p2 := g.AddNode(project(j, 18, 12, 15))
	top := g.AddNode(&qgraph.Node{Op: qgraph.JoinOp, Inputs: []qgraph.NodeID{p1, p2}, Cols: allCols(6)})
	g.SetEntryNode(top)
	before := g.ColumnTypes(top)

	batch := commit(t, g, j)
	require.Len(t, batch, 3)
	require.Equal(t, qgraph.Replacement{Old: j, New: batch[0].New}, batch[0])

	pruned := g.Resolve(j)
	require.Equal(t, []int{0, 3, 4, 12, 15, 18}, g.Node(pruned).Cols)
	require.Equal(t, 6, g.NumColumns(pruned))
	require.Equal(t, "project @0, @1, @2", g.FormatNode(g.Resolve(p1)))
	require.Equal(t, "project @5, @3, @4", g.FormatNode(g.Resolve(p2)))
	require.Equal(t, []qgraph.NodeID{g.Resolve(p1), g.Resolve(p2)}, g.Inputs(g.EntryNode()))
	require.Equal(t, before, g.ColumnTypes(g.EntryNode()))

	// No node of the arena refers to the old join any more.
	for id := qgraph.NodeID(0); int(id) < g.Len(); id++ {
		require.NotContains(t, g.Inputs(id), j, "node %d", id)
	}

	// The join no longer needs most scan columns, so the scans can be pruned
	// in turn, renumbering the join.
	commit(t, g, a)
	require.Equal(t, "inner-join on (@0 = @3) cols=(0-2,5,8,11)", g.FormatNode(g.Resolve(j)))
	commit(t, g, b)
	require.Equal(t, "inner-join on (@0 = @3) cols=(0-2,4-6)", g.FormatNode(g.Resolve(j)))
	require.Equal(t, 3, g.NumColumns(g.Resolve(a)))
	require.Equal(t, 4, g.NumColumns(g.Resolve(b)))
	require.Equal(t, before, g.ColumnTypes(g.EntryNode()))

	// Everything is minimal now.
	for _, id := range g.Reachable() {
		b, err := PruneCols.Apply(g, id)
		require.NoError(t, err)
		require.Nil(t, b, "node %d", id)
	}
}

func TestPruneColsEntryNode(t *testing.T) {
	g := qgraph.New()
	s := g.AddNode(intScan("t", 3))
	g.SetEntryNode(s)
	b, err := PruneCols.Apply(g, s)
	require.NoError(t, err)
	require.Nil(t, b)

	// A projection at the root keeps all its columns, even those that are
	// never referenced inside the plan.
	p := g.AddNode(project(s, 1, 2, 0))
	g.SetEntryNode(p)
	b, err = PruneCols.Apply(g, p)
	require.NoError(t, err)
	require.Nil(t, b)
}

func TestPruneColsPassthroughParent(t *testing.T) {
	g := qgraph.New()
	s := g.AddNode(intScan("t", 3))
	l := g.AddNode(&qgraph.Node{Op: qgraph.LimitOp, Inputs: []qgraph.NodeID{s}, Count: 1})
	p := g.AddNode(project(l, 0))
	g.SetEntryNode(p)
	b, err := PruneCols.Apply(g, s)
	require.NoError(t, err)
	require.Nil(t, b)
}

func TestPruneGroupByAggs(t *testing.T) {
	g := qgraph.New()
	s := g.AddNode(intScan("t", 3))
	gb := g.AddNode(&qgraph.Node{
		Op:        qgraph.GroupByOp,
		Inputs:    []qgraph.NodeID{s},
		GroupCols: []int{2},
		Aggs: []qgraph.Aggregate{
			{Func: qgraph.CountRowsAgg},
			{Func: qgraph.SumAgg, Arg: 0},
			{Func: qgraph.MaxAgg, Arg: 1},
		},
	})
	p := g.AddNode(project(gb, 0, 3))
	g.SetEntryNode(p)

	batch := commit(t, g, gb)
	require.Len(t, batch, 2)
	require.Equal(t, "group-by (2) aggs=(max(@1))", g.FormatNode(g.Resolve(gb)))
	require.Equal(t, "project @0, @1", g.FormatNode(g.EntryNode()))

	// A parent that only uses the grouping column is not rewritten, and the
	// grouping column survives.
	g2 := qgraph.New()
	s = g2.AddNode(intScan("t", 3))
	gb = g2.AddNode(&qgraph.Node{
		Op:        qgraph.GroupByOp,
		Inputs:    []qgraph.NodeID{s},
		GroupCols: []int{1},
		Aggs:      []qgraph.Aggregate{{Func: qgraph.CountRowsAgg}},
	})
	p = g2.AddNode(project(gb, 0))
	g2.SetEntryNode(p)
	batch = commit(t, g2, gb)
	require.Len(t, batch, 1)
	require.Equal(t, "group-by (1) aggs=()", g2.FormatNode(g2.Resolve(gb)))
	require.Equal(t, p, g2.EntryNode())
}

func TestPruneColsSelfJoin(t *testing.T) {
	g := qgraph.New()
	s := g.AddNode(intScan("t", 3))
	j := g.AddNode(&qgraph.Node{Op: qgraph.JoinOp, Inputs: []qgraph.NodeID{s, s}, Cols: []int{0, 4}})
	p := g.AddNode(project(j, 1, 0))
	g.SetEntryNode(p)

	batch := commit(t, g, s)
	require.Len(t, batch, 2)
	pruned := g.Resolve(s)
	require.Equal(t, []qgraph.NodeID{pruned, pruned}, g.Inputs(g.Resolve(j)))
	if diff := cmp.Diff([]int{0, 3}, g.Node(g.Resolve(j)).Cols); diff != "" {
		t.Errorf("unexpected join columns (-want +got):\n%s", diff)
	}
	require.Equal(t, "scan t (t0:int, t1:int)", g.FormatNode(pruned))
}

func TestPruneColsProjectInput(t *testing.T) {
	g := qgraph.New()
	a := g.AddNode(intScan("a", 2))
	b := g.AddNode(intScan("b", 2))
	inner := g.AddNode(project(b, 1, 0, 1))
	j := g.AddNode(&qgraph.Node{
		Op:     qgraph.JoinOp,
		Inputs: []qgraph.NodeID{inner, a},
		Predicate: &qgraph.BinaryExpr{
			Op:    qgraph.EqOp,
			Left:  &qgraph.ColRef{Index: 2, Typ: types.Int},
			Right: &qgraph.ColRef{Index: 4, Typ: types.Int},
		},
		Cols: []int{3},
	})
	g.SetEntryNode(j)

	// The join uses columns 2 of the projection and 1 of a, which moves from
	// offset 4 to offset 2.
	batch := commit(t, g, inner)
	require.Len(t, batch, 2)
	require.Equal(t, "project @1", g.FormatNode(g.Resolve(inner)))
	require.Equal(t, "inner-join on (@0 = @2) cols=(1)", g.FormatNode(g.EntryNode()))
}

func TestPruneColsUnchangedParent(t *testing.T) {
	g := qgraph.New()
	s := g.AddNode(intScan("t", 4))
	p := g.AddNode(project(s, 0, 1))
	g.SetEntryNode(p)

	batch := commit(t, g, s)
	require.Len(t, batch, 1, "the parent references are unchanged and must be omitted")
	require.Equal(t, p, g.EntryNode())
	require.Equal(t, []qgraph.NodeID{g.Resolve(s)}, g.Inputs(p))
}
