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
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/rule"
)

// PruneCols narrows the output of a join, scan, projection or grouping to the
// columns its parents actually use. The pruned node outputs the surviving
// columns in their original order, and every parent whose references change is
// replaced in the same batch by a copy renumbered through the old-to-new
// column mapping.
//
// A parent that forwards its whole input (filter, limit, sort) requires every
// column, so pruning only happens below operators that compute their output.
// The entry node is never pruned: its output is the result of the query.
var PruneCols rule.Rule = pruneCols{}

type pruneCols struct{}

func (pruneCols) Name() rule.Name   { return "PruneCols" }
func (pruneCols) Phase() rule.Phase { return rule.BottomUp }

// Apply is part of the rule.Rule interface.
func (pruneCols) Apply(g *qgraph.Graph, id qgraph.NodeID) (qgraph.Batch, error) {
	n := g.Node(id)
	switch n.Op {
	case qgraph.JoinOp, qgraph.ScanOp, qgraph.ProjectOp, qgraph.GroupByOp:
	default:
		return nil, nil
	}
	if id == g.EntryNode() {
		return nil, nil
	}
	parents := g.Parents(id)
	if len(parents) == 0 {
		return nil, nil
	}

	width := g.NumColumns(id)
	needed := neededCols(g, id, parents)
	if needed.Len() == width {
		return nil, nil
	}

	// Surviving columns keep their relative order.
	newIdx := make([]int, width)
	for i := range newIdx {
		newIdx[i] = -1
	}
	ordered := needed.Ordered()
	for i, c := range ordered {
		newIdx[c] = i
	}

	pruned := pruneNode(n, ordered)
	prunedID := g.AddNode(pruned)
	b := qgraph.Batch{{Old: id, New: prunedID}}

	seen := make(map[qgraph.NodeID]struct{}, len(parents))
	for _, ref := range parents {
		if _, ok := seen[ref.Parent]; ok {
			continue
		}
		seen[ref.Parent] = struct{}{}
		if repl, ok := remapParent(g, ref.Parent, id, newIdx, len(ordered)); ok {
			b = append(b, qgraph.Replacement{Old: ref.Parent, New: repl})
		}
	}
	return b, nil
}

// neededCols returns the output columns of id that are referenced by its
// parents or by the node's own output definition.
func neededCols(g *qgraph.Graph, id qgraph.NodeID, parents []qgraph.ParentRef) qgraph.ColSet {
	width := g.NumColumns(id)
	var needed qgraph.ColSet
	for _, ref := range parents {
		off := g.InputOffsets(ref.Parent)[ref.Slot]
		cols := g.InputCols(ref.Parent).Intersection(qgraph.MakeColRange(off, off+width))
		needed.UnionWith(cols.Shift(-off))
	}
	if n := g.Node(id); n.Op == qgraph.GroupByOp {
		// Dropping a grouping column would change the grouping.
		needed.UnionWith(qgraph.MakeColRange(0, len(n.GroupCols)))
	}
	return needed
}

// pruneNode returns a copy of n that only outputs the given columns.
func pruneNode(n *qgraph.Node, cols []int) *qgraph.Node {
	c := n.Copy()
	switch n.Op {
	case qgraph.JoinOp:
		c.Cols = c.Cols[:0]
		for _, i := range cols {
			c.Cols = append(c.Cols, n.Cols[i])
		}

	case qgraph.ScanOp:
		c.ScanCols = c.ScanCols[:0]
		for _, i := range cols {
			c.ScanCols = append(c.ScanCols, n.ScanCols[i])
		}

	case qgraph.ProjectOp:
		c.Projections = c.Projections[:0]
		for _, i := range cols {
			c.Projections = append(c.Projections, n.Projections[i])
		}

	case qgraph.GroupByOp:
		c.Aggs = c.Aggs[:0]
		for _, i := range cols {
			if i >= len(n.GroupCols) {
				c.Aggs = append(c.Aggs, n.Aggs[i-len(n.GroupCols)])
			}
		}
	}
	return c
}

// remapParent returns a copy of parent in which every reference into the
// output of child, through any input slot, is renumbered through newIdx, and
// references into its other inputs are shifted to account for the narrower
// child. The copy keeps child as its input; committing the batch redirects it
// to the pruned node. remapParent returns false if no reference changes.
func remapParent(
	g *qgraph.Graph, parent, child qgraph.NodeID, newIdx []int, newWidth int,
) (qgraph.NodeID, bool) {
	inputs := g.Inputs(parent)
	oldOff := g.InputOffsets(parent)
	newOff := make([]int, len(inputs))
	next := 0
	for i, in := range inputs {
		newOff[i] = next
		if in == child {
			next += newWidth
		} else {
			next += g.NumColumns(in)
		}
	}

	remap := func(col int) int {
		slot := len(oldOff) - 1
		for slot > 0 && oldOff[slot] > col {
			slot--
		}
		rel := col - oldOff[slot]
		if inputs[slot] == child {
			rel = newIdx[rel]
			if rel < 0 {
				panic(errors.AssertionFailedf(
					"node %d references pruned column %d of node %d", parent, col-oldOff[slot], child,
				))
			}
		}
		return newOff[slot] + rel
	}

	changed := false
	g.InputCols(parent).ForEach(func(col int) {
		if remap(col) != col {
			changed = true
		}
	})
	if !changed {
		return 0, false
	}
	return g.AddNode(g.Node(parent).RemapColumns(remap)), true
}
