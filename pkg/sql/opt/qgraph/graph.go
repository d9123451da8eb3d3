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
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/qgraph/pkg/sql/types"
)

// ErrInvalidNodeID marks errors raised for node ids that do not exist in the
// graph. Given the graph invariants this can only happen through a bug in the
// code that constructed the id.
var ErrInvalidNodeID = errors.New("invalid node id")

// PropertyInvalidator is implemented by caches of per-node properties. The
// graph calls Invalidate synchronously while committing a replacement batch,
// for every node that was replaced, every node whose inputs changed, and all
// of their ancestors.
type PropertyInvalidator interface {
	Invalidate(id NodeID)
}

// ParentRef identifies one input edge: Parent.Inputs[Slot] is the child.
type ParentRef struct {
	Parent NodeID
	Slot   int
}

// Graph is an append-only arena of query graph nodes together with a
// designated entry node, the root of the plan.
//
// The graph is acyclic at all times: AddNode only accepts inputs that already
// exist, and ApplyReplacements refuses any batch that would close a cycle.
// Nodes are never deleted; once replaced they remain in the arena as
// unreferenced garbage, and their ids forward to their replacements.
type Graph struct {
	nodes   []*Node
	entry   NodeID
	forward map[NodeID]NodeID
	props   PropertyInvalidator
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{entry: -1, forward: make(map[NodeID]NodeID)}
}

// Len returns the number of nodes in the arena, including replaced ones.
func (g *Graph) Len() int {
	return len(g.nodes)
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

func (g *Graph) check(id NodeID) {
	if !g.valid(id) {
		panic(errors.Mark(
			errors.AssertionFailedf("node %d does not exist (graph has %d nodes)", id, len(g.nodes)),
			ErrInvalidNodeID,
		))
	}
}

// AddNode appends a copy of n to the arena and returns its id. It panics with
// an assertion failure if n is malformed: wrong number of inputs, an input
// that does not exist yet, or a column reference outside its input row.
func (g *Graph) AddNode(n *Node) NodeID {
	if n.Op == UnknownOp || n.Op >= numOperators {
		panic(errors.AssertionFailedf("cannot add node with operator %d", n.Op))
	}
	if len(n.Inputs) != n.Op.Arity() {
		panic(errors.AssertionFailedf(
			"%s node must have %d inputs, got %d", n.Op, n.Op.Arity(), len(n.Inputs),
		))
	}
	width := 0
	for _, in := range n.Inputs {
		g.check(in)
		width += g.NumColumns(in)
	}
	if refs := n.referencedCols(); !refs.Empty() {
		if ordered := refs.Ordered(); ordered[len(ordered)-1] >= width {
			panic(errors.AssertionFailedf(
				"%s node references column %d, but its input row has %d columns",
				n.Op, ordered[len(ordered)-1], width,
			))
		}
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n.Copy())
	if g.entry < 0 {
		g.entry = id
	}
	return id
}

// Node returns the node with the given id. The result must not be modified.
func (g *Graph) Node(id NodeID) *Node {
	g.check(id)
	return g.nodes[id]
}

// Inputs returns the inputs of the node with the given id.
func (g *Graph) Inputs(id NodeID) []NodeID {
	return g.Node(id).Inputs
}

// NumInputs returns the number of inputs of the node with the given id.
func (g *Graph) NumInputs(id NodeID) int {
	return len(g.Node(id).Inputs)
}

// EntryNode returns the root of the plan. The first node added to the graph is
// the entry node until SetEntryNode is called.
func (g *Graph) EntryNode() NodeID {
	if g.entry < 0 {
		panic(errors.AssertionFailedf("graph has no entry node"))
	}
	return g.entry
}

// SetEntryNode makes id the root of the plan.
func (g *Graph) SetEntryNode(id NodeID) {
	g.check(id)
	g.entry = id
}

// SetPropertyCache registers the cache that ApplyReplacements invalidates.
func (g *Graph) SetPropertyCache(c PropertyInvalidator) {
	g.props = c
}

// PropertyCache returns the registered property cache, if any.
func (g *Graph) PropertyCache() PropertyInvalidator {
	return g.props
}

// IsReplaced returns true if the node was replaced by a committed batch.
func (g *Graph) IsReplaced(id NodeID) bool {
	_, ok := g.forward[id]
	return ok
}

// Resolve returns the live node that currently stands for id: id itself if it
// was never replaced, or the end of its forwarding chain otherwise.
func (g *Graph) Resolve(id NodeID) NodeID {
	for {
		next, ok := g.forward[id]
		if !ok {
			return id
		}
		id = next
	}
}

// ColumnTypes returns the type of every output column of the node.
func (g *Graph) ColumnTypes(id NodeID) []types.T {
	n := g.Node(id)
	switch {
	case n.Op == ScanOp:
		res := make([]types.T, len(n.ScanCols))
		for i := range n.ScanCols {
			res[i] = n.ScanCols[i].Typ
		}
		return res

	case n.Op.Passthrough():
		return g.ColumnTypes(n.Inputs[0])

	case n.Op == ProjectOp:
		res := make([]types.T, len(n.Projections))
		for i, p := range n.Projections {
			res[i] = p.Type()
		}
		return res

	case n.Op == JoinOp:
		in := g.inputTypes(n)
		res := make([]types.T, len(n.Cols))
		for i, c := range n.Cols {
			res[i] = in[c]
		}
		return res

	case n.Op == GroupByOp:
		in := g.inputTypes(n)
		res := make([]types.T, 0, len(n.GroupCols)+len(n.Aggs))
		for _, c := range n.GroupCols {
			res = append(res, in[c])
		}
		for _, a := range n.Aggs {
			var arg types.T
			if a.Func.HasArg() {
				arg = in[a.Arg]
			}
			res = append(res, aggType(a.Func, arg))
		}
		return res
	}
	panic(errors.AssertionFailedf("unhandled operator %s", n.Op))
}

// inputTypes returns the types of the combined input row of n.
func (g *Graph) inputTypes(n *Node) []types.T {
	var res []types.T
	for _, in := range n.Inputs {
		res = append(res, g.ColumnTypes(in)...)
	}
	return res
}

// NumColumns returns the number of output columns of the node.
func (g *Graph) NumColumns(id NodeID) int {
	n := g.Node(id)
	switch {
	case n.Op == ScanOp:
		return len(n.ScanCols)
	case n.Op.Passthrough():
		return g.NumColumns(n.Inputs[0])
	case n.Op == ProjectOp:
		return len(n.Projections)
	case n.Op == JoinOp:
		return len(n.Cols)
	case n.Op == GroupByOp:
		return len(n.GroupCols) + len(n.Aggs)
	}
	panic(errors.AssertionFailedf("unhandled operator %s", n.Op))
}

// InputOffsets returns, for each input slot of the node, the offset of that
// input's first column in the combined input row.
func (g *Graph) InputOffsets(id NodeID) []int {
	n := g.Node(id)
	res := make([]int, len(n.Inputs))
	off := 0
	for i, in := range n.Inputs {
		res[i] = off
		off += g.NumColumns(in)
	}
	return res
}

// InputCols returns the columns of the combined input row that the node needs
// in order to compute its output.
func (g *Graph) InputCols(id NodeID) ColSet {
	n := g.Node(id)
	cols := n.referencedCols()
	if n.Op.Passthrough() {
		cols.UnionWith(MakeColRange(0, g.NumColumns(n.Inputs[0])))
	}
	return cols
}

// Reachable returns the ids of all nodes reachable from the entry node, in
// ascending order.
func (g *Graph) Reachable() []NodeID {
	seen := make(map[NodeID]struct{}, len(g.nodes))
	stack := []NodeID{g.EntryNode()}
	seen[stack[0]] = struct{}{}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, in := range g.nodes[id].Inputs {
			if _, ok := seen[in]; !ok {
				seen[in] = struct{}{}
				stack = append(stack, in)
			}
		}
	}
	res := make([]NodeID, 0, len(seen))
	for id := range seen {
		res = append(res, id)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Parents returns every input edge that points at id from a node reachable
// from the entry node, ordered by parent id and slot. Replaced nodes that are
// no longer part of the plan are not reported.
func (g *Graph) Parents(id NodeID) []ParentRef {
	g.check(id)
	var res []ParentRef
	for _, p := range g.Reachable() {
		for slot, in := range g.nodes[p].Inputs {
			if in == id {
				res = append(res, ParentRef{Parent: p, Slot: slot})
			}
		}
	}
	return res
}
