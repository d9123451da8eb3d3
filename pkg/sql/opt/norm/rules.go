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

// Package norm contains the normalization rules applied by the query graph
// optimizer.
package norm

import (
	"github.com/cockroachdb/qgraph/pkg/sql/opt/props"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/rule"
)

// DefaultRules returns the normalization rules in the order the optimizer
// should try them.
func DefaultRules() []rule.Rule {
	return []rule.Rule{
		EliminateRedundantSorts,
		rule.Lift(MergeFilters),
		rule.Lift(EliminateLimit),
		rule.Lift(EliminateProject),
		PruneCols,
	}
}

// EliminateProject replaces a projection that passes its input through
// unchanged with the input itself.
var EliminateProject = rule.NewSimple("EliminateProject", rule.BottomUp,
	func(g *qgraph.Graph, id qgraph.NodeID) (qgraph.NodeID, bool) {
		n := g.Node(id)
		if n.Op != qgraph.ProjectOp {
			return 0, false
		}
		input := n.Inputs[0]
		if len(n.Projections) != g.NumColumns(input) {
			return 0, false
		}
		for i, p := range n.Projections {
			if ref, ok := p.(*qgraph.ColRef); !ok || ref.Index != i {
				return 0, false
			}
		}
		return input, true
	})

// MergeFilters combines a filter over another filter into a single filter on
// the conjunction of both predicates.
var MergeFilters = rule.NewSimple("MergeFilters", rule.TopDown,
	func(g *qgraph.Graph, id qgraph.NodeID) (qgraph.NodeID, bool) {
		n := g.Node(id)
		if n.Op != qgraph.FilterOp {
			return 0, false
		}
		input := g.Node(n.Inputs[0])
		if input.Op != qgraph.FilterOp {
			return 0, false
		}
		return g.AddNode(&qgraph.Node{
			Op:        qgraph.FilterOp,
			Inputs:    []qgraph.NodeID{input.Inputs[0]},
			Predicate: qgraph.And(input.Predicate, n.Predicate),
		}), true
	})

// EliminateLimit removes a limit that can never discard a row, because its
// input is known to produce at most as many rows as the limit allows.
var EliminateLimit = rule.NewSimple("EliminateLimit", rule.Always,
	func(g *qgraph.Graph, id qgraph.NodeID) (qgraph.NodeID, bool) {
		n := g.Node(id)
		if n.Op != qgraph.LimitOp {
			return 0, false
		}
		input := n.Inputs[0]
		if bound := props.FromGraph(g).MaxRows(input); !bound.Known || bound.Rows > n.Count {
			return 0, false
		}
		return input, true
	})

// EliminateRedundantSorts removes every sort whose ordering cannot be
// observed. The order of rows is observable at the entry node and at the input
// of a limit, and it survives filters, projections and limits on the way
// there. A sort is kept if some path through such order-preserving parents
// reaches the entry node or a limit; joins, group-bys and other sorts discard
// it. The rule only runs against the entry node and removes all such sorts of
// the plan in one batch.
var EliminateRedundantSorts = rule.New("EliminateRedundantSorts", rule.RootOnly,
	func(g *qgraph.Graph, id qgraph.NodeID) (qgraph.Batch, error) {
		var b qgraph.Batch
		for _, s := range g.Reachable() {
			if g.Node(s).Op != qgraph.SortOp || orderObservable(g, s) {
				continue
			}
			b = append(b, qgraph.Replacement{Old: s, New: g.Inputs(s)[0]})
		}
		return b, nil
	})

// orderObservable reports whether the order of the rows produced by id can be
// seen by the consumer of the plan.
func orderObservable(g *qgraph.Graph, id qgraph.NodeID) bool {
	entry := g.EntryNode()
	seen := map[qgraph.NodeID]struct{}{id: {}}
	for work := []qgraph.NodeID{id}; len(work) > 0; {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		if n == entry {
			return true
		}
		for _, ref := range g.Parents(n) {
			switch g.Node(ref.Parent).Op {
			case qgraph.LimitOp:
				return true
			case qgraph.FilterOp, qgraph.ProjectOp:
				if _, ok := seen[ref.Parent]; !ok {
					seen[ref.Parent] = struct{}{}
					work = append(work, ref.Parent)
				}
			}
		}
	}
	return false
}
