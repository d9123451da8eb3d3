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
)

// ErrInvalidBatch marks errors returned by ApplyReplacements for batches that
// cannot be committed.
var ErrInvalidBatch = errors.New("invalid replacement batch")

// Replacement substitutes New for every reference to Old.
type Replacement struct {
	Old NodeID
	New NodeID
}

// Batch is a set of replacements committed as a unit.
type Batch []Replacement

// Contains returns true if the batch replaces id.
func (b Batch) Contains(id NodeID) bool {
	for i := range b {
		if b[i].Old == id {
			return true
		}
	}
	return false
}

func invalidBatchf(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrInvalidBatch)
}

// ApplyReplacements commits a replacement batch. The pairs of the batch are
// first merged into a single substitution map, following chains within the
// batch (a->b, b->c becomes a->c), and then every node's input list and the
// entry pointer are rewritten once against that map. A new node of the batch
// may therefore reference an old id of the same batch, in any pair order.
//
// The batch is validated before anything changes: every id must exist, old
// ids must not have been replaced already, an old id may not map to two
// different nodes, the substitution must not loop, and the resulting plan must
// be acyclic. On error the graph is left untouched.
//
// ApplyReplacements returns the discarded ids in ascending order. Before it
// returns, the registered property cache has been invalidated for every
// discarded node, every node whose inputs changed, and every ancestor of those
// nodes, since their properties may be derived from the altered subgraph.
func (g *Graph) ApplyReplacements(b Batch) ([]NodeID, error) {
	if len(b) == 0 {
		return nil, invalidBatchf("empty replacement batch")
	}
	subst := make(map[NodeID]NodeID, len(b))
	for _, r := range b {
		switch {
		case !g.valid(r.Old):
			return nil, invalidBatchf("replaced node %d does not exist", r.Old)
		case !g.valid(r.New):
			return nil, invalidBatchf("replacement node %d does not exist", r.New)
		case r.Old == r.New:
			return nil, invalidBatchf("node %d is replaced by itself", r.Old)
		case g.IsReplaced(r.Old):
			return nil, invalidBatchf("node %d was already replaced by node %d", r.Old, g.forward[r.Old])
		case g.IsReplaced(r.New):
			return nil, invalidBatchf("replacement node %d was already replaced", r.New)
		}
		if prev, ok := subst[r.Old]; ok && prev != r.New {
			return nil, invalidBatchf("node %d is replaced by both node %d and node %d", r.Old, prev, r.New)
		}
		subst[r.Old] = r.New
	}

	final := make(map[NodeID]NodeID, len(subst))
	for old, cur := range subst {
		for steps := 0; ; steps++ {
			next, ok := subst[cur]
			if !ok {
				break
			}
			if steps > len(subst) {
				return nil, invalidBatchf("replacement of node %d does not terminate", old)
			}
			cur = next
		}
		final[old] = cur
	}
	lookup := func(id NodeID) NodeID {
		if r, ok := final[id]; ok {
			return r
		}
		return id
	}
	if err := g.checkAcyclic(lookup(g.EntryNode()), lookup); err != nil {
		return nil, err
	}

	// Commit.
	var changed []NodeID
	for i, n := range g.nodes {
		rewritten := false
		for j, in := range n.Inputs {
			if r, ok := final[in]; ok {
				n.Inputs[j] = r
				rewritten = true
			}
		}
		if rewritten {
			changed = append(changed, NodeID(i))
		}
	}
	g.entry = lookup(g.entry)
	discarded := make([]NodeID, 0, len(final))
	for old, r := range final {
		g.forward[old] = r
		discarded = append(discarded, old)
	}
	sort.Slice(discarded, func(i, j int) bool { return discarded[i] < discarded[j] })
	if g.props != nil {
		g.invalidate(append(changed, discarded...))
	}
	return discarded, nil
}

// checkAcyclic verifies that the plan rooted at root, with every input mapped
// through lookup, contains no cycle.
func (g *Graph) checkAcyclic(root NodeID, lookup func(NodeID) NodeID) error {
	const (
		unvisited = iota
		inProgress
		done
	)
	type frame struct {
		id   NodeID
		next int
	}
	state := make(map[NodeID]int8)
	stack := []frame{{id: root}}
	state[root] = inProgress
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		inputs := g.nodes[top.id].Inputs
		if top.next == len(inputs) {
			state[top.id] = done
			stack = stack[:len(stack)-1]
			continue
		}
		child := lookup(inputs[top.next])
		top.next++
		switch state[child] {
		case inProgress:
			return invalidBatchf("replacement would create a cycle through node %d", child)
		case unvisited:
			state[child] = inProgress
			stack = append(stack, frame{id: child})
		}
	}
	return nil
}

// invalidate calls the property cache for every given node and every node
// from which one of them can be reached.
func (g *Graph) invalidate(seeds []NodeID) {
	parents := make([][]NodeID, len(g.nodes))
	for i, n := range g.nodes {
		for _, in := range n.Inputs {
			parents[in] = append(parents[in], NodeID(i))
		}
	}
	seen := make(map[NodeID]struct{}, len(seeds))
	for len(seeds) > 0 {
		id := seeds[len(seeds)-1]
		seeds = seeds[:len(seeds)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		g.props.Invalidate(id)
		seeds = append(seeds, parents[id]...)
	}
}
