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
	"testing"

	"github.com/cockroachdb/qgraph/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

// buildDiamond returns a graph in which a scan is shared by two filters that
// are joined together. It has 4 edges and 5 root paths.
func buildDiamond() (g *Graph, s, f1, f2, j NodeID) {
	g = New()
	s = g.AddNode(makeScan("a", types.Int, types.Int))
	f1 = g.AddNode(makeFilter(s, 0))
	f2 = g.AddNode(makeFilter(s, 1))
	j = g.AddNode(makeJoin(f1, f2, 0, 1, 2, 3))
	g.SetEntryNode(j)
	return g, s, f1, f2, j
}

type recordingVisitor struct {
	pre, post []NodeID
}

func (v *recordingVisitor) VisitPre(g *Graph, id *NodeID) Action {
	v.pre = append(v.pre, *id)
	return VisitInputs
}

func (v *recordingVisitor) VisitPost(g *Graph, id *NodeID) Action {
	v.post = append(v.post, *id)
	return Continue
}

func TestWalkCoverage(t *testing.T) {
	g, s, f1, f2, j := buildDiamond()
	var v recordingVisitor
	require.True(t, Walk(g, &v))

	// Every edge, plus the entry pointer, yields one visit.
	require.Equal(t, []NodeID{j, f1, s, f2, s}, v.pre)
	require.Equal(t, []NodeID{s, f1, s, f2, j}, v.post)

	edges := 0
	for _, id := range g.Reachable() {
		edges += g.NumInputs(id)
	}
	require.Len(t, v.pre, edges+1)
	require.Len(t, v.post, edges+1)
}

func TestWalkDeep(t *testing.T) {
	const depth = 10000
	g := New()
	id := g.AddNode(makeScan("a", types.Int))
	for i := 0; i < depth; i++ {
		id = g.AddNode(makeProject(id, 0))
	}
	g.SetEntryNode(id)

	pre, post := 0, 0
	require.True(t, Walk(g, VisitorFuncs{
		Pre:  func(*Graph, *NodeID) Action { pre++; return VisitInputs },
		Post: func(*Graph, *NodeID) Action { post++; return Continue },
	}))
	require.Equal(t, depth+1, pre)
	require.Equal(t, depth+1, post)
}

func TestWalkSkipInputs(t *testing.T) {
	g, _, f1, f2, j := buildDiamond()
	var pre, post []NodeID
	Walk(g, VisitorFuncs{
		Pre: func(g *Graph, id *NodeID) Action {
			pre = append(pre, *id)
			if g.Node(*id).Op == FilterOp {
				return SkipInputs
			}
			return VisitInputs
		},
		Post: func(g *Graph, id *NodeID) Action {
			post = append(post, *id)
			return Continue
		},
	})
	require.Equal(t, []NodeID{j, f1, f2}, pre)
	require.Equal(t, []NodeID{f1, f2, j}, post)
}

func TestWalkAbort(t *testing.T) {
	for _, inPost := range []bool{false, true} {
		g, s, f1, _, j := buildDiamond()
		s2 := g.AddNode(makeScan("b", types.Int, types.Int))
		calls := 0
		aborted := false
		completed := Walk(g, VisitorFuncs{
			Pre: func(g *Graph, id *NodeID) Action {
				require.False(t, aborted, "callback after abort")
				calls++
				if *id == s && !inPost {
					_, err := g.ApplyReplacements(Batch{{Old: s, New: s2}})
					require.NoError(t, err)
					aborted = true
					return Abort
				}
				return VisitInputs
			},
			Post: func(g *Graph, id *NodeID) Action {
				require.False(t, aborted, "callback after abort")
				calls++
				if *id == s && inPost {
					_, err := g.ApplyReplacements(Batch{{Old: s, New: s2}})
					require.NoError(t, err)
					aborted = true
					return Abort
				}
				return Continue
			},
		})
		require.False(t, completed)
		require.True(t, aborted)
		if inPost {
			// pre(j), pre(f1), pre(s), post(s).
			require.Equal(t, 4, calls)
		} else {
			require.Equal(t, 3, calls)
		}
		// The replacement committed before the abort remains committed.
		require.Equal(t, []NodeID{s2}, g.Inputs(f1))
		require.Equal(t, j, g.EntryNode())
	}
}

func TestWalkRewriteInPre(t *testing.T) {
	g := New()
	a := g.AddNode(makeScan("a", types.Int))
	b := g.AddNode(makeScan("b", types.Int))
	p := g.AddNode(makeProject(a, 0))
	l := g.AddNode(&Node{Op: LimitOp, Inputs: []NodeID{p}, Count: 10})
	g.SetEntryNode(l)
	p2 := g.AddNode(makeProject(b, 0))

	var pre []NodeID
	Walk(g, VisitorFuncs{
		Pre: func(g *Graph, id *NodeID) Action {
			if *id == p {
				_, err := g.ApplyReplacements(Batch{{Old: p, New: p2}})
				require.NoError(t, err)
				*id = p2
			}
			pre = append(pre, *id)
			return VisitInputs
		},
	})
	// The inputs of the replacement are visited, not those of the original.
	require.Equal(t, []NodeID{l, p2, b}, pre)
}

func TestWalkResolvesReplacedAncestor(t *testing.T) {
	g := New()
	a := g.AddNode(makeScan("a", types.Int))
	p := g.AddNode(makeProject(a, 0))
	l := g.AddNode(&Node{Op: LimitOp, Inputs: []NodeID{p}, Count: 10})
	g.SetEntryNode(l)
	l2 := g.AddNode(&Node{Op: LimitOp, Inputs: []NodeID{p}, Count: 5})

	var post []NodeID
	Walk(g, VisitorFuncs{
		Pre: func(g *Graph, id *NodeID) Action {
			// A rule at a descendant replaces the ancestor that is still on the
			// walk stack.
			if *id == a {
				_, err := g.ApplyReplacements(Batch{{Old: l, New: l2}})
				require.NoError(t, err)
			}
			return VisitInputs
		},
		Post: func(g *Graph, id *NodeID) Action {
			post = append(post, *id)
			return Continue
		},
	})
	require.Equal(t, []NodeID{a, p, l2}, post)
	require.Equal(t, l2, g.EntryNode())
}
