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

// Action is returned by Visitor callbacks to steer a Walk.
type Action uint8

const (
	// VisitInputs descends into the inputs of the visited node.
	VisitInputs Action = iota
	// SkipInputs moves on without visiting the node's inputs. VisitPost is
	// still called for the node.
	SkipInputs
	// Abort terminates the walk. No further callbacks are made.
	Abort
)

// Continue is returned by VisitPost to carry on with the walk.
const Continue = VisitInputs

// Visitor is called by Walk before and after the inputs of every node are
// visited. Both callbacks receive a pointer to the id of the visited node and
// may overwrite it, typically because the node has just been replaced. Walk
// reads the inputs of the node from the updated id.
type Visitor interface {
	VisitPre(g *Graph, id *NodeID) Action
	VisitPost(g *Graph, id *NodeID) Action
}

type walkFrame struct {
	id NodeID
	// next is the index of the next input to visit, or skipInputs.
	next int
}

const skipInputs = -1

// Walk performs a depth-first, pre- and post-order traversal of the graph,
// starting at the entry node. A node that is reachable through several paths
// is visited once per path. The traversal uses an explicit stack, so the
// depth of the plan is not limited by the goroutine stack, and the visitor is
// free to commit replacements to g while the walk is in progress. Frames whose
// node has been replaced meanwhile continue with the replacement.
//
// Walk returns false if the visitor aborted the walk.
func Walk(g *Graph, v Visitor) bool {
	var stack []walkFrame
	enter := func(id NodeID) bool {
		switch v.VisitPre(g, &id) {
		case Abort:
			return false
		case SkipInputs:
			stack = append(stack, walkFrame{id: id, next: skipInputs})
		default:
			stack = append(stack, walkFrame{id: id})
		}
		return true
	}

	if !enter(g.EntryNode()) {
		return false
	}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		// A batch committed below this frame may have replaced the node.
		top.id = g.Resolve(top.id)
		if top.next != skipInputs {
			if inputs := g.Inputs(top.id); top.next < len(inputs) {
				child := inputs[top.next]
				top.next++
				if !enter(child) {
					return false
				}
				continue
			}
		}
		id := top.id
		stack = stack[:len(stack)-1]
		if v.VisitPost(g, &id) == Abort {
			return false
		}
	}
	return true
}

// VisitorFuncs adapts a pair of functions to the Visitor interface. A nil
// function visits inputs and continues.
type VisitorFuncs struct {
	Pre  func(g *Graph, id *NodeID) Action
	Post func(g *Graph, id *NodeID) Action
}

var _ Visitor = VisitorFuncs{}

// VisitPre is part of the Visitor interface.
func (f VisitorFuncs) VisitPre(g *Graph, id *NodeID) Action {
	if f.Pre == nil {
		return VisitInputs
	}
	return f.Pre(g, id)
}

// VisitPost is part of the Visitor interface.
func (f VisitorFuncs) VisitPost(g *Graph, id *NodeID) Action {
	if f.Post == nil {
		return Continue
	}
	return f.Post(g, id)
}
