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

// Package rule defines the interface between rewrite rules and the optimizer
// that drives them.
//
// Rules come in two forms. A Rule may replace any number of nodes at once: the
// node it is offered plus whatever ancestors must be adjusted to keep the plan
// consistent, described as a qgraph.Batch that the optimizer commits
// atomically. A SimpleRule replaces exactly the node it is offered with one
// equivalent node; Lift turns it into a Rule. Neither form may modify an
// existing node: rules add new nodes to the graph and describe substitutions.
package rule

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/types"
	"github.com/cockroachdb/redact"
)

// Phase determines when the optimizer offers nodes to a rule.
type Phase uint8

const (
	// Always rules run both before and after the inputs of a node are visited.
	Always Phase = iota
	// TopDown rules run before the inputs of a node are visited, so they see
	// the outer context first.
	TopDown
	// BottomUp rules run after the inputs of a node are visited, so they see
	// already-normalized inputs.
	BottomUp
	// RootOnly rules are only ever offered the entry node, once per pass.
	RootOnly
)

func (p Phase) String() string {
	switch p {
	case Always:
		return "always"
	case TopDown:
		return "top-down"
	case BottomUp:
		return "bottom-up"
	case RootOnly:
		return "root-only"
	}
	return "unknown"
}

// SafeValue implements redact.SafeValue.
func (Phase) SafeValue() {}

// Name is the name of a rule. Rule names are not sensitive and are reported
// unredacted in errors and logs.
type Name string

// SafeValue implements redact.SafeValue.
func (Name) SafeValue() {}

var _ redact.SafeValue = Name("")

// Rule is the general form of a rewrite rule.
//
// Apply is offered the graph and the id of a live node. It returns nil if the
// rule does not match. Otherwise it returns a non-empty batch, after adding
// whatever new nodes the batch refers to. The batch may reference old ids
// that the same batch replaces. Rules must be idempotent: offered a node they
// produced, they must not match again.
type Rule interface {
	Name() Name
	Phase() Phase
	Apply(g *qgraph.Graph, id qgraph.NodeID) (qgraph.Batch, error)
}

// SimpleRule is a rule that replaces the node it is offered with a single
// node that has the same number and types of output columns.
type SimpleRule interface {
	Name() Name
	Phase() Phase
	Replace(g *qgraph.Graph, id qgraph.NodeID) (_ qgraph.NodeID, ok bool)
}

// ErrShapeMismatch marks errors for SimpleRule replacements whose output
// columns differ from those of the node they replace.
var ErrShapeMismatch = errors.New("replacement changes the output columns")

// Lift adapts a SimpleRule to the Rule interface. The replacement is wrapped
// in a single-pair batch once its output columns have been checked against
// those of the original node.
func Lift(r SimpleRule) Rule {
	return lifted{r}
}

type lifted struct {
	SimpleRule
}

// Apply is part of the Rule interface.
func (l lifted) Apply(g *qgraph.Graph, id qgraph.NodeID) (qgraph.Batch, error) {
	repl, ok := l.Replace(g, id)
	if !ok {
		return nil, nil
	}
	if repl == id {
		return nil, errors.AssertionFailedf("rule %s replaced node %d with itself", l.Name(), id)
	}
	before, after := g.ColumnTypes(id), g.ColumnTypes(repl)
	if !types.Equivalent(before, after) {
		return nil, errors.Mark(
			errors.AssertionFailedf(
				"rule %s replaced node %d %v with node %d %v",
				l.Name(), id, redact.Safe(before), repl, redact.Safe(after),
			),
			ErrShapeMismatch,
		)
	}
	return qgraph.Batch{{Old: id, New: repl}}, nil
}

// Unwrap returns the SimpleRule wrapped by Lift, or nil if r was not created by
// Lift.
func Unwrap(r Rule) SimpleRule {
	if l, ok := r.(lifted); ok {
		return l.SimpleRule
	}
	return nil
}

// ApplyFunc is the signature of the function implementing a Rule built with
// New.
type ApplyFunc func(g *qgraph.Graph, id qgraph.NodeID) (qgraph.Batch, error)

// ReplaceFunc is the signature of the function implementing a SimpleRule built
// with NewSimple.
type ReplaceFunc func(g *qgraph.Graph, id qgraph.NodeID) (qgraph.NodeID, bool)

type funcRule struct {
	name  Name
	phase Phase
	fn    ApplyFunc
}

// New returns a Rule implemented by fn.
func New(name Name, phase Phase, fn ApplyFunc) Rule {
	return &funcRule{name: name, phase: phase, fn: fn}
}

func (r *funcRule) Name() Name   { return r.name }
func (r *funcRule) Phase() Phase { return r.phase }

func (r *funcRule) Apply(g *qgraph.Graph, id qgraph.NodeID) (qgraph.Batch, error) {
	return r.fn(g, id)
}

type funcSimpleRule struct {
	name  Name
	phase Phase
	fn    ReplaceFunc
}

// NewSimple returns a SimpleRule implemented by fn.
func NewSimple(name Name, phase Phase, fn ReplaceFunc) SimpleRule {
	return &funcSimpleRule{name: name, phase: phase, fn: fn}
}

func (r *funcSimpleRule) Name() Name   { return r.name }
func (r *funcSimpleRule) Phase() Phase { return r.phase }

func (r *funcSimpleRule) Replace(g *qgraph.Graph, id qgraph.NodeID) (qgraph.NodeID, bool) {
	return r.fn(g, id)
}
