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

// Package planspec builds query graphs from YAML plan descriptions. A plan
// lists named nodes, each of which may only refer to nodes listed before it:
//
//	nodes:
//	- name: t
//	  scan: {table: t, cols: [a:int, b:string], max_rows: 100}
//	- name: f
//	  filter: {input: t, pred: [gt, "@0", 1]}
//	- name: p
//	  project: {input: f, exprs: ["@1", [plus, "@0", 1]]}
//	root: p
//
// Scalar expressions are written as column references ("@2"), constants
// (1, 2.5, true, null, "'abc'"), or lists [op, left, right] where op is the
// name or symbol of a binary operator. The root defaults to the last node.
package planspec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/qgraph/pkg/sql/opt"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/types"
	"gopkg.in/yaml.v2"
)

// Plan is the decoded form of a plan description.
type Plan struct {
	Nodes []NodeSpec `yaml:"nodes"`
	Root  string     `yaml:"root,omitempty"`
}

// NodeSpec describes one node. Exactly one of the operator fields is set.
type NodeSpec struct {
	Name    string       `yaml:"name"`
	Scan    *ScanSpec    `yaml:"scan,omitempty"`
	Filter  *FilterSpec  `yaml:"filter,omitempty"`
	Project *ProjectSpec `yaml:"project,omitempty"`
	Join    *JoinSpec    `yaml:"join,omitempty"`
	Limit   *LimitSpec   `yaml:"limit,omitempty"`
	Sort    *SortSpec    `yaml:"sort,omitempty"`
	GroupBy *GroupBySpec `yaml:"group-by,omitempty"`
}

// ScanSpec describes a scan. Columns are written as "name:type".
type ScanSpec struct {
	Table   string   `yaml:"table"`
	Cols    []string `yaml:"cols"`
	MaxRows int64    `yaml:"max_rows,omitempty"`
}

// FilterSpec describes a filter.
type FilterSpec struct {
	Input string      `yaml:"input"`
	Pred  interface{} `yaml:"pred"`
}

// ProjectSpec describes a projection.
type ProjectSpec struct {
	Input string        `yaml:"input"`
	Exprs []interface{} `yaml:"exprs"`
}

// JoinSpec describes a join. Without Cols, the join outputs its whole combined
// input row.
type JoinSpec struct {
	Left  string      `yaml:"left"`
	Right string      `yaml:"right"`
	Kind  string      `yaml:"kind,omitempty"`
	On    interface{} `yaml:"on,omitempty"`
	Cols  []int       `yaml:"cols,omitempty"`
}

// LimitSpec describes a limit.
type LimitSpec struct {
	Input string `yaml:"input"`
	Count int64  `yaml:"count"`
}

// SortSpec describes a sort. Ordering columns are written as "+@0" or "-@1".
type SortSpec struct {
	Input    string   `yaml:"input"`
	Ordering []string `yaml:"ordering"`
}

// GroupBySpec describes a grouping. Aggregates are written as "count_rows()"
// or "sum(@1)".
type GroupBySpec struct {
	Input string   `yaml:"input"`
	Cols  []int    `yaml:"cols,omitempty"`
	Aggs  []string `yaml:"aggs,omitempty"`
}

// Parse decodes a YAML plan description and builds its graph. It returns the
// graph and the id of every named node.
func Parse(data []byte) (*qgraph.Graph, map[string]qgraph.NodeID, error) {
	var p Plan
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, nil, errors.Wrap(err, "decoding plan")
	}
	return Build(&p)
}

// Build builds the graph of a decoded plan.
func Build(p *Plan) (g *qgraph.Graph, names map[string]qgraph.NodeID, err error) {
	if len(p.Nodes) == 0 {
		return nil, nil, errors.New("plan has no nodes")
	}
	defer func() {
		if r := recover(); r != nil {
			g, names, err = nil, nil, opt.CatchOptimizerError(r)
		}
	}()
	b := builder{g: qgraph.New(), names: make(map[string]qgraph.NodeID, len(p.Nodes))}
	for i := range p.Nodes {
		ns := &p.Nodes[i]
		if ns.Name == "" {
			return nil, nil, errors.Newf("node %d has no name", i)
		}
		if _, ok := b.names[ns.Name]; ok {
			return nil, nil, errors.Newf("node %q is defined twice", ns.Name)
		}
		n, err := b.buildNode(ns)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "node %q", ns.Name)
		}
		b.names[ns.Name] = b.g.AddNode(n)
	}
	root := p.Nodes[len(p.Nodes)-1].Name
	if p.Root != "" {
		root = p.Root
	}
	id, ok := b.names[root]
	if !ok {
		return nil, nil, errors.Newf("unknown root node %q", root)
	}
	b.g.SetEntryNode(id)
	return b.g, b.names, nil
}

type builder struct {
	g     *qgraph.Graph
	names map[string]qgraph.NodeID
}

func (b *builder) buildNode(ns *NodeSpec) (*qgraph.Node, error) {
	var n *qgraph.Node
	var err error
	count := 0
	if ns.Scan != nil {
		count++
		n, err = b.buildScan(ns.Scan)
	}
	if ns.Filter != nil {
		count++
		n, err = b.buildFilter(ns.Filter)
	}
	if ns.Project != nil {
		count++
		n, err = b.buildProject(ns.Project)
	}
	if ns.Join != nil {
		count++
		n, err = b.buildJoin(ns.Join)
	}
	if ns.Limit != nil {
		count++
		n, err = b.buildLimit(ns.Limit)
	}
	if ns.Sort != nil {
		count++
		n, err = b.buildSort(ns.Sort)
	}
	if ns.GroupBy != nil {
		count++
		n, err = b.buildGroupBy(ns.GroupBy)
	}
	switch {
	case count == 0:
		return nil, errors.New("no operator given")
	case count > 1:
		return nil, errors.New("more than one operator given")
	}
	return n, err
}

func (b *builder) input(name string) (qgraph.NodeID, error) {
	id, ok := b.names[name]
	if !ok {
		return 0, errors.Newf("unknown input %q", name)
	}
	return id, nil
}

func (b *builder) inputs(names ...string) ([]qgraph.NodeID, []types.T, error) {
	ids := make([]qgraph.NodeID, len(names))
	var typs []types.T
	for i, name := range names {
		id, err := b.input(name)
		if err != nil {
			return nil, nil, err
		}
		ids[i] = id
		typs = append(typs, b.g.ColumnTypes(id)...)
	}
	return ids, typs, nil
}

func (b *builder) buildScan(s *ScanSpec) (*qgraph.Node, error) {
	if s.Table == "" {
		return nil, errors.New("scan has no table")
	}
	n := &qgraph.Node{Op: qgraph.ScanOp, Table: s.Table, MaxRows: s.MaxRows}
	for _, c := range s.Cols {
		i := strings.IndexByte(c, ':')
		if i <= 0 {
			return nil, errors.Newf("column %q is not of the form name:type", c)
		}
		typ, ok := types.FromString(c[i+1:])
		if !ok {
			return nil, errors.Newf("column %q has unknown type", c)
		}
		n.ScanCols = append(n.ScanCols, qgraph.ScanColumn{Name: c[:i], Typ: typ})
	}
	return n, nil
}

func (b *builder) buildFilter(s *FilterSpec) (*qgraph.Node, error) {
	ids, typs, err := b.inputs(s.Input)
	if err != nil {
		return nil, err
	}
	pred, err := parseScalar(s.Pred, typs)
	if err != nil {
		return nil, err
	}
	return &qgraph.Node{Op: qgraph.FilterOp, Inputs: ids, Predicate: pred}, nil
}

func (b *builder) buildProject(s *ProjectSpec) (*qgraph.Node, error) {
	ids, typs, err := b.inputs(s.Input)
	if err != nil {
		return nil, err
	}
	n := &qgraph.Node{Op: qgraph.ProjectOp, Inputs: ids}
	for _, e := range s.Exprs {
		// A null projection is the NULL constant, not an absent expression.
		p, err := parseLeaf(e, typs)
		if err != nil {
			return nil, err
		}
		n.Projections = append(n.Projections, p)
	}
	return n, nil
}

func (b *builder) buildJoin(s *JoinSpec) (*qgraph.Node, error) {
	ids, typs, err := b.inputs(s.Left, s.Right)
	if err != nil {
		return nil, err
	}
	n := &qgraph.Node{Op: qgraph.JoinOp, Inputs: ids}
	switch s.Kind {
	case "", "inner":
		n.JoinKind = qgraph.InnerJoin
	case "left":
		n.JoinKind = qgraph.LeftJoin
	default:
		return nil, errors.Newf("unknown join kind %q", s.Kind)
	}
	if n.Predicate, err = parseScalar(s.On, typs); err != nil {
		return nil, err
	}
	if s.Cols == nil {
		for i := range typs {
			n.Cols = append(n.Cols, i)
		}
		return n, nil
	}
	for _, c := range s.Cols {
		if err := checkCol(c, typs); err != nil {
			return nil, err
		}
	}
	n.Cols = s.Cols
	return n, nil
}

func (b *builder) buildLimit(s *LimitSpec) (*qgraph.Node, error) {
	ids, _, err := b.inputs(s.Input)
	if err != nil {
		return nil, err
	}
	if s.Count < 0 {
		return nil, errors.Newf("negative limit %d", s.Count)
	}
	return &qgraph.Node{Op: qgraph.LimitOp, Inputs: ids, Count: s.Count}, nil
}

var orderingRE = regexp.MustCompile(`^([+-])@(\d+)$`)

func (b *builder) buildSort(s *SortSpec) (*qgraph.Node, error) {
	ids, typs, err := b.inputs(s.Input)
	if err != nil {
		return nil, err
	}
	n := &qgraph.Node{Op: qgraph.SortOp, Inputs: ids}
	for _, o := range s.Ordering {
		m := orderingRE.FindStringSubmatch(o)
		if m == nil {
			return nil, errors.Newf("invalid ordering column %q", o)
		}
		col, _ := strconv.Atoi(m[2])
		if err := checkCol(col, typs); err != nil {
			return nil, err
		}
		n.Ordering = append(n.Ordering, qgraph.OrderingColumn{Col: col, Desc: m[1] == "-"})
	}
	return n, nil
}

var aggRE = regexp.MustCompile(`^(\w+)\((?:@(\d+))?\)$`)

func (b *builder) buildGroupBy(s *GroupBySpec) (*qgraph.Node, error) {
	ids, typs, err := b.inputs(s.Input)
	if err != nil {
		return nil, err
	}
	n := &qgraph.Node{Op: qgraph.GroupByOp, Inputs: ids}
	for _, c := range s.Cols {
		if err := checkCol(c, typs); err != nil {
			return nil, err
		}
		n.GroupCols = append(n.GroupCols, c)
	}
	for _, a := range s.Aggs {
		m := aggRE.FindStringSubmatch(a)
		if m == nil {
			return nil, errors.Newf("invalid aggregate %q", a)
		}
		fn, ok := qgraph.AggFuncFromName(m[1])
		if !ok {
			return nil, errors.Newf("unknown aggregate function %q", m[1])
		}
		agg := qgraph.Aggregate{Func: fn}
		switch {
		case fn.HasArg() && m[2] == "":
			return nil, errors.Newf("aggregate %q needs an argument", a)
		case !fn.HasArg() && m[2] != "":
			return nil, errors.Newf("aggregate %q takes no argument", a)
		case fn.HasArg():
			agg.Arg, _ = strconv.Atoi(m[2])
			if err := checkCol(agg.Arg, typs); err != nil {
				return nil, err
			}
		}
		n.Aggs = append(n.Aggs, agg)
	}
	return n, nil
}

func checkCol(col int, typs []types.T) error {
	if col < 0 || col >= len(typs) {
		return errors.Newf("column @%d out of range: input has %d columns", col, len(typs))
	}
	return nil
}
