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
	"fmt"

	"github.com/cockroachdb/qgraph/pkg/sql/types"
)

func makeScan(table string, typs ...types.T) *Node {
	n := &Node{Op: ScanOp, Table: table}
	for i, t := range typs {
		n.ScanCols = append(n.ScanCols, ScanColumn{Name: fmt.Sprintf("%s%d", table, i), Typ: t})
	}
	return n
}

func intCols(n int) []types.T {
	res := make([]types.T, n)
	for i := range res {
		res[i] = types.Int
	}
	return res
}

func makeProject(input NodeID, cols ...int) *Node {
	n := &Node{Op: ProjectOp, Inputs: []NodeID{input}}
	for _, c := range cols {
		n.Projections = append(n.Projections, &ColRef{Index: c, Typ: types.Int})
	}
	return n
}

func makeFilter(input NodeID, col int) *Node {
	return &Node{
		Op:     FilterOp,
		Inputs: []NodeID{input},
		Predicate: &BinaryExpr{
			Op:    GtOp,
			Left:  &ColRef{Index: col, Typ: types.Int},
			Right: &Const{Value: 1, Typ: types.Int},
		},
	}
}

func makeJoin(left, right NodeID, cols ...int) *Node {
	return &Node{Op: JoinOp, Inputs: []NodeID{left, right}, Cols: cols}
}

type recordingCache struct {
	invalidated []NodeID
}

func (c *recordingCache) Invalidate(id NodeID) {
	c.invalidated = append(c.invalidated, id)
}
