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

package props

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/types"
)

// Kind identifies a logical property of a query graph node.
type Kind uint8

const (
	// ColumnTypesKind is the []types.T signature of the node's output.
	ColumnTypesKind Kind = iota
	// MaxRowsKind is an upper bound on the number of rows the node returns,
	// as a MaxRows value.
	MaxRowsKind
	// OuterColsKind is the qgraph.ColSet of input columns the node needs.
	OuterColsKind
)

// MaxRows is an upper bound on a row count.
type MaxRows struct {
	Rows  int64
	Known bool
}

// Cache lazily computes and memoizes logical properties of the nodes of a
// graph. It registers itself with the graph, which invalidates entries
// synchronously whenever a replacement batch is committed.
type Cache struct {
	g       *qgraph.Graph
	entries map[cacheKey]interface{}

	// Hits and Misses count Query calls that were answered from the cache and
	// that had to compute the property.
	Hits, Misses int
}

type cacheKey struct {
	id   qgraph.NodeID
	kind Kind
}

var _ qgraph.PropertyInvalidator = (*Cache)(nil)

// New creates a cache for g and registers it as the graph's property cache.
func New(g *qgraph.Graph) *Cache {
	c := &Cache{g: g, entries: make(map[cacheKey]interface{})}
	g.SetPropertyCache(c)
	return c
}

// FromGraph returns the property cache registered with g, creating and
// registering one if there is none.
func FromGraph(g *qgraph.Graph) *Cache {
	if c, ok := g.PropertyCache().(*Cache); ok && c.g == g {
		return c
	}
	return New(g)
}

// Query returns the property of the given kind for the node.
func (c *Cache) Query(id qgraph.NodeID, kind Kind) interface{} {
	key := cacheKey{id: id, kind: kind}
	if v, ok := c.entries[key]; ok {
		c.Hits++
		return v
	}
	c.Misses++
	var v interface{}
	switch kind {
	case ColumnTypesKind:
		v = c.g.ColumnTypes(id)
	case MaxRowsKind:
		v = c.computeMaxRows(id)
	case OuterColsKind:
		v = c.g.InputCols(id)
	default:
		panic(errors.AssertionFailedf("unknown property kind %d", kind))
	}
	c.entries[key] = v
	return v
}

// Invalidate discards every property memoized for the node.
func (c *Cache) Invalidate(id qgraph.NodeID) {
	for _, kind := range []Kind{ColumnTypesKind, MaxRowsKind, OuterColsKind} {
		delete(c.entries, cacheKey{id: id, kind: kind})
	}
}

// Len returns the number of memoized properties.
func (c *Cache) Len() int {
	return len(c.entries)
}

// ColumnTypes returns the ColumnTypesKind property.
func (c *Cache) ColumnTypes(id qgraph.NodeID) []types.T {
	return c.Query(id, ColumnTypesKind).([]types.T)
}

// MaxRows returns the MaxRowsKind property.
func (c *Cache) MaxRows(id qgraph.NodeID) MaxRows {
	return c.Query(id, MaxRowsKind).(MaxRows)
}

// OuterCols returns the OuterColsKind property.
func (c *Cache) OuterCols(id qgraph.NodeID) qgraph.ColSet {
	return c.Query(id, OuterColsKind).(qgraph.ColSet)
}

func (c *Cache) computeMaxRows(id qgraph.NodeID) MaxRows {
	n := c.g.Node(id)
	switch n.Op {
	case qgraph.ScanOp:
		if n.MaxRows > 0 {
			return MaxRows{Rows: n.MaxRows, Known: true}
		}
		return MaxRows{}

	case qgraph.FilterOp, qgraph.SortOp, qgraph.ProjectOp:
		return c.MaxRows(n.Inputs[0])

	case qgraph.LimitOp:
		in := c.MaxRows(n.Inputs[0])
		if in.Known && in.Rows < n.Count {
			return in
		}
		return MaxRows{Rows: n.Count, Known: true}

	case qgraph.GroupByOp:
		if len(n.GroupCols) == 0 {
			// A scalar group-by always returns exactly one row.
			return MaxRows{Rows: 1, Known: true}
		}
		return c.MaxRows(n.Inputs[0])

	case qgraph.JoinOp:
		left, right := c.MaxRows(n.Inputs[0]), c.MaxRows(n.Inputs[1])
		if !left.Known || !right.Known {
			return MaxRows{}
		}
		r := right.Rows
		if n.JoinKind == qgraph.LeftJoin && r == 0 {
			// Unmatched left rows are still returned.
			r = 1
		}
		if r != 0 && left.Rows > (1<<62)/r {
			return MaxRows{}
		}
		return MaxRows{Rows: left.Rows * r, Known: true}
	}
	panic(errors.AssertionFailedf("unhandled operator %s", n.Op))
}
