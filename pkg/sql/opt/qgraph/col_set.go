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
	"bytes"
	"fmt"
	"math/bits"

	"golang.org/x/tools/container/intsets"
)

// smallCutoff is the size of the small bitmap. Column offsets below the cutoff
// are stored without allocation.
const smallCutoff = 64

// ColSet is a set of column offsets, relative to the combined input row of a
// node or to a node's own output. The zero value is an empty set.
//
// Copying a ColSet by value is shallow once the set outgrows the small bitmap;
// use Copy to get an independent set.
type ColSet struct {
	small uint64
	large *intsets.Sparse
}

// MakeColSet returns a set initialized with the given columns.
func MakeColSet(cols ...int) ColSet {
	var s ColSet
	for _, c := range cols {
		s.Add(c)
	}
	return s
}

// MakeColRange returns the set {from, ..., to-1}.
func MakeColRange(from, to int) ColSet {
	var s ColSet
	for i := from; i < to; i++ {
		s.Add(i)
	}
	return s
}

func (s *ColSet) toLarge() {
	if s.large != nil {
		return
	}
	s.large = new(intsets.Sparse)
	for v := s.small; v != 0; v &= v - 1 {
		s.large.Insert(bits.TrailingZeros64(v))
	}
	s.small = 0
}

// Add adds a column to the set. Negative columns are not allowed.
func (s *ColSet) Add(col int) {
	if col < 0 {
		panic(fmt.Sprintf("negative column %d", col))
	}
	if s.large == nil && col < smallCutoff {
		s.small |= 1 << uint(col)
		return
	}
	s.toLarge()
	s.large.Insert(col)
}

// Remove removes a column from the set.
func (s *ColSet) Remove(col int) {
	if s.large != nil {
		s.large.Remove(col)
		return
	}
	if col >= 0 && col < smallCutoff {
		s.small &^= 1 << uint(col)
	}
}

// Contains returns true if the set contains the column.
func (s ColSet) Contains(col int) bool {
	if s.large != nil {
		return s.large.Has(col)
	}
	return col >= 0 && col < smallCutoff && s.small&(1<<uint(col)) != 0
}

// Empty returns true if the set is empty.
func (s ColSet) Empty() bool {
	if s.large != nil {
		return s.large.IsEmpty()
	}
	return s.small == 0
}

// Len returns the number of columns in the set.
func (s ColSet) Len() int {
	if s.large != nil {
		return s.large.Len()
	}
	return bits.OnesCount64(s.small)
}

// Ordered returns the columns in ascending order.
func (s ColSet) Ordered() []int {
	if s.Empty() {
		return nil
	}
	if s.large != nil {
		return s.large.AppendTo(make([]int, 0, s.large.Len()))
	}
	res := make([]int, 0, s.Len())
	for v := s.small; v != 0; v &= v - 1 {
		res = append(res, bits.TrailingZeros64(v))
	}
	return res
}

// ForEach calls f for each column in the set, in ascending order.
func (s ColSet) ForEach(f func(col int)) {
	if s.large != nil {
		for _, c := range s.Ordered() {
			f(c)
		}
		return
	}
	for v := s.small; v != 0; v &= v - 1 {
		f(bits.TrailingZeros64(v))
	}
}

// Copy returns a copy of the set that shares no state with s.
func (s ColSet) Copy() ColSet {
	if s.large == nil {
		return s
	}
	c := ColSet{large: new(intsets.Sparse)}
	c.large.Copy(s.large)
	return c
}

// UnionWith adds all the columns of rhs to the set.
func (s *ColSet) UnionWith(rhs ColSet) {
	if s.large == nil && rhs.large == nil {
		s.small |= rhs.small
		return
	}
	s.toLarge()
	rhs = rhs.Copy()
	rhs.toLarge()
	s.large.UnionWith(rhs.large)
}

// Union returns the union of s and rhs as a new set.
func (s ColSet) Union(rhs ColSet) ColSet {
	r := s.Copy()
	r.UnionWith(rhs)
	return r
}

// IntersectionWith removes any columns not in rhs from the set.
func (s *ColSet) IntersectionWith(rhs ColSet) {
	if s.large == nil && rhs.large == nil {
		s.small &= rhs.small
		return
	}
	s.toLarge()
	rhs = rhs.Copy()
	rhs.toLarge()
	s.large.IntersectionWith(rhs.large)
}

// Intersection returns the intersection of s and rhs as a new set.
func (s ColSet) Intersection(rhs ColSet) ColSet {
	r := s.Copy()
	r.IntersectionWith(rhs)
	return r
}

// DifferenceWith removes any columns in rhs from the set.
func (s *ColSet) DifferenceWith(rhs ColSet) {
	if s.large == nil && rhs.large == nil {
		s.small &^= rhs.small
		return
	}
	s.toLarge()
	rhs = rhs.Copy()
	rhs.toLarge()
	s.large.DifferenceWith(rhs.large)
}

// Difference returns the columns of s that are not in rhs, as a new set.
func (s ColSet) Difference(rhs ColSet) ColSet {
	r := s.Copy()
	r.DifferenceWith(rhs)
	return r
}

// SubsetOf returns true if every column of s is also in rhs.
func (s ColSet) SubsetOf(rhs ColSet) bool {
	if s.large == nil && rhs.large == nil {
		return s.small&rhs.small == s.small
	}
	return s.Difference(rhs).Empty()
}

// Equals returns true if the two sets contain the same columns.
func (s ColSet) Equals(rhs ColSet) bool {
	return s.SubsetOf(rhs) && rhs.SubsetOf(s)
}

// Shift returns a new set with every column offset by delta. Columns that
// would become negative are dropped.
func (s ColSet) Shift(delta int) ColSet {
	var r ColSet
	s.ForEach(func(c int) {
		if c+delta >= 0 {
			r.Add(c + delta)
		}
	})
	return r
}

// String prints the set as a parenthesized list, compressing runs of three or
// more consecutive columns into ranges, e.g. (0-2,5,7).
func (s ColSet) String() string {
	return formatCols(s.Ordered())
}

// formatCols prints an ordered list of columns in the format used by
// ColSet.String.
func formatCols(cols []int) string {
	var buf bytes.Buffer
	buf.WriteByte('(')
	for i := 0; i < len(cols); {
		j := i
		for j+1 < len(cols) && cols[j+1] == cols[j]+1 {
			j++
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		switch {
		case j-i >= 2:
			fmt.Fprintf(&buf, "%d-%d", cols[i], cols[j])
		case j-i == 1:
			fmt.Fprintf(&buf, "%d,%d", cols[i], cols[j])
		default:
			fmt.Fprintf(&buf, "%d", cols[i])
		}
		i = j + 1
	}
	buf.WriteByte(')')
	return buf.String()
}
