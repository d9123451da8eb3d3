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

package planspec

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/types"
)

// parseScalar converts a decoded YAML value into a scalar expression over an
// input row of the given types. A missing value yields a nil expression, which
// is only meaningful for optional predicates.
func parseScalar(v interface{}, typs []types.T) (qgraph.ScalarExpr, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return parseBinary(t, typs)
	}
	return parseLeaf(v, typs)
}

func parseLeaf(v interface{}, typs []types.T) (qgraph.ScalarExpr, error) {
	switch t := v.(type) {
	case nil:
		return &qgraph.Const{Typ: types.Unknown}, nil
	case bool:
		return &qgraph.Const{Value: t, Typ: types.Bool}, nil
	case int:
		return &qgraph.Const{Value: int64(t), Typ: types.Int}, nil
	case int64:
		return &qgraph.Const{Value: t, Typ: types.Int}, nil
	case float64:
		return &qgraph.Const{Value: t, Typ: types.Float}, nil
	case []interface{}:
		return parseBinary(t, typs)
	case string:
		switch {
		case strings.HasPrefix(t, "@"):
			col, err := strconv.Atoi(t[1:])
			if err != nil {
				return nil, errors.Newf("invalid column reference %q", t)
			}
			if err := checkCol(col, typs); err != nil {
				return nil, err
			}
			return &qgraph.ColRef{Index: col, Typ: typs[col]}, nil
		case len(t) >= 2 && t[0] == '\'' && t[len(t)-1] == '\'':
			return &qgraph.Const{Value: t[1 : len(t)-1], Typ: types.String}, nil
		case t == "null":
			return &qgraph.Const{Typ: types.Unknown}, nil
		}
		return nil, errors.Newf("cannot parse scalar %q", t)
	}
	return nil, errors.Newf("cannot parse scalar %v of type %T", v, v)
}

func parseBinary(l []interface{}, typs []types.T) (qgraph.ScalarExpr, error) {
	if len(l) != 3 {
		return nil, errors.Newf("binary expression %v must have the form [op, left, right]", l)
	}
	name, ok := l[0].(string)
	if !ok {
		return nil, errors.Newf("invalid operator %v", l[0])
	}
	op, ok := qgraph.BinaryOpFromName(name)
	if !ok {
		return nil, errors.Newf("unknown operator %q", name)
	}
	left, err := parseLeaf(l[1], typs)
	if err != nil {
		return nil, err
	}
	right, err := parseLeaf(l[2], typs)
	if err != nil {
		return nil, err
	}
	return &qgraph.BinaryExpr{Op: op, Left: left, Right: right}, nil
}
