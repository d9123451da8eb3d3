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

package rewrite

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/rule"
)

// ErrRuleApplication marks errors caused by a defective rule: the rule
// returned an error or panicked, produced a batch that could not be committed,
// or, for a lifted SimpleRule, changed the output columns of the node it
// replaced. The graph never contains any part of the offending batch.
var ErrRuleApplication = errors.New("rule application failed")

// ErrNonTermination marks errors returned when the rules keep rewriting the
// plan without reaching a fixed point. The error details list the rules fired
// during the most recent passes.
var ErrNonTermination = errors.New("optimizer did not reach a fixed point")

func ruleApplicationError(err error, name rule.Name, id qgraph.NodeID) error {
	return errors.Mark(errors.Wrapf(err, "rule %s at node %d", name, id), ErrRuleApplication)
}

// history remembers the rules fired during the last few passes.
type history struct {
	size   int
	passes []passHistory
}

type passHistory struct {
	pass   int
	names  []rule.Name
	counts map[rule.Name]int
}

func newHistory(size int) *history {
	return &history{size: size}
}

func (h *history) startPass(pass int) {
	if h.size == 0 {
		return
	}
	if len(h.passes) == h.size {
		copy(h.passes, h.passes[1:])
		h.passes = h.passes[:len(h.passes)-1]
	}
	h.passes = append(h.passes, passHistory{pass: pass, counts: make(map[rule.Name]int)})
}

func (h *history) fired(name rule.Name) {
	if len(h.passes) == 0 {
		return
	}
	p := &h.passes[len(h.passes)-1]
	if p.counts[name] == 0 {
		p.names = append(p.names, name)
	}
	p.counts[name]++
}

// lines returns one line per remembered pass, such as
// "pass 7 fired: limit-up x2, limit-down".
func (h *history) lines() []string {
	res := make([]string, 0, len(h.passes))
	for _, p := range h.passes {
		var buf strings.Builder
		fmt.Fprintf(&buf, "pass %d fired:", p.pass)
		if len(p.names) == 0 {
			buf.WriteString(" nothing")
		}
		for i, name := range p.names {
			if i > 0 {
				buf.WriteByte(',')
			}
			fmt.Fprintf(&buf, " %s", name)
			if c := p.counts[name]; c > 1 {
				fmt.Fprintf(&buf, " x%d", c)
			}
		}
		res = append(res, buf.String())
	}
	return res
}

// nonTerminationError builds an ErrNonTermination error carrying the fired
// rule history as details.
func nonTerminationError(h *history, format string, args ...interface{}) error {
	err := errors.Mark(errors.Newf(format, args...), ErrNonTermination)
	for _, line := range h.lines() {
		err = errors.WithDetail(err, line)
	}
	return err
}
