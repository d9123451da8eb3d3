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

// Package rewrite implements the fixed-point driver that applies rewrite rules
// to a query graph.
//
// An optimization is a sequence of passes. Each pass first offers the entry
// node to the root-only rules, then walks the whole graph, offering every node
// to the top-down rules on the way down and to the bottom-up rules on the way
// up. Whenever a rule matches, its batch is committed immediately and the
// rules of the same phase are retried against whatever now stands in place of
// the visited node. The optimization stops after the first pass that commits
// nothing.
package rewrite

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/qgraph/pkg/sql/opt"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/rule"
	"github.com/cockroachdb/qgraph/pkg/util/log"
	"github.com/cockroachdb/redact"
)

// Optimizer applies a fixed list of rules to query graphs. An Optimizer may
// be reused for several graphs, one at a time.
type Optimizer struct {
	rules []rule.Rule

	// rootRules, topDownRules and bottomUpRules index rules. Always rules
	// appear in both topDownRules and bottomUpRules.
	rootRules     []int
	topDownRules  []int
	bottomUpRules []int

	cfg     Config
	metrics *Metrics
	stats   Stats
}

// Stats describes the most recent call to Optimize.
type Stats struct {
	// Passes is the number of passes run, including the final unproductive
	// one.
	Passes int
	// Commits is the number of batches committed.
	Commits int
	// Firings counts the committed batches of each rule.
	Firings map[rule.Name]int
}

// New creates an Optimizer for the given rules. Rules are tried in the order
// given. Rules disabled by the configuration are left out.
func New(rules []rule.Rule, opts ...Option) *Optimizer {
	o := &Optimizer{cfg: DefaultConfig()}
	for _, fn := range opts {
		fn(o)
	}
	o.cfg = o.cfg.withDefaults()
	if err := o.cfg.Validate(); err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "invalid optimizer config"))
	}
	for _, r := range rules {
		if o.cfg.disabled(r.Name()) {
			continue
		}
		i := len(o.rules)
		o.rules = append(o.rules, r)
		switch r.Phase() {
		case rule.RootOnly:
			o.rootRules = append(o.rootRules, i)
		case rule.TopDown:
			o.topDownRules = append(o.topDownRules, i)
		case rule.BottomUp:
			o.bottomUpRules = append(o.bottomUpRules, i)
		case rule.Always:
			o.topDownRules = append(o.topDownRules, i)
			o.bottomUpRules = append(o.bottomUpRules, i)
		default:
			panic(errors.AssertionFailedf("rule %s has unknown phase %d", r.Name(), r.Phase()))
		}
	}
	return o
}

// Rules returns the rules applied by the optimizer, in the order they are
// tried.
func (o *Optimizer) Rules() []rule.Rule {
	return o.rules
}

// Stats returns statistics about the most recent call to Optimize.
func (o *Optimizer) Stats() Stats {
	s := o.stats
	s.Firings = make(map[rule.Name]int, len(o.stats.Firings))
	for k, v := range o.stats.Firings {
		s.Firings[k] = v
	}
	return s
}

// Optimize rewrites g until no rule matches any node reachable from the entry
// node. The optimizer has exclusive use of g for the duration of the call.
//
// Optimize fails with an ErrRuleApplication error if a rule misbehaves and
// with an ErrNonTermination error if no fixed point is reached within the
// configured number of passes. Batches committed before the failure remain
// applied.
func (o *Optimizer) Optimize(ctx context.Context, g *qgraph.Graph) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()

	ctx = logtags.AddTag(ctx, "optimizer", nil)
	o.stats = Stats{Firings: make(map[rule.Name]int)}
	h := newHistory(o.cfg.HistoryPasses)
	defer func() { o.metrics.observeRun(o.stats.Passes) }()

	for pass := 1; ; pass++ {
		if pass > o.cfg.MaxPasses {
			o.metrics.observeNonTermination()
			err := nonTerminationError(h, "no fixed point after %d passes", o.cfg.MaxPasses)
			log.Warningf(ctx, "%v", err)
			return err
		}
		h.startPass(pass)
		p := passState{
			o:   o,
			g:   g,
			h:   h,
			ctx: logtags.AddTag(ctx, "pass", pass),
		}
		productive, err := p.run()
		o.stats.Passes++
		o.metrics.observePass()
		if err != nil {
			if errors.Is(err, ErrNonTermination) {
				o.metrics.observeNonTermination()
				log.Warningf(p.ctx, "%v", err)
			}
			return err
		}
		log.VEventf(p.ctx, 1, "pass committed %d batches", p.commits)
		if !productive {
			return nil
		}
	}
}

// longVisitLog limits the reports of visits that commit many batches in a row,
// which usually means two rules are undoing each other.
var longVisitLog = log.Every(10 * time.Second)

// longVisit reports whether a visit that has committed retries batches has
// just gone past half of the retry cap. A single commit is never reported.
func longVisit(retries, maxRetries int) bool {
	return retries > 1 && retries == maxRetries/2+1
}

// passState is the state of a single pass. It is the Visitor of the pass's
// traversal.
type passState struct {
	o   *Optimizer
	g   *qgraph.Graph
	h   *history
	ctx context.Context

	commits int
	// err is the error that aborted the traversal.
	err error
}

var _ qgraph.Visitor = (*passState)(nil)

func (p *passState) run() (productive bool, _ error) {
	if err := p.rootPhase(); err != nil {
		return false, err
	}
	if !qgraph.Walk(p.g, p) {
		return false, p.err
	}
	return p.commits > 0, nil
}

// rootPhase commits the batch of the first root-only rule that matches the
// entry node.
func (p *passState) rootPhase() error {
	if len(p.o.rootRules) == 0 {
		return nil
	}
	entry := p.g.EntryNode()
	for _, i := range p.o.rootRules {
		r := p.o.rules[i]
		b, err := p.apply(r, entry)
		if err != nil {
			return err
		}
		if len(b) > 0 {
			return p.commit(r, entry, b)
		}
	}
	return nil
}

// VisitPre is part of the qgraph.Visitor interface.
func (p *passState) VisitPre(g *qgraph.Graph, id *qgraph.NodeID) qgraph.Action {
	return p.visit(id, p.o.topDownRules, qgraph.VisitInputs)
}

// VisitPost is part of the qgraph.Visitor interface.
func (p *passState) VisitPost(g *qgraph.Graph, id *qgraph.NodeID) qgraph.Action {
	return p.visit(id, p.o.bottomUpRules, qgraph.Continue)
}

// visit runs the retry loop of one phase against *id and updates *id to the
// node that replaced it, if any.
func (p *passState) visit(id *qgraph.NodeID, rules []int, next qgraph.Action) qgraph.Action {
	if len(rules) == 0 {
		return next
	}
	// The visited node may have been replaced by a batch committed for one of
	// its descendants, as column pruning does to the parents of a pruned node.
	cur := p.g.Resolve(*id)
	for retries := 0; ; {
		r, err := p.tryRules(rules, cur)
		if err != nil {
			p.err = err
			return qgraph.Abort
		}
		if r == nil {
			break
		}
		cur = p.g.Resolve(cur)
		retries++
		if longVisit(retries, p.o.cfg.MaxVisitRetries) && longVisitLog.ShouldLog() {
			log.Infof(p.ctx, "%d batches committed at node %d in one visit, last by %s",
				retries, cur, r.Name())
		}
		if retries > p.o.cfg.MaxVisitRetries {
			p.err = nonTerminationError(p.h,
				"rules fired more than %d times in a row at node %d", p.o.cfg.MaxVisitRetries, cur)
			return qgraph.Abort
		}
	}
	*id = cur
	return next
}

// tryRules commits the batch of the first rule that matches id, and returns
// that rule. It returns nil if no rule matches.
func (p *passState) tryRules(rules []int, id qgraph.NodeID) (rule.Rule, error) {
	for _, i := range rules {
		r := p.o.rules[i]
		b, err := p.apply(r, id)
		if err != nil {
			return nil, err
		}
		if len(b) == 0 {
			continue
		}
		if err := p.commit(r, id, b); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, nil
}

// apply runs a single rule, converting a panic inside the rule into an error.
func (p *passState) apply(r rule.Rule, id qgraph.NodeID) (b qgraph.Batch, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = ruleApplicationError(opt.CatchOptimizerError(rec), r.Name(), id)
		}
	}()
	b, err = r.Apply(p.g, id)
	if err != nil {
		return nil, ruleApplicationError(err, r.Name(), id)
	}
	return b, nil
}

func (p *passState) commit(r rule.Rule, id qgraph.NodeID, b qgraph.Batch) error {
	discarded, err := p.g.ApplyReplacements(b)
	if err != nil {
		return ruleApplicationError(err, r.Name(), id)
	}
	p.commits++
	p.o.stats.Commits++
	p.o.stats.Firings[r.Name()]++
	p.h.fired(r.Name())
	p.o.metrics.observeCommit(r.Name())
	if log.V(2) {
		log.VEventf(p.ctx, 2, "%s at node %d replaced %s", r.Name(), id, redact.Safe(discarded))
	}
	return nil
}
