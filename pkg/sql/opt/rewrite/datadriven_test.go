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
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/norm"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/planspec"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/rule"
	"github.com/cockroachdb/qgraph/pkg/util/log"
)

// testRules are the rules that the optimize command can select in addition
// to the default rules.
var testRules = []rule.Rule{
	rule.Lift(limitRule("GrowLimit", rule.TopDown, 10, 20)),
	rule.Lift(limitRule("ShrinkLimit", rule.BottomUp, 20, 10)),
}

// TestOptimizerDataDriven runs the files in testdata. The commands are:
//
//	build: builds a graph from the YAML plan in the input.
//	optimize [rules=a,b,...] [max-passes=n] [history=n] [disable=a,b,...]:
//	  optimizes the graph and prints the result and the rules that fired.
func TestOptimizerDataDriven(t *testing.T) {
	defer log.Scope(t).Close(t)

	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		var g *qgraph.Graph
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "build":
				var err error
				if g, _, err = planspec.Parse([]byte(d.Input)); err != nil {
					return fmt.Sprintf("error: %v\n", err)
				}
				return g.String()

			case "optimize":
				cfg := DefaultConfig()
				rules := norm.DefaultRules()
				for _, arg := range d.CmdArgs {
					switch arg.Key {
					case "rules":
						rules = selectRules(t, arg.Vals)
					case "max-passes":
						d.ScanArgs(t, "max-passes", &cfg.MaxPasses)
					case "history":
						d.ScanArgs(t, "history", &cfg.HistoryPasses)
					case "disable":
						cfg.DisabledRules = arg.Vals
					default:
						d.Fatalf(t, "unknown argument %s", arg.Key)
					}
				}
				o := New(rules, WithConfig(cfg))
				err := o.Optimize(context.Background(), g)
				var buf strings.Builder
				if err != nil {
					fmt.Fprintf(&buf, "error: %v\n", err)
					for _, detail := range errors.GetAllDetails(err) {
						fmt.Fprintf(&buf, "detail: %s\n", detail)
					}
				} else {
					buf.WriteString(g.String())
				}
				s := o.Stats()
				fmt.Fprintf(&buf, "passes=%d commits=%d\n", s.Passes, s.Commits)
				var names []string
				for name := range s.Firings {
					names = append(names, string(name))
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(&buf, "  %s: %d\n", name, s.Firings[rule.Name(name)])
				}
				return buf.String()

			default:
				d.Fatalf(t, "unknown command %s", d.Cmd)
				return ""
			}
		})
	})
}

func selectRules(t *testing.T, names []string) []rule.Rule {
	all := append(norm.DefaultRules(), testRules...)
	var res []rule.Rule
	for _, name := range names {
		found := false
		for _, r := range all {
			if string(r.Name()) == name {
				res = append(res, r)
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("unknown rule %s", name)
		}
	}
	return res
}
