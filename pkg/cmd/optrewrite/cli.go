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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/norm"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/planspec"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/qgraph"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/rewrite"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/rule"
	"github.com/cockroachdb/qgraph/pkg/util/log"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xlab/treeprint"
)

func makeOptRewriteCommand(out io.Writer) *cobra.Command {
	command := &cobra.Command{
		Use:   "optrewrite [command] (flags)",
		Short: "optrewrite applies the query graph normalization rules to a plan.",
		Long: `optrewrite applies the query graph normalization rules to a plan.

Typical usage:
    optrewrite optimize --plan=plan.yaml --stats
        Optimize the plan in plan.yaml and print the rules that fired.

    optrewrite rules
        List the normalization rules and their phases.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	command.SetOut(out)
	command.AddCommand(makeOptimizeCommand())
	command.AddCommand(makeRulesCommand())
	return command
}

type optimizeConfig struct {
	planPath   string
	configPath string
	maxPasses  int
	disabled   []string
	stats      bool
	metrics    bool
	showTypes  bool
	verbosity  int
}

func makeOptimizeCommand() *cobra.Command {
	var config optimizeConfig
	cmd := &cobra.Command{
		Use:   "optimize --plan=<file>",
		Short: "Optimize a plan and print it before and after.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.optimizerConfig(cmd)
			if err != nil {
				return err
			}
			return runOptimize(cmd.Context(), cmd.OutOrStdout(), config, cfg)
		},
	}
	registerOptimizeFlags(cmd.Flags(), &config)
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func registerOptimizeFlags(f *pflag.FlagSet, c *optimizeConfig) {
	defaults := rewrite.DefaultConfig()
	f.StringVar(&c.planPath, "plan", "", "YAML file describing the plan to optimize")
	f.StringVar(&c.configPath, "config", "", "YAML file with optimizer settings")
	f.IntVar(&c.maxPasses, "max-passes", defaults.MaxPasses, "number of passes after which optimization fails")
	f.StringSliceVar(&c.disabled, "disable-rule", nil, "rules that are not applied")
	f.BoolVar(&c.stats, "stats", false, "print the number of times each rule fired")
	f.BoolVar(&c.metrics, "metrics", false, "print the optimizer metrics in the prometheus text format")
	f.BoolVar(&c.showTypes, "types", false, "print the column types of every node")
	f.IntVarP(&c.verbosity, "verbosity", "v", 0, "log verbosity")
}

// optimizerConfig merges the defaults, the config file and the flags that were
// set explicitly, in that order.
func (c optimizeConfig) optimizerConfig(cmd *cobra.Command) (rewrite.Config, error) {
	cfg := rewrite.DefaultConfig()
	if c.configPath != "" {
		var err error
		if cfg, err = rewrite.LoadConfig(c.configPath); err != nil {
			return rewrite.Config{}, err
		}
	}
	if cmd.Flags().Changed("max-passes") {
		cfg.MaxPasses = c.maxPasses
	}
	cfg.DisabledRules = append(cfg.DisabledRules, c.disabled...)
	if err := cfg.Validate(); err != nil {
		return rewrite.Config{}, err
	}
	known := make(map[rule.Name]struct{})
	for _, r := range norm.DefaultRules() {
		known[r.Name()] = struct{}{}
	}
	for _, name := range cfg.DisabledRules {
		if _, ok := known[rule.Name(name)]; !ok {
			return rewrite.Config{}, errors.Newf("unknown rule %q", name)
		}
	}
	return cfg, nil
}

func runOptimize(ctx context.Context, w io.Writer, c optimizeConfig, cfg rewrite.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer log.SetVerbosity(log.SetVerbosity(int32(c.verbosity)))

	data, err := os.ReadFile(c.planPath)
	if err != nil {
		return errors.Wrap(err, "reading plan")
	}
	g, _, err := planspec.Parse(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "input:")
	fmt.Fprint(w, formatTree(g, c.showTypes))

	reg := prometheus.NewRegistry()
	o := rewrite.New(norm.DefaultRules(), rewrite.WithConfig(cfg), rewrite.WithMetrics(rewrite.NewMetrics(reg)))
	optErr := o.Optimize(ctx, g)
	if optErr == nil {
		fmt.Fprintln(w, "optimized:")
		fmt.Fprint(w, formatTree(g, c.showTypes))
	}
	if c.stats {
		writeStats(w, o)
	}
	if c.metrics {
		if err := writeMetrics(w, reg); err != nil {
			return err
		}
	}
	return optErr
}

// formatTree renders the plan rooted at the entry node as a tree.
func formatTree(g *qgraph.Graph, showTypes bool) string {
	root := treeprint.New()
	trees := []treeprint.Tree{root}
	qgraph.Walk(g, qgraph.VisitorFuncs{
		Pre: func(g *qgraph.Graph, id *qgraph.NodeID) qgraph.Action {
			label := g.FormatNode(*id)
			if showTypes {
				label = fmt.Sprintf("%s %v", label, g.ColumnTypes(*id))
			}
			trees = append(trees, trees[len(trees)-1].AddBranch(label))
			return qgraph.VisitInputs
		},
		Post: func(g *qgraph.Graph, id *qgraph.NodeID) qgraph.Action {
			trees = trees[:len(trees)-1]
			return qgraph.Continue
		},
	})
	return root.String()
}

func writeStats(w io.Writer, o *rewrite.Optimizer) {
	s := o.Stats()
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"rule", "phase", "firings"})
	rules := append([]rule.Rule(nil), o.Rules()...)
	sort.SliceStable(rules, func(i, j int) bool {
		return s.Firings[rules[i].Name()] > s.Firings[rules[j].Name()]
	})
	for _, r := range rules {
		table.Append([]string{string(r.Name()), r.Phase().String(), strconv.Itoa(s.Firings[r.Name()])})
	}
	table.Render()
	fmt.Fprintf(w, "%d passes, %d commits\n", s.Passes, s.Commits)
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "writing metrics")
		}
	}
	return nil
}

func makeRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the normalization rules in the order they are tried.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetAutoFormatHeaders(false)
			table.SetHeader([]string{"rule", "phase", "kind"})
			for _, r := range norm.DefaultRules() {
				kind := "general"
				if rule.Unwrap(r) != nil {
					kind = "simple"
				}
				table.Append([]string{string(r.Name()), r.Phase().String(), kind})
			}
			table.Render()
			return nil
		},
	}
}
