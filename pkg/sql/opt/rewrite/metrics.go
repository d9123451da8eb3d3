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
	"github.com/cockroachdb/qgraph/pkg/sql/opt/rule"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus metrics exported by an Optimizer. A nil *Metrics
// records nothing.
type Metrics struct {
	Passes         prometheus.Counter
	Commits        *prometheus.CounterVec
	NonTermination prometheus.Counter
	PassesPerRun   prometheus.Histogram
}

// NewMetrics creates the optimizer metrics and registers them with reg. A nil
// reg creates unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Passes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "qgraph",
			Subsystem: "optimizer",
			Name:      "passes_total",
			Help:      "Total number of optimizer passes over a query graph.",
		}),
		Commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qgraph",
			Subsystem: "optimizer",
			Name:      "batches_committed_total",
			Help:      "Total number of replacement batches committed, by rule.",
		}, []string{"rule"}),
		NonTermination: f.NewCounter(prometheus.CounterOpts{
			Namespace: "qgraph",
			Subsystem: "optimizer",
			Name:      "nontermination_total",
			Help:      "Total number of optimizations that did not reach a fixed point.",
		}),
		PassesPerRun: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qgraph",
			Subsystem: "optimizer",
			Name:      "passes_per_run",
			Help:      "Number of passes needed by each optimization.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}

func (m *Metrics) observePass() {
	if m != nil {
		m.Passes.Inc()
	}
}

func (m *Metrics) observeCommit(name rule.Name) {
	if m != nil {
		m.Commits.WithLabelValues(string(name)).Inc()
	}
}

func (m *Metrics) observeNonTermination() {
	if m != nil {
		m.NonTermination.Inc()
	}
}

func (m *Metrics) observeRun(passes int) {
	if m != nil {
		m.PassesPerRun.Observe(float64(passes))
	}
}
