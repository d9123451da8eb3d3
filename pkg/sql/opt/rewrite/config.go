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
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/qgraph/pkg/sql/opt/rule"
	"gopkg.in/yaml.v2"
)

// Config holds the tunables of an Optimizer.
type Config struct {
	// MaxPasses is the number of full passes after which an optimization that
	// has not reached a fixed point fails with ErrNonTermination.
	MaxPasses int `yaml:"max_passes"`
	// MaxVisitRetries bounds the number of batches committed while retrying
	// the rules of one phase against a single visited node.
	MaxVisitRetries int `yaml:"max_visit_retries"`
	// HistoryPasses is the number of most recent passes whose fired rules are
	// reported when optimization does not terminate.
	HistoryPasses int `yaml:"history_passes"`
	// DisabledRules lists rules that are never applied.
	DisabledRules []string `yaml:"disabled_rules,omitempty"`
}

// DefaultConfig returns the configuration used when no WithConfig option is
// given.
func DefaultConfig() Config {
	return Config{
		MaxPasses:       64,
		MaxVisitRetries: 256,
		HistoryPasses:   4,
	}
}

// ParseConfig decodes a YAML configuration. Fields absent from data keep their
// default values. Unknown fields are an error.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing optimizer config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and decodes the YAML configuration file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading optimizer config")
	}
	return ParseConfig(data)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.MaxPasses < 1 {
		return errors.Newf("max_passes must be positive, got %d", c.MaxPasses)
	}
	if c.MaxVisitRetries < 1 {
		return errors.Newf("max_visit_retries must be positive, got %d", c.MaxVisitRetries)
	}
	if c.HistoryPasses < 0 {
		return errors.Newf("history_passes must not be negative, got %d", c.HistoryPasses)
	}
	seen := make(map[string]struct{}, len(c.DisabledRules))
	for _, name := range c.DisabledRules {
		if name == "" {
			return errors.New("disabled_rules contains an empty rule name")
		}
		if _, ok := seen[name]; ok {
			return errors.Newf("rule %q is disabled twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (c Config) disabled(name rule.Name) bool {
	for _, n := range c.DisabledRules {
		if rule.Name(n) == name {
			return true
		}
	}
	return false
}

// Option configures an Optimizer.
type Option func(o *Optimizer)

// withDefaults returns c with the zero limits replaced by their defaults. A
// zero HistoryPasses is kept; it disables the history.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxPasses == 0 {
		c.MaxPasses = def.MaxPasses
	}
	if c.MaxVisitRetries == 0 {
		c.MaxVisitRetries = def.MaxVisitRetries
	}
	return c
}

// WithConfig replaces the default configuration. Zero limits in cfg take their
// default values. New panics if the resulting configuration is invalid.
func WithConfig(cfg Config) Option {
	return func(o *Optimizer) {
		o.cfg = cfg
	}
}

// WithMetrics records the optimizer's activity in m.
func WithMetrics(m *Metrics) Option {
	return func(o *Optimizer) {
		o.metrics = m
	}
}
