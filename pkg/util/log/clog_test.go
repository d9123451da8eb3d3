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

package log

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/stretchr/testify/require"
)

func TestHeaderAndTags(t *testing.T) {
	sc := Scope(t)
	defer sc.Close(t)

	ctx := logtags.AddTag(context.Background(), "optimizer", nil)
	ctx = logtags.AddTag(ctx, "pass", 3)
	Infof(ctx, "fired %s on %d", redact.Safe("merge-filters"), 7)
	Warningf(context.Background(), "plain")

	lines := strings.Split(strings.TrimSpace(sc.Output()), "\n")
	require.Len(t, lines, 2)
	require.Regexp(t,
		regexp.MustCompile(`^I\d{6} \d\d:\d\d:\d\d\.\d{6} clog_test\.go:\d+  \[optimizer,pass=3\] fired merge-filters on 7$`),
		lines[0])
	require.Regexp(t, `^W\d{6} .* plain$`, lines[1])
}

func TestVerbosity(t *testing.T) {
	sc := Scope(t)
	defer sc.Close(t)

	ctx := context.Background()
	require.False(t, V(1))
	VEventf(ctx, 1, "hidden")
	require.Empty(t, sc.Output())

	sc.SetVerbosity(2)
	require.True(t, V(1))
	require.True(t, V(2))
	require.False(t, V(3))
	VEventf(ctx, 2, "shown")
	require.Contains(t, sc.Output(), "shown")
}

func TestRedactable(t *testing.T) {
	sc := Scope(t)
	defer sc.Close(t)
	defer SetRedactable(false)

	ctx := context.Background()
	Infof(ctx, "table %s rule %s", "secret", redact.Safe("prune-cols"))
	require.Contains(t, sc.Output(), "table secret rule prune-cols")

	SetRedactable(true)
	Errorf(ctx, "table %s rule %s", "secret", redact.Safe("prune-cols"))
	require.Contains(t, sc.Output(), "table ‹secret› rule prune-cols")
}

func TestFormatWithContextTags(t *testing.T) {
	ctx := logtags.AddTag(context.Background(), "node", 1)
	require.Equal(t, "[node=1] x=2", FormatWithContextTags(ctx, "x=%d", 2))
	require.Equal(t, "x=2", FormatWithContextTags(context.Background(), "x=%d", 2))
}

func TestEveryN(t *testing.T) {
	sc := Scope(t)
	defer sc.Close(t)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Every(time.Minute)
	require.True(t, e.shouldLog(start))
	require.False(t, e.shouldLog(start.Add(time.Second)))
	require.True(t, e.shouldLog(start.Add(time.Minute)))

	sc.SetVerbosity(2)
	require.True(t, e.shouldLog(start.Add(time.Minute+time.Second)))
}

func TestProfileForTerm(t *testing.T) {
	require.Equal(t, colorProfile256, profileForTerm("xterm-256color"))
	require.Equal(t, colorProfile8, profileForTerm("screen"))
	require.Equal(t, colorProfile8, profileForTerm("tmux"))
	require.Nil(t, profileForTerm("dumb"))
}
