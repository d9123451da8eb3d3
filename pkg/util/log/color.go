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
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// colorProfile defines escape sequences which provide color in
// terminals. Some terminals support 8 colors, some 256, others
// none at all.
type colorProfile struct {
	infoPrefix  []byte
	warnPrefix  []byte
	errorPrefix []byte
	timePrefix  []byte
}

func (c *colorProfile) prefix(s Severity) []byte {
	switch s {
	case WarningLog:
		return c.warnPrefix
	case ErrorLog:
		return c.errorPrefix
	}
	return c.infoPrefix
}

var colorReset = []byte("\033[0m")

// For terms with 8-color support.
var colorProfile8 = &colorProfile{
	infoPrefix:  []byte("\033[0;36;49m"),
	warnPrefix:  []byte("\033[0;33;49m"),
	errorPrefix: []byte("\033[0;31;49m"),
	timePrefix:  []byte("\033[2;37;49m"),
}

// For terms with 256-color support.
var colorProfile256 = &colorProfile{
	infoPrefix:  []byte("\033[38;5;33m"),
	warnPrefix:  []byte("\033[38;5;214m"),
	errorPrefix: []byte("\033[38;5;160m"),
	timePrefix:  []byte("\033[38;5;246m"),
}

// stderrColorProfile is nil unless stderr is a terminal whose TERM advertises
// color support.
var stderrColorProfile = func() *colorProfile {
	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	return profileForTerm(os.Getenv("TERM"))
}()

func profileForTerm(term string) *colorProfile {
	switch term {
	case "ansi", "tmux":
		return colorProfile8
	case "st":
		return colorProfile256
	}
	if strings.HasSuffix(term, "256color") {
		return colorProfile256
	}
	if strings.HasSuffix(term, "color") || strings.HasPrefix(term, "screen") {
		return colorProfile8
	}
	return nil
}
