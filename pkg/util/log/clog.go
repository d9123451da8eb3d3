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

// Package log is a small leveled logger in the style of glog. Every call takes
// a context; the logtags attached to it are rendered in brackets before the
// message. Arguments that do not implement redact.SafeValue are printed in
// redaction markers when redactable output is enabled.
package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/redact"
)

// Severity is the severity of a log entry.
type Severity int32

// Severities, in increasing order.
const (
	InfoLog Severity = iota
	WarningLog
	ErrorLog
	NumSeverity
)

const severityChar = "IWE"

var severityName = []string{
	InfoLog:    "INFO",
	WarningLog: "WARNING",
	ErrorLog:   "ERROR",
}

func (s Severity) String() string {
	if s < 0 || s >= NumSeverity {
		return "UNKNOWN"
	}
	return severityName[s]
}

// SafeValue implements redact.SafeValue.
func (Severity) SafeValue() {}

type loggingT struct {
	mu struct {
		sync.Mutex
		out    io.Writer
		colors *colorProfile
	}
	verbosity  int32
	redactable int32

	// now is replaced in tests.
	now func() time.Time
}

var logging = func() *loggingT {
	l := &loggingT{now: time.Now}
	l.mu.out = os.Stderr
	l.mu.colors = stderrColorProfile
	return l
}()

// SetOutput redirects all log output to w and returns a function restoring the
// previous destination. Output to anything but the process's stderr is never
// colored.
func SetOutput(w io.Writer) (restore func()) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	prevOut, prevColors := logging.mu.out, logging.mu.colors
	logging.mu.out = w
	logging.mu.colors = nil
	if w == os.Stderr {
		logging.mu.colors = stderrColorProfile
	}
	return func() {
		logging.mu.Lock()
		defer logging.mu.Unlock()
		logging.mu.out, logging.mu.colors = prevOut, prevColors
	}
}

// SetVerbosity sets the level up to which V returns true and returns the
// previous level.
func SetVerbosity(level int32) (prev int32) {
	return atomic.SwapInt32(&logging.verbosity, level)
}

// SetRedactable controls whether unsafe arguments are enclosed in redaction
// markers.
func SetRedactable(enabled bool) {
	var v int32
	if enabled {
		v = 1
	}
	atomic.StoreInt32(&logging.redactable, v)
}

// V returns true if the configured verbosity is at least level.
func V(level int32) bool {
	return atomic.LoadInt32(&logging.verbosity) >= level
}

// Infof logs to the INFO log.
func Infof(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, InfoLog, 1, format, args)
}

// Warningf logs to the WARNING and INFO logs.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, WarningLog, 1, format, args)
}

// Errorf logs to the ERROR, WARNING, and INFO logs.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, ErrorLog, 1, format, args)
}

// VEventf logs to the INFO log if the verbosity is at least level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		addStructured(ctx, InfoLog, 1, format, args)
	}
}

func (l *loggingT) output(s Severity, file string, line int, msg string) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	buf := formatHeader(s, now, file, line, l.mu.colors)
	buf.WriteString(msg)
	if msg == "" || msg[len(msg)-1] != '\n' {
		buf.WriteByte('\n')
	}
	_, _ = l.mu.out.Write(buf.Bytes())
}

func (l *loggingT) format(format string, args []interface{}) string {
	var msg redact.RedactableString
	if format == "" {
		msg = redact.Sprint(args...)
	} else {
		msg = redact.Sprintf(format, args...)
	}
	if atomic.LoadInt32(&l.redactable) == 1 {
		return string(msg)
	}
	return msg.StripMarkers()
}

func caller(depth int) (string, int) {
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		return "???", 1
	}
	return filepath.Base(file), line
}

// formatHeader formats a log header as
//
//	Lyymmdd hh:mm:ss.uuuuuu file:line
//
// where L is the first letter of the severity.
func formatHeader(
	s Severity, now time.Time, file string, line int, colors *colorProfile,
) *bytes.Buffer {
	var buf bytes.Buffer
	if s < 0 || s >= NumSeverity {
		s = InfoLog
	}
	if colors != nil {
		buf.Write(colors.prefix(s))
	}
	buf.WriteByte(severityChar[s])
	buf.WriteString(now.Format("060102"))
	if colors != nil {
		buf.Write(colors.timePrefix)
	}
	buf.WriteString(now.Format(" 15:04:05.000000 "))
	fmt.Fprintf(&buf, "%s:%d ", file, line)
	if colors != nil {
		buf.Write(colorReset)
	}
	buf.WriteByte(' ')
	return &buf
}
