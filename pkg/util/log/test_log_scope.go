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
	"bytes"
	"sync"
	"testing"
)

// TestLogScope captures log output for the duration of a test. If the test
// fails, the captured output is replayed through t.Log.
type TestLogScope struct {
	restore   func()
	verbosity int32
	buf       *syncBuffer
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Scope redirects logging into a buffer owned by the returned scope. Use as
//
//	defer log.Scope(t).Close(t)
func Scope(t testing.TB) *TestLogScope {
	t.Helper()
	sc := &TestLogScope{buf: &syncBuffer{}}
	sc.restore = SetOutput(sc.buf)
	sc.verbosity = SetVerbosity(0)
	return sc
}

// SetVerbosity raises the verbosity for the rest of the scope.
func (sc *TestLogScope) SetVerbosity(level int32) {
	SetVerbosity(level)
}

// Output returns everything logged since the scope was created.
func (sc *TestLogScope) Output() string {
	return sc.buf.String()
}

// Close restores the previous log destination and verbosity.
func (sc *TestLogScope) Close(t testing.TB) {
	t.Helper()
	sc.restore()
	SetVerbosity(sc.verbosity)
	if t.Failed() {
		if out := sc.buf.String(); out != "" {
			t.Logf("log output:\n%s", out)
		}
	}
}
