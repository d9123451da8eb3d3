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
	"strings"

	"github.com/cockroachdb/logtags"
)

// FormatWithContextTags formats the string and prepends the context
// tags.
func FormatWithContextTags(ctx context.Context, format string, args ...interface{}) string {
	var buf strings.Builder
	formatTags(ctx, &buf)
	buf.WriteString(logging.format(format, args))
	return buf.String()
}

// formatTags writes the logtags of ctx as "[a=1,b] ". Nothing is written for
// a context without tags.
func formatTags(ctx context.Context, buf *strings.Builder) {
	tags := logtags.FromContext(ctx)
	if tags == nil || len(tags.Get()) == 0 {
		return
	}
	buf.WriteByte('[')
	tags.FormatToString(buf)
	buf.WriteString("] ")
}

// addStructured creates a structured log entry to be written to the
// current output.
func addStructured(
	ctx context.Context, s Severity, depth int, format string, args []interface{},
) {
	if ctx == nil {
		panic("nil context")
	}
	file, line := caller(depth + 1)
	logging.output(s, file, line, FormatWithContextTags(ctx, format, args...))
}
