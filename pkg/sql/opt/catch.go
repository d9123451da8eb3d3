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

// Package opt holds helpers shared by the query graph optimizer packages.
package opt

import (
	"runtime"

	"github.com/cockroachdb/errors"
)

// CatchOptimizerError converts a value recovered from a panic in optimizer
// code into an error. It must be passed the result of recover(), called
// directly by the deferred function:
//
//	defer func() {
//	  if r := recover(); r != nil {
//	    err = opt.CatchOptimizerError(r)
//	  }
//	}()
//
// Optimizer code reports internal errors by panicking with an error instead of
// threading error returns through every helper. This is only safe because a
// rule that panics has not yet committed anything to the graph.
func CatchOptimizerError(r interface{}) error {
	err, ok := r.(error)
	if !ok {
		// Not an error object. The go runtime throws strings for fatal
		// internal problems, which we cannot recover from.
		panic(r)
	}
	if errors.HasInterface(err, (*runtime.Error)(nil)) {
		// Index out of range, nil dereference and the like are bugs in a rule.
		// Convert them to assertion failures so they carry a stack.
		return errors.HandleAsAssertionFailure(err)
	}
	return err
}
