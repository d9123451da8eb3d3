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

package opt

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func catch(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = CatchOptimizerError(r)
		}
	}()
	f()
	return nil
}

func TestCatchOptimizerError(t *testing.T) {
	require.NoError(t, catch(func() {}))

	myErr := errors.New("boom")
	err := catch(func() { panic(myErr) })
	require.True(t, errors.Is(err, myErr))
	require.False(t, errors.HasAssertionFailure(err))

	err = catch(func() {
		var s []int
		_ = s[3]
	})
	require.Error(t, err)
	require.True(t, errors.HasAssertionFailure(err))

	require.Panics(t, func() {
		_ = catch(func() { panic("not an error") })
	})
}
