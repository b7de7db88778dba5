// Copyright 2025 The Enclos Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fs

import "fmt"

// BugError marks an internal-consistency violation: a state that conformant
// PAL implementations and correct LibOS code can never produce. It is raised
// by panic, never returned, so it cannot be confused with an ordinary errno.
type BugError struct {
	message string
}

// Error implements error.Error.
func (e *BugError) Error() string { return e.message }

// Bug panics with a *BugError. Use it for "can't happen" branches, e.g. when
// the untrusted host violates a PAL protocol contract.
func Bug(format string, args ...any) {
	panic(&BugError{message: fmt.Sprintf(format, args...)})
}
