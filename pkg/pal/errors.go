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

package pal

// Error is a PAL-level error code. The PAL has its own error space; callers
// translate these to POSIX errnos at the LibOS boundary.
type Error struct {
	message string
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// PAL error sentinels. Implementations must return these (wrapping is not
// part of the contract), so callers compare with ==.
var (
	ErrInvalid      = &Error{"invalid argument"}
	ErrBadHandle    = &Error{"bad stream handle"}
	ErrDenied       = &Error{"access denied"}
	ErrNotExist     = &Error{"stream does not exist"}
	ErrExist        = &Error{"stream already exists"}
	ErrNotDirectory = &Error{"not a directory"}
	ErrIsDirectory  = &Error{"is a directory"}
	ErrOverflow     = &Error{"buffer too small"}
	ErrOutOfRange   = &Error{"value out of range"}
	ErrInterrupted  = &Error{"operation interrupted"}
	ErrNoMemory     = &Error{"out of host memory"}
	ErrNotSupported = &Error{"operation not supported"}
	ErrTooLong      = &Error{"name too long"}
	ErrBusy         = &Error{"stream busy"}
	ErrNoSpace      = &Error{"no space on host"}
	ErrIO           = &Error{"host I/O failure"}
)
