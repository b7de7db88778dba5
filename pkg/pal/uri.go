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

import "strings"

// Stream URI schemes understood by the PAL.
const (
	SchemeFile = "file" // regular host files
	SchemeDir  = "dir"  // host directories
	SchemeDev  = "dev"  // host character devices
)

// URI addresses a host-side stream as "<scheme>:<path>". The scheme selects
// the PAL stream implementation; the path is interpreted by it.
type URI string

// MakeURI builds a URI from a scheme and a path.
func MakeURI(scheme, path string) URI {
	return URI(scheme + ":" + path)
}

// Scheme returns the URI's scheme, or "" if the URI is malformed.
func (u URI) Scheme() string {
	if i := strings.IndexByte(string(u), ':'); i >= 0 {
		return string(u[:i])
	}
	return ""
}

// Path returns the part of the URI after the scheme.
func (u URI) Path() string {
	if i := strings.IndexByte(string(u), ':'); i >= 0 {
		return string(u[i+1:])
	}
	return string(u)
}

// String implements fmt.Stringer.
func (u URI) String() string {
	return string(u)
}
