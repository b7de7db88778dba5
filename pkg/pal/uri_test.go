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

import "testing"

func TestURI(t *testing.T) {
	for _, tc := range []struct {
		uri    URI
		scheme string
		path   string
	}{
		{MakeURI(SchemeFile, "/srv/data/f"), "file", "/srv/data/f"},
		{MakeURI(SchemeDir, "."), "dir", "."},
		{MakeURI(SchemeDev, "tty"), "dev", "tty"},
		{MakeURI(SchemeFile, ""), "file", ""},
		{URI("noscheme"), "", "noscheme"},
		{URI("file:a:b"), "file", "a:b"},
	} {
		if got := tc.uri.Scheme(); got != tc.scheme {
			t.Errorf("%q.Scheme() = %q, want %q", tc.uri, got, tc.scheme)
		}
		if got := tc.uri.Path(); got != tc.path {
			t.Errorf("%q.Path() = %q, want %q", tc.uri, got, tc.path)
		}
	}
}
