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

import (
	"enclos.dev/enclos/pkg/pal"
)

// Mount is one mounted filesystem instance. Immutable after creation;
// dentries and inodes reference it but never own it.
type Mount struct {
	fsys   Filesystem
	client pal.Client
	uri    pal.URI
}

// NewMount validates uri against the backend and creates the mount.
func NewMount(fsys Filesystem, client pal.Client, uri pal.URI) (*Mount, error) {
	if err := fsys.Mount(uri); err != nil {
		return nil, err
	}
	return &Mount{fsys: fsys, client: client, uri: uri}, nil
}

// Filesystem returns the backend serving this mount.
func (m *Mount) Filesystem() Filesystem {
	return m.fsys
}

// Client returns the PAL client the mount performs host I/O through.
func (m *Mount) Client() pal.Client {
	return m.client
}

// URI returns the mount's root URI.
func (m *Mount) URI() pal.URI {
	return m.uri
}
