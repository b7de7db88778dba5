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

// Package pal defines the Platform Abstraction Layer: the narrow interface
// through which the LibOS requests I/O from the untrusted host. Everything
// the host reports through this interface is untrusted and must be validated
// by the caller.
package pal

import "fmt"

// Access is the access mode a stream is opened with.
type Access uint8

// Access modes.
const (
	ReadOnly Access = iota
	WriteOnly
	ReadWrite
)

// CreateMode controls whether Open creates the stream's host object.
type CreateMode uint8

// Create modes.
const (
	// CreateNever opens an existing object and fails if it is missing.
	CreateNever CreateMode = iota

	// CreateTry creates the object if it is missing.
	CreateTry

	// CreateAlways creates the object and fails if it already exists. The
	// host guarantees atomicity: of two concurrent creators exactly one
	// succeeds.
	CreateAlways
)

// StreamOptions are extra flags passed to Open.
type StreamOptions uint32

// Stream options.
const (
	OptionNonblock StreamOptions = 1 << iota
)

// DeleteMode selects what Delete removes or shuts down.
type DeleteMode uint8

// Delete modes. Only DeleteAll is meaningful for host files.
const (
	DeleteAll DeleteMode = iota
	DeleteRead
	DeleteWrite
)

// Prot is the protection mask for Map.
type Prot uint32

// Map protections.
const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec

	// ProtWriteCopy requests a private copy-on-write mapping instead of a
	// shared one.
	ProtWriteCopy
)

// Kind is the host object kind reported by attribute queries.
type Kind uint8

// Stream kinds.
const (
	KindFile Kind = iota
	KindDir
	KindDev
	KindPipe
	KindSock
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindDev:
		return "dev"
	case KindPipe:
		return "pipe"
	case KindSock:
		return "sock"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Attr is the host-reported state of a stream. None of it is trusted; the
// LibOS decides what to adopt and when.
type Attr struct {
	// Kind is the host object kind.
	Kind Kind

	// Perm holds the host permission bits.
	Perm uint32

	// Size is the host-reported byte size. Only meaningful for KindFile.
	Size int64
}

// Client is the LibOS's entry point into the PAL. It is the only component
// allowed to perform actual host I/O.
type Client interface {
	// Open opens the stream addressed by uri. perm is only consulted when the
	// call creates the object.
	Open(uri URI, access Access, perm uint32, create CreateMode, options StreamOptions) (Stream, error)

	// AttrQuery reports the attributes of the object addressed by uri without
	// opening it.
	AttrQuery(uri URI) (Attr, error)
}

// Stream is one open host stream. All methods may block until the host
// responds; there is no cancellation at this layer.
//
// For directory streams, ReadAt implements the listing protocol: each call
// returns a block of NUL-terminated entry names (a name ending in '/' is a
// directory), a nonempty block always ends with a NUL, and a zero-length
// read signals the end of the listing. The offset is ignored.
type Stream interface {
	// ReadAt reads at the given offset for regular files. The offset is
	// ignored for devices and directories.
	ReadAt(p []byte, offset int64) (int, error)

	// WriteAt writes at the given offset for regular files. The offset is
	// ignored for devices.
	WriteAt(p []byte, offset int64) (int, error)

	// SetLength truncates or extends the stream to size bytes.
	SetLength(size int64) error

	// AttrQuery reports the attributes of the open stream.
	AttrQuery() (Attr, error)

	// SetPerm updates the host permission bits.
	SetPerm(perm uint32) error

	// Delete removes the stream's host object.
	Delete(mode DeleteMode) error

	// Rename moves the stream's host object to the path of newURI.
	Rename(newURI URI) error

	// Map memory-maps length bytes of the stream starting at offset.
	Map(prot Prot, offset int64, length int) ([]byte, error)

	// Flush commits buffered stream state to the host.
	Flush() error

	// Close releases the stream. It never blocks on host I/O.
	Close() error
}
