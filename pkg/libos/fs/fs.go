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

// Package fs defines the filesystem contracts of the LibOS: the dentry tree,
// inodes, open-file handles, and the operation tables every filesystem
// backend implements. Backends translate these operations into PAL calls (or
// synthesize results entirely in-enclave) and keep the enclave-side metadata
// authoritative.
//
// Lock order: when both an inode lock and a handle lock are needed, the
// inode lock is acquired first. No code in this package or in any backend
// may acquire them in the reverse order.
package fs

import (
	"fmt"

	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/pal"
	"enclos.dev/enclos/pkg/sync"
)

// Stat is the synthesized POSIX view of an inode.
type Stat struct {
	// Mode combines the file type and the permission bits.
	Mode linux.FileMode

	// Size is the enclave-side authoritative size in bytes.
	Size int64

	// Nlink is the link count presented to the application.
	Nlink uint32

	// Dev identifies the mount the inode belongs to.
	Dev uint64
}

// PollEvents is a mask of linux.POLL* readiness bits.
type PollEvents uint16

// ReaddirFunc is invoked once per directory entry. Enumeration stops and the
// error propagates on the first non-nil return.
type ReaddirFunc func(name string) error

// Filesystem is one pluggable filesystem backend. Dispatch is static per
// mount: a Mount binds to one Filesystem at creation and never changes it.
type Filesystem interface {
	// Name returns the backend name used in mount tables.
	Name() string

	// Mount validates a root URI for this backend.
	Mount(uri pal.URI) error

	// FileOps returns the per-handle operation table.
	FileOps() FileOps

	// DentryOps returns the per-dentry operation table.
	DentryOps() DentryOps
}

// FileOps operate on open handles.
type FileOps interface {
	// Read reads up to len(p) bytes at the handle cursor and advances the
	// cursor by the number of bytes actually read (regular files only).
	Read(h *Handle, p []byte) (int, error)

	// Write writes len(p) bytes at the handle cursor, advances the cursor and
	// extends the inode size if the write went past end of file (regular
	// files only).
	Write(h *Handle, p []byte) (int, error)

	// Map memory-maps length bytes of the handle at offset. prot and flags
	// take linux.PROT_* and linux.MAP_* values.
	Map(h *Handle, prot, flags uint32, offset int64, length int) ([]byte, error)

	// Seek repositions the handle cursor and returns the new position.
	Seek(h *Handle, offset int64, whence int) (int64, error)

	// Truncate sets the stream length and the inode size to size.
	Truncate(h *Handle, size int64) error

	// Flush commits buffered stream state to the host.
	Flush(h *Handle) error

	// Stat synthesizes the POSIX metadata of the handle's inode.
	Stat(h *Handle) (Stat, error)

	// Poll reports which of the requested events are ready.
	Poll(h *Handle, events PollEvents) (PollEvents, error)

	// Checkout prepares a checkpoint copy of a handle for migration. h is the
	// frozen copy, never the live handle; implementations must not take its
	// lock.
	Checkout(g *TreeGuard, h *Handle) error

	// Checkin makes a migrated handle usable in the new process. h is being
	// initialized; implementations must not take its lock.
	Checkin(h *Handle) error
}

// DentryOps operate on dentries. Operations taking a *TreeGuard require the
// caller to hold the dentry-tree lock for their whole duration.
type DentryOps interface {
	// Lookup discovers the type of the host object behind a dentry that has
	// no inode yet and attaches a fresh inode on success.
	Lookup(g *TreeGuard, d *Dentry) error

	// Open opens a handle on a dentry that already has an inode.
	Open(g *TreeGuard, h *Handle, d *Dentry, flags uint32) error

	// Create creates a regular file. The dentry must have no inode; a
	// concurrent creator on the host loses the race.
	Create(g *TreeGuard, h *Handle, d *Dentry, flags uint32, perm linux.FileMode) error

	// Mkdir creates a directory. Same exclusivity discipline as Create, but
	// no handle is produced.
	Mkdir(g *TreeGuard, d *Dentry, perm linux.FileMode) error

	// Stat synthesizes the POSIX metadata of the dentry's inode.
	Stat(g *TreeGuard, d *Dentry) (Stat, error)

	// Readdir enumerates the directory's entries, invoking cb once per name.
	Readdir(d *Dentry, cb ReaddirFunc) error

	// Unlink removes the host object behind the dentry. The caller detaches
	// the inode afterwards.
	Unlink(g *TreeGuard, d *Dentry) error

	// Rename moves the object behind oldD to the path of newD.
	Rename(g *TreeGuard, oldD, newD *Dentry) error

	// Chmod updates the permission bits. The inode records perm exactly as
	// requested, whatever the backend had to send to the host.
	Chmod(g *TreeGuard, d *Dentry, perm linux.FileMode) error
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]Filesystem)
)

// Register adds a filesystem backend to the global registry. It panics if
// the name is already taken.
func Register(fsys Filesystem) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name := fsys.Name()
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("filesystem %q registered twice", name))
	}
	registry[name] = fsys
}

// Find returns the registered backend with the given name.
func Find(name string) (Filesystem, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	fsys, ok := registry[name]
	return fsys, ok
}
