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
	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/sync"
)

// Inode is the trusted per-file state shared by the dentry and every handle
// open on the file. Size and permission are the enclave's authoritative
// view: host-reported values are adopted once at Lookup and afterwards only
// re-synchronized by the owning backend on mutating operations.
//
// Lock order: i.mu before any Handle lock.
type Inode struct {
	mount *Mount

	// ftype is one of linux.S_IFREG, S_IFDIR, S_IFCHR. Immutable.
	ftype linux.FileMode

	// mu guards perm and size.
	mu   sync.Mutex
	perm linux.FileMode
	size int64
}

// NewInode creates an inode of the given type and permission with size 0.
func NewInode(m *Mount, ftype, perm linux.FileMode) *Inode {
	return &Inode{mount: m, ftype: ftype, perm: perm}
}

// Mount returns the mount the inode belongs to.
func (i *Inode) Mount() *Mount {
	return i.mount
}

// Type returns the file type (linux.S_IF*).
func (i *Inode) Type() linux.FileMode {
	return i.ftype
}

// Lock takes the inode lock.
func (i *Inode) Lock() {
	i.mu.Lock()
}

// Unlock releases the inode lock.
func (i *Inode) Unlock() {
	i.mu.Unlock()
}

// Size returns the recorded size.
//
// Precondition: i.mu must be held.
func (i *Inode) Size() int64 {
	return i.size
}

// SetSize records a new size.
//
// Precondition: i.mu must be held.
func (i *Inode) SetSize(size int64) {
	i.size = size
}

// Perm returns the recorded permission bits.
//
// Precondition: i.mu must be held.
func (i *Inode) Perm() linux.FileMode {
	return i.perm
}

// SetPerm records new permission bits.
//
// Precondition: i.mu must be held.
func (i *Inode) SetPerm(perm linux.FileMode) {
	i.perm = perm
}
