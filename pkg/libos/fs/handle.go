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
	"enclos.dev/enclos/pkg/errors/linuxerr"
	"enclos.dev/enclos/pkg/pal"
	"enclos.dev/enclos/pkg/sync"
)

// Handle is one open-file instance. The cursor is guarded by the handle's
// own lock; the URI, flags and inode link are fixed by Init and read freely
// afterwards. The PAL stream is nil while the handle is detached for
// migration.
//
// Lock order: the inode lock before h's lock, never the reverse.
type Handle struct {
	dentry *Dentry
	inode  *Inode
	uri    pal.URI
	flags  uint32

	// mu guards pos. The cursor is only meaningful for regular files.
	mu  sync.Mutex
	pos int64

	// stream is the attached PAL stream, nil if detached. Mutated only
	// during open, checkout and checkin, which all operate on handle state
	// no other thread can reach.
	stream pal.Stream
}

// NewHandle creates an unopened handle for d. The backend's Open or Create
// completes it via Init.
func NewHandle(d *Dentry) *Handle {
	return &Handle{dentry: d}
}

// Init binds an opened PAL stream to the handle and zeroes the cursor.
// Called exactly once, before the handle is shared.
func (h *Handle) Init(uri pal.URI, flags uint32, inode *Inode, stream pal.Stream) {
	h.uri = uri
	h.flags = flags
	h.inode = inode
	h.pos = 0
	h.stream = stream
}

// Dentry returns the dentry the handle was opened on.
func (h *Handle) Dentry() *Dentry {
	return h.dentry
}

// Inode returns the inode cached at open time. It may differ from the
// dentry's current inode if the file was unlinked or replaced since.
func (h *Handle) Inode() *Inode {
	return h.inode
}

// URI returns the URI the stream was opened with, retained for reopening.
func (h *Handle) URI() pal.URI {
	return h.uri
}

// Flags returns the open flags.
func (h *Handle) Flags() uint32 {
	return h.flags
}

// Lock takes the handle lock.
func (h *Handle) Lock() {
	h.mu.Lock()
}

// Unlock releases the handle lock.
func (h *Handle) Unlock() {
	h.mu.Unlock()
}

// Pos returns the cursor.
//
// Precondition: h.mu must be held.
func (h *Handle) Pos() int64 {
	return h.pos
}

// SetPos moves the cursor.
//
// Precondition: h.mu must be held.
func (h *Handle) SetPos(pos int64) {
	h.pos = pos
}

// Stream returns the attached PAL stream, or nil if the handle is detached.
func (h *Handle) Stream() pal.Stream {
	return h.stream
}

// SetStream attaches or detaches the PAL stream. See the stream field for
// when this is safe without the handle lock.
func (h *Handle) SetStream(s pal.Stream) {
	h.stream = s
}

// Attached reports whether the handle has a live PAL stream.
func (h *Handle) Attached() bool {
	return h.stream != nil
}

// Close releases the PAL stream, if any.
func (h *Handle) Close() error {
	if h.stream == nil {
		return nil
	}
	err := h.stream.Close()
	h.stream = nil
	return err
}

// CheckpointClone returns a frozen copy of the handle for the checkpoint
// image. The copy's lock is fresh and must not be taken; backends treat the
// copy as already isolated.
func (h *Handle) CheckpointClone() *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &Handle{
		dentry: h.dentry,
		inode:  h.inode,
		uri:    h.uri,
		flags:  h.flags,
		pos:    h.pos,
		stream: h.stream,
	}
}

// HandleState is the serializable part of a handle included in a checkpoint
// image. The PAL stream itself never transfers; Attached records whether the
// source process deliberately kept it (in which case migration of this
// handle is not possible and restoring it must fail loudly).
type HandleState struct {
	URI      pal.URI
	Flags    uint32
	Pos      int64
	Attached bool
}

// SaveState snapshots a checkout-processed checkpoint copy.
func (h *Handle) SaveState() HandleState {
	return HandleState{
		URI:      h.uri,
		Flags:    h.flags,
		Pos:      h.pos,
		Attached: h.stream != nil,
	}
}

// RestoreHandle rebuilds a handle from a checkpoint snapshot in the restored
// process. stream is the out-of-band transferred PAL stream, nil if none was
// sent. A snapshot that kept its stream attached cannot be restored without
// one; that is reported, not papered over. Detached handles are reattached
// lazily by the backend's Checkin.
func RestoreHandle(g *TreeGuard, d *Dentry, st HandleState, stream pal.Stream) (*Handle, error) {
	if st.Attached && stream == nil {
		return nil, linuxerr.EIO
	}
	return &Handle{
		dentry: d,
		inode:  d.Inode(g),
		uri:    st.URI,
		flags:  st.Flags,
		pos:    st.Pos,
		stream: stream,
	}, nil
}
