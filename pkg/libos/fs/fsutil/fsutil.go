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

// Package fsutil provides type-agnostic pieces of filesystem backends:
// cursor arithmetic, metadata synthesis and readiness polling over the
// enclave-side inode state. Backends whose per-file state lives entirely in
// the inode (host-backed and synthetic alike) wire these directly into their
// operation tables.
package fsutil

import (
	"hash/fnv"

	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/errors/linuxerr"
	"enclos.dev/enclos/pkg/libos/fs"
)

// addOverflows reports whether a+b overflows int64.
func addOverflows(a, b int64) bool {
	c := a + b
	return (b > 0 && c < a) || (b < 0 && c > a)
}

// SeekPosition computes a new cursor from the current position, the file
// size and a whence-relative offset. It returns EOVERFLOW if the arithmetic
// leaves the signed range and EINVAL for a bad whence or a negative result.
//
// Preconditions: pos >= 0, size >= 0.
func SeekPosition(pos, size, offset int64, whence int) (int64, error) {
	switch whence {
	case linux.SEEK_SET:
		pos = offset

	case linux.SEEK_CUR:
		if addOverflows(pos, offset) {
			return 0, linuxerr.EOVERFLOW
		}
		pos += offset

	case linux.SEEK_END:
		if addOverflows(size, offset) {
			return 0, linuxerr.EOVERFLOW
		}
		pos = size + offset

	default:
		return 0, linuxerr.EINVAL
	}

	if pos < 0 {
		return 0, linuxerr.EINVAL
	}
	return pos, nil
}

// Seek implements fs.FileOps.Seek for handles whose cursor is emulated
// entirely in-enclave against the inode size.
//
// Some device files report size 0 and would need device-specific seek logic;
// this emulation is wrong for those.
func Seek(h *fs.Handle, offset int64, whence int) (int64, error) {
	inode := h.Inode()
	inode.Lock()
	h.Lock()
	defer func() {
		h.Unlock()
		inode.Unlock()
	}()

	pos, err := SeekPosition(h.Pos(), inode.Size(), offset, whence)
	if err != nil {
		return 0, err
	}
	h.SetPos(pos)
	return pos, nil
}

// statInode synthesizes POSIX metadata from the inode under its lock.
func statInode(inode *fs.Inode) fs.Stat {
	inode.Lock()
	defer inode.Unlock()

	var stat fs.Stat
	stat.Mode = inode.Type() | inode.Perm()
	stat.Size = inode.Size()

	// Pretend nlink is 2 for directories (to account for "." and "..") and 1
	// for other files. Keeping the exact count would mean listing the
	// directory and accounting for synthetic entries the LibOS itself
	// creates, and applications are unlikely to depend on the exact value.
	stat.Nlink = 1
	if inode.Type() == linux.S_IFDIR {
		stat.Nlink = 2
	}

	hash := fnv.New64a()
	hash.Write([]byte(inode.Mount().URI()))
	stat.Dev = hash.Sum64()

	return stat
}

// StatDentry implements fs.DentryOps.Stat from inode state alone.
func StatDentry(g *fs.TreeGuard, d *fs.Dentry) (fs.Stat, error) {
	inode := d.Inode(g)
	if inode == nil {
		fs.Bug("stat on unresolved dentry %q", d.Name())
	}
	return statInode(inode), nil
}

// StatHandle implements fs.FileOps.Stat from inode state alone.
func StatHandle(h *fs.Handle) (fs.Stat, error) {
	return statInode(h.Inode()), nil
}

// Poll implements fs.FileOps.Poll from inode state alone. Regular files are
// always writable and are readable while the cursor is before end of file.
//
// The cursor check deviates from POSIX poll(2), which treats end-of-file as
// readable. Kept as-is until the poll emulation above this layer is audited
// against that behavior.
func Poll(h *fs.Handle, events fs.PollEvents) (fs.PollEvents, error) {
	inode := h.Inode()
	inode.Lock()
	h.Lock()
	defer func() {
		h.Unlock()
		inode.Unlock()
	}()

	if inode.Type() != linux.S_IFREG {
		return 0, linuxerr.EAGAIN
	}

	var ready fs.PollEvents
	if events&linux.POLLOUT != 0 {
		ready |= linux.POLLOUT
	}
	if events&linux.POLLIN != 0 && h.Pos() < inode.Size() {
		ready |= linux.POLLIN
	}
	return ready, nil
}

// Readdir implements fs.DentryOps.Readdir by walking the dentry's resolved
// children, for backends that keep the whole listing in the tree.
func Readdir(g *fs.TreeGuard, d *fs.Dentry, cb fs.ReaddirFunc) error {
	inode := d.Inode(g)
	if inode == nil || inode.Type() != linux.S_IFDIR {
		fs.Bug("readdir on non-directory dentry %q", d.Name())
	}
	return d.ForEachChild(g, func(child *fs.Dentry) error {
		if child.Inode(g) == nil {
			return nil
		}
		return cb(child.Name())
	})
}
