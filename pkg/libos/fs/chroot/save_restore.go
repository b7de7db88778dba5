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

package chroot

import (
	"enclos.dev/enclos/pkg/libos/fs"
	"enclos.dev/enclos/pkg/log"
	"enclos.dev/enclos/pkg/pal"
)

// canRederive reports whether the restored process can reopen the stream from
// the handle's URI alone. That requires the dentry to still name the inode
// the handle was opened on (the file was not unlinked or replaced) and the
// URI to still resolve on the host.
func canRederive(sameInode, hostReachable bool) bool {
	return sameInode && hostReachable
}

// Checkout implements fs.FileOps.Checkout. It detaches the PAL stream from
// the checkpoint copy when the restored process can rederive it from the URI;
// otherwise the stream stays attached and must travel out of band.
//
// h is a frozen checkpoint copy no other thread can reach, so its lock is
// never taken here.
func (fileOps) Checkout(g *fs.TreeGuard, h *fs.Handle) error {
	if !h.Attached() {
		fs.Bug("checkout of already detached handle %q", h.URI())
	}

	sameInode := h.Dentry().Inode(g) == h.Inode()

	// Only bother the host when the inode check already passed.
	hostReachable := false
	if sameInode {
		_, err := h.Dentry().Mount().Client().AttrQuery(h.URI())
		hostReachable = err == nil
	}

	if canRederive(sameInode, hostReachable) {
		h.SetStream(nil)
	}
	return nil
}

// Checkin implements fs.FileOps.Checkin. It reattaches a detached handle by
// reopening its URI, never creating: if the file vanished between checkout
// and checkin, the reopen fails and the handle stays unusable.
//
// h is still being initialized in the restored process, so its lock is never
// taken here.
func (fileOps) Checkin(h *fs.Handle) error {
	if h.Attached() {
		return nil
	}
	stream, err := reopen(h)
	if err != nil {
		log.Warningf("failed to reattach handle %q after migration: %v", h.URI(), err)
		return err
	}
	h.SetStream(stream)
	return nil
}

// reopen opens a fresh PAL stream from the handle's recorded URI and flags.
func reopen(h *fs.Handle) (pal.Stream, error) {
	access, err := palAccess(h.Flags())
	if err != nil {
		return nil, err
	}
	stream, err := h.Dentry().Mount().Client().Open(h.URI(), access, 0, pal.CreateNever, palOptions(h.Flags()))
	if err != nil {
		return nil, fs.FromPALError(err)
	}
	return stream, nil
}
