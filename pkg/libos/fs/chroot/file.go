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
	"math"

	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/errors/linuxerr"
	"enclos.dev/enclos/pkg/libos/fs"
	"enclos.dev/enclos/pkg/libos/fs/fsutil"
)

// Read implements fs.FileOps.Read. For regular files the cursor advances by
// the number of bytes the host actually returned, never by the request size.
func (fileOps) Read(h *fs.Handle, p []byte) (int, error) {
	inode := h.Inode()

	h.Lock()
	defer h.Unlock()

	stream := h.Stream()
	if stream == nil {
		return 0, linuxerr.EBADF
	}

	pos := h.Pos()

	// Make sure the read cannot take pos out of the signed range. Checked
	// before the PAL call so a wrapped position is never sent to the host.
	if inode.Type() == linux.S_IFREG && int64(len(p)) > math.MaxInt64-pos {
		return 0, linuxerr.EFBIG
	}

	n, err := stream.ReadAt(p, pos)
	if err != nil {
		return 0, fs.FromPALError(err)
	}
	if n < 0 || n > len(p) {
		fs.Bug("PAL read returned %d bytes for a %d-byte buffer", n, len(p))
	}
	if inode.Type() == linux.S_IFREG {
		h.SetPos(pos + int64(n))
	}
	return n, nil
}

// Write implements fs.FileOps.Write. Writing past the recorded end of file
// extends the inode size; this is the only place file size grows.
func (fileOps) Write(h *fs.Handle, p []byte) (int, error) {
	inode := h.Inode()

	inode.Lock()
	h.Lock()
	defer func() {
		h.Unlock()
		inode.Unlock()
	}()

	stream := h.Stream()
	if stream == nil {
		return 0, linuxerr.EBADF
	}

	pos := h.Pos()

	// Same overflow guard as Read.
	if inode.Type() == linux.S_IFREG && int64(len(p)) > math.MaxInt64-pos {
		return 0, linuxerr.EFBIG
	}

	n, err := stream.WriteAt(p, pos)
	if err != nil {
		return 0, fs.FromPALError(err)
	}
	if n < 0 || n > len(p) {
		fs.Bug("PAL write returned %d bytes for a %d-byte buffer", n, len(p))
	}
	if inode.Type() == linux.S_IFREG {
		pos += int64(n)
		h.SetPos(pos)
		if inode.Size() < pos {
			inode.SetSize(pos)
		}
	}
	return n, nil
}

// Map implements fs.FileOps.Map. Anonymous memory belongs to a different
// backend.
func (fileOps) Map(h *fs.Handle, prot, flags uint32, offset int64, length int) ([]byte, error) {
	if flags&linux.MAP_ANONYMOUS != 0 {
		return nil, linuxerr.EINVAL
	}

	stream := h.Stream()
	if stream == nil {
		return nil, linuxerr.EBADF
	}

	m, err := stream.Map(palProt(prot, flags), offset, length)
	if err != nil {
		return nil, fs.FromPALError(err)
	}
	return m, nil
}

// Truncate implements fs.FileOps.Truncate. The inode size is overwritten
// with the requested value unconditionally, including growth past the old
// end (hole-punch semantics).
func (fileOps) Truncate(h *fs.Handle, size int64) error {
	inode := h.Inode()
	inode.Lock()
	defer inode.Unlock()

	stream := h.Stream()
	if stream == nil {
		return linuxerr.EBADF
	}

	if err := stream.SetLength(size); err != nil {
		return fs.FromPALError(err)
	}
	inode.SetSize(size)
	return nil
}

// Flush implements fs.FileOps.Flush.
func (fileOps) Flush(h *fs.Handle) error {
	stream := h.Stream()
	if stream == nil {
		return linuxerr.EBADF
	}
	if err := stream.Flush(); err != nil {
		return fs.FromPALError(err)
	}
	return nil
}

// Seek implements fs.FileOps.Seek.
//
// The in-enclave emulation breaks for device files that report size 0 but
// have device-specific seek behavior.
func (fileOps) Seek(h *fs.Handle, offset int64, whence int) (int64, error) {
	return fsutil.Seek(h, offset, whence)
}

// Stat implements fs.FileOps.Stat.
func (fileOps) Stat(h *fs.Handle) (fs.Stat, error) {
	return fsutil.StatHandle(h)
}

// Poll implements fs.FileOps.Poll.
func (fileOps) Poll(h *fs.Handle, events fs.PollEvents) (fs.PollEvents, error) {
	return fsutil.Poll(h, events)
}
