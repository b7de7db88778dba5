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
	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/libos/fs"
)

// readdirBufSize is the block size for directory listing reads.
const readdirBufSize = 4096

// Readdir implements fs.DentryOps.Readdir by driving the PAL directory
// listing protocol over a temporary read-only stream: each read returns a
// block of NUL-terminated names (a nonempty block always ends with NUL), a
// zero-length read ends the listing, and a trailing '/' marks a directory
// and is stripped before the name reaches the callback.
func (dentryOps) Readdir(d *fs.Dentry, cb fs.ReaddirFunc) error {
	stream, err := tempOpen(d, linux.S_IFDIR)
	if err != nil {
		return err
	}
	defer stream.Close()

	buf := make([]byte, readdirBufSize)
	for {
		n, err := stream.ReadAt(buf, 0)
		if err != nil {
			return fs.FromPALError(err)
		}
		if n == 0 {
			// End of directory listing.
			return nil
		}

		if buf[n-1] != 0 {
			fs.Bug("PAL directory listing block is not NUL-terminated")
		}

		// Walk the NUL-separated entries and invoke cb on each.
		for start := 0; start < n-1; {
			end := start
			for buf[end] != 0 {
				end++
			}
			if end == start {
				fs.Bug("empty name in PAL directory listing")
			}

			name := buf[start:end]
			if name[len(name)-1] == '/' {
				name = name[:len(name)-1]
			}

			if err := cb(string(name)); err != nil {
				return err
			}
			start = end + 1
		}
	}
}
