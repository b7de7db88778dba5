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

// Package linux contains the constants of the Linux ABI that the LibOS
// emulates towards the application. Values match the Linux UAPI headers.
package linux

// Open flags, from include/uapi/asm-generic/fcntl.h.
const (
	O_ACCMODE  = 0o3
	O_RDONLY   = 0o0
	O_WRONLY   = 0o1
	O_RDWR     = 0o2
	O_CREAT    = 0o100
	O_EXCL     = 0o200
	O_TRUNC    = 0o1000
	O_APPEND   = 0o2000
	O_NONBLOCK = 0o4000
)

// Seek origins, from include/uapi/linux/fs.h.
const (
	SEEK_SET = 0
	SEEK_CUR = 1
	SEEK_END = 2
)

// File type masks and modes, from include/uapi/linux/stat.h.
const (
	S_IFMT   = 0o170000
	S_IFSOCK = 0o140000
	S_IFLNK  = 0o120000
	S_IFREG  = 0o100000
	S_IFBLK  = 0o60000
	S_IFDIR  = 0o40000
	S_IFCHR  = 0o20000
	S_IFIFO  = 0o10000
)

// Permission bits.
const (
	PermUserRead = 0o400

	PermMask = 0o7777
)

// FileMode represents a mode_t: a file type combined with permission bits.
type FileMode uint32

// FileType returns the file type portion of the mode.
func (m FileMode) FileType() FileMode {
	return m & S_IFMT
}

// Permissions returns the permission portion of the mode.
func (m FileMode) Permissions() FileMode {
	return m & PermMask
}

// Memory protection and mapping flags, from include/uapi/asm-generic/mman-common.h.
const (
	PROT_NONE  = 0x0
	PROT_READ  = 0x1
	PROT_WRITE = 0x2
	PROT_EXEC  = 0x4

	MAP_SHARED    = 0x1
	MAP_PRIVATE   = 0x2
	MAP_FIXED     = 0x10
	MAP_ANONYMOUS = 0x20
)

// Poll event masks, from include/uapi/asm-generic/poll.h.
const (
	POLLIN  = 0x1
	POLLPRI = 0x2
	POLLOUT = 0x4
	POLLERR = 0x8
	POLLHUP = 0x10
)
