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

// Package errno holds errno codes for the in-enclave POSIX personality.
// The values match include/uapi/asm-generic/errno-base.h and errno.h.
package errno

// Errno represents a Linux errno value.
type Errno uint32

// Errno values from include/uapi/asm-generic/errno-base.h.
const (
	NOERRNO Errno = iota
	EPERM
	ENOENT
	ESRCH
	EINTR
	EIO
	ENXIO
	E2BIG
	ENOEXEC
	EBADF
	ECHILD
	EAGAIN
	ENOMEM
	EACCES
	EFAULT
	ENOTBLK
	EBUSY
	EEXIST
	EXDEV
	ENODEV
	ENOTDIR
	EISDIR
	EINVAL
	ENFILE
	EMFILE
	ENOTTY
	ETXTBSY
	EFBIG
	ENOSPC
	ESPIPE
	EROFS
	EMLINK
	EPIPE
	EDOM
	ERANGE
)

// Errno values from include/uapi/asm-generic/errno.h.
const (
	EDEADLK Errno = iota + 35
	ENAMETOOLONG
	ENOLCK
	ENOSYS
	ENOTEMPTY
	ELOOP
	_ // 41 is unused.
	ENOMSG
	EIDRM
)

// More errno values from include/uapi/asm-generic/errno.h. Only codes the
// LibOS actually surfaces are defined.
const (
	EBADMSG    Errno = 74
	EOVERFLOW  Errno = 75
	EMSGSIZE   Errno = 90
	EOPNOTSUPP Errno = 95
	ESTALE     Errno = 116
)

// EWOULDBLOCK is the "operation would block" errno, equivalent to EAGAIN.
const EWOULDBLOCK = EAGAIN
