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
	"enclos.dev/enclos/pkg/errors/linuxerr"
	"enclos.dev/enclos/pkg/pal"
)

// hostPerm widens the permission sent to the host with a read bit, because
// the PAL requires re-opening a file read-only even for operations such as
// unlink or chmod.
//
// The widened bits are not visible to the process that created the file or
// changed its permissions: its inode records the caller's bits. Other LibOS
// processes sharing the mount will observe the widened value once they
// re-query the host.
func hostPerm(perm linux.FileMode) linux.FileMode {
	return perm | linux.PermUserRead
}

// palAccess converts Linux open flags to a PAL access mode.
func palAccess(flags uint32) (pal.Access, error) {
	switch flags & linux.O_ACCMODE {
	case linux.O_RDONLY:
		return pal.ReadOnly, nil
	case linux.O_WRONLY:
		return pal.WriteOnly, nil
	case linux.O_RDWR:
		return pal.ReadWrite, nil
	default:
		return 0, linuxerr.EINVAL
	}
}

// palCreate converts Linux open flags to a PAL create mode.
func palCreate(flags uint32) pal.CreateMode {
	switch {
	case flags&(linux.O_CREAT|linux.O_EXCL) == linux.O_CREAT|linux.O_EXCL:
		return pal.CreateAlways
	case flags&linux.O_CREAT != 0:
		return pal.CreateTry
	default:
		return pal.CreateNever
	}
}

// palOptions converts Linux open flags to PAL stream options.
func palOptions(flags uint32) pal.StreamOptions {
	var options pal.StreamOptions
	if flags&linux.O_NONBLOCK != 0 {
		options |= pal.OptionNonblock
	}
	return options
}

// palProt converts Linux mmap prot and flags to a PAL protection mask.
// Private mappings become copy-on-write on the host.
func palProt(prot, flags uint32) pal.Prot {
	var p pal.Prot
	if prot&linux.PROT_READ != 0 {
		p |= pal.ProtRead
	}
	if prot&linux.PROT_WRITE != 0 {
		p |= pal.ProtWrite
	}
	if prot&linux.PROT_EXEC != 0 {
		p |= pal.ProtExec
	}
	if flags&linux.MAP_PRIVATE != 0 {
		p |= pal.ProtWriteCopy
	}
	return p
}
