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
	"enclos.dev/enclos/pkg/errors"
	"enclos.dev/enclos/pkg/errors/linuxerr"
	"enclos.dev/enclos/pkg/log"
	"enclos.dev/enclos/pkg/pal"
)

// palErrnos translates PAL error sentinels into POSIX errnos, 1:1.
var palErrnos = map[*pal.Error]*errors.Error{
	pal.ErrInvalid:      linuxerr.EINVAL,
	pal.ErrBadHandle:    linuxerr.EBADF,
	pal.ErrDenied:       linuxerr.EACCES,
	pal.ErrNotExist:     linuxerr.ENOENT,
	pal.ErrExist:        linuxerr.EEXIST,
	pal.ErrNotDirectory: linuxerr.ENOTDIR,
	pal.ErrIsDirectory:  linuxerr.EISDIR,
	pal.ErrOverflow:     linuxerr.EMSGSIZE,
	pal.ErrOutOfRange:   linuxerr.ERANGE,
	pal.ErrInterrupted:  linuxerr.EINTR,
	pal.ErrNoMemory:     linuxerr.ENOMEM,
	pal.ErrNotSupported: linuxerr.EOPNOTSUPP,
	pal.ErrTooLong:      linuxerr.ENAMETOOLONG,
	pal.ErrBusy:         linuxerr.EBUSY,
	pal.ErrNoSpace:      linuxerr.ENOSPC,
	pal.ErrIO:           linuxerr.EIO,
}

// FromPALError translates a PAL error to the errno every backend reports at
// its boundary. nil passes through.
func FromPALError(err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*pal.Error); ok {
		if le, ok := palErrnos[pe]; ok {
			return le
		}
	}
	log.Warningf("unmapped PAL error %q, reporting EIO", err)
	return linuxerr.EIO
}
