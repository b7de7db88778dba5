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

// Package hostpal implements the PAL on top of the host Linux kernel. It is
// the non-enclave reference implementation: every stream maps to a host file
// descriptor and every operation to a raw syscall.
package hostpal

import (
	"enclos.dev/enclos/pkg/pal"
	"golang.org/x/sys/unix"
)

// Client implements pal.Client over host syscalls.
type Client struct{}

// New returns a host-backed PAL client.
func New() *Client {
	return &Client{}
}

// hostPath resolves a PAL URI to a host path. The "dev:tty" shorthand is the
// only aliased name; all other paths pass through untouched.
func hostPath(uri pal.URI) (string, error) {
	path := uri.Path()
	switch uri.Scheme() {
	case pal.SchemeFile, pal.SchemeDir:
		if path == "" {
			return "", pal.ErrInvalid
		}
		return path, nil
	case pal.SchemeDev:
		if path == "tty" {
			return "/dev/tty", nil
		}
		return path, nil
	default:
		return "", pal.ErrInvalid
	}
}

// openFlags converts PAL open parameters to host open(2) flags.
func openFlags(access pal.Access, create pal.CreateMode, options pal.StreamOptions) (int, error) {
	var flags int
	switch access {
	case pal.ReadOnly:
		flags = unix.O_RDONLY
	case pal.WriteOnly:
		flags = unix.O_WRONLY
	case pal.ReadWrite:
		flags = unix.O_RDWR
	default:
		return 0, pal.ErrInvalid
	}
	switch create {
	case pal.CreateNever:
	case pal.CreateTry:
		flags |= unix.O_CREAT
	case pal.CreateAlways:
		flags |= unix.O_CREAT | unix.O_EXCL
	default:
		return 0, pal.ErrInvalid
	}
	if options&pal.OptionNonblock != 0 {
		flags |= unix.O_NONBLOCK
	}
	return flags, nil
}

// Open implements pal.Client.Open.
func (c *Client) Open(uri pal.URI, access pal.Access, perm uint32, create pal.CreateMode, options pal.StreamOptions) (pal.Stream, error) {
	path, err := hostPath(uri)
	if err != nil {
		return nil, err
	}

	switch uri.Scheme() {
	case pal.SchemeFile, pal.SchemeDev:
		flags, err := openFlags(access, create, options)
		if err != nil {
			return nil, err
		}
		fd, err := unix.Open(path, flags|unix.O_CLOEXEC, perm)
		if err != nil {
			return nil, palError(err)
		}
		kind := pal.KindFile
		if uri.Scheme() == pal.SchemeDev {
			kind = pal.KindDev
		}
		return &stream{fd: fd, path: path, kind: kind}, nil

	case pal.SchemeDir:
		switch create {
		case pal.CreateAlways:
			if err := unix.Mkdir(path, perm); err != nil {
				return nil, palError(err)
			}
		case pal.CreateTry:
			if err := unix.Mkdir(path, perm); err != nil && err != unix.EEXIST {
				return nil, palError(err)
			}
		}
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
		if err != nil {
			return nil, palError(err)
		}
		return &stream{fd: fd, path: path, kind: pal.KindDir}, nil

	default:
		return nil, pal.ErrInvalid
	}
}

// AttrQuery implements pal.Client.AttrQuery.
func (c *Client) AttrQuery(uri pal.URI) (pal.Attr, error) {
	path, err := hostPath(uri)
	if err != nil {
		return pal.Attr{}, err
	}
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return pal.Attr{}, palError(err)
	}
	return attrFromStat(&st), nil
}

// attrFromStat converts a host stat into PAL attributes.
func attrFromStat(st *unix.Stat_t) pal.Attr {
	var kind pal.Kind
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		kind = pal.KindDir
	case unix.S_IFCHR, unix.S_IFBLK:
		kind = pal.KindDev
	case unix.S_IFIFO:
		kind = pal.KindPipe
	case unix.S_IFSOCK:
		kind = pal.KindSock
	default:
		kind = pal.KindFile
	}
	return pal.Attr{
		Kind: kind,
		Perm: uint32(st.Mode) & 0o7777,
		Size: st.Size,
	}
}

// stream implements pal.Stream over a host file descriptor.
type stream struct {
	fd   int
	path string
	kind pal.Kind

	// Directory listing state, populated on the first read. records holds one
	// wire-format entry each ("name" or "name/" plus the terminating NUL);
	// next indexes the first record not yet handed out.
	records [][]byte
	next    int
}

// ReadAt implements pal.Stream.ReadAt.
func (s *stream) ReadAt(p []byte, offset int64) (int, error) {
	switch s.kind {
	case pal.KindDir:
		return s.readDirents(p)
	case pal.KindDev:
		n, err := unix.Read(s.fd, p)
		if err != nil {
			return 0, palError(err)
		}
		return n, nil
	default:
		n, err := unix.Pread(s.fd, p, offset)
		if err != nil {
			return 0, palError(err)
		}
		return n, nil
	}
}

// readDirents serves the directory listing protocol: whole NUL-terminated
// records only, directories suffixed with '/', a zero-length read at the end.
func (s *stream) readDirents(p []byte) (int, error) {
	if s.records == nil {
		if err := s.loadDirents(); err != nil {
			return 0, err
		}
	}
	if s.next == len(s.records) {
		return 0, nil
	}

	n := 0
	for s.next < len(s.records) {
		rec := s.records[s.next]
		if n+len(rec) > len(p) {
			break
		}
		copy(p[n:], rec)
		n += len(rec)
		s.next++
	}
	if n == 0 {
		// Not even one record fits.
		return 0, pal.ErrOverflow
	}
	return n, nil
}

// loadDirents snapshots the directory once. Entries appearing or vanishing
// after the first read are not reflected in this stream.
func (s *stream) loadDirents() error {
	s.records = [][]byte{}
	buf := make([]byte, 8192)
	for {
		n, err := unix.ReadDirent(s.fd, buf)
		if err != nil {
			return palError(err)
		}
		if n == 0 {
			return nil
		}
		var names []string
		_, _, names = unix.ParseDirent(buf[:n], -1, names)
		for _, name := range names {
			rec := make([]byte, 0, len(name)+2)
			rec = append(rec, name...)
			var st unix.Stat_t
			if err := unix.Fstatat(s.fd, name, &st, unix.AT_SYMLINK_NOFOLLOW); err == nil && st.Mode&unix.S_IFMT == unix.S_IFDIR {
				rec = append(rec, '/')
			}
			rec = append(rec, 0)
			s.records = append(s.records, rec)
		}
	}
}

// WriteAt implements pal.Stream.WriteAt.
func (s *stream) WriteAt(p []byte, offset int64) (int, error) {
	switch s.kind {
	case pal.KindDir:
		return 0, pal.ErrIsDirectory
	case pal.KindDev:
		n, err := unix.Write(s.fd, p)
		if err != nil {
			return 0, palError(err)
		}
		return n, nil
	default:
		n, err := unix.Pwrite(s.fd, p, offset)
		if err != nil {
			return 0, palError(err)
		}
		return n, nil
	}
}

// SetLength implements pal.Stream.SetLength.
func (s *stream) SetLength(size int64) error {
	if s.kind == pal.KindDir {
		return pal.ErrIsDirectory
	}
	return palError(unix.Ftruncate(s.fd, size))
}

// AttrQuery implements pal.Stream.AttrQuery.
func (s *stream) AttrQuery() (pal.Attr, error) {
	var st unix.Stat_t
	if err := unix.Fstat(s.fd, &st); err != nil {
		return pal.Attr{}, palError(err)
	}
	return attrFromStat(&st), nil
}

// SetPerm implements pal.Stream.SetPerm.
func (s *stream) SetPerm(perm uint32) error {
	return palError(unix.Fchmod(s.fd, perm))
}

// Delete implements pal.Stream.Delete. Partial shutdown is a socket concept;
// host files only support DeleteAll.
func (s *stream) Delete(mode pal.DeleteMode) error {
	if mode != pal.DeleteAll {
		return pal.ErrInvalid
	}
	if s.kind == pal.KindDir {
		return palError(unix.Rmdir(s.path))
	}
	return palError(unix.Unlink(s.path))
}

// Rename implements pal.Stream.Rename.
func (s *stream) Rename(newURI pal.URI) error {
	newPath, err := hostPath(newURI)
	if err != nil {
		return err
	}
	if err := unix.Rename(s.path, newPath); err != nil {
		return palError(err)
	}
	s.path = newPath
	return nil
}

// Map implements pal.Stream.Map.
func (s *stream) Map(prot pal.Prot, offset int64, length int) ([]byte, error) {
	var mprot int
	if prot&pal.ProtRead != 0 {
		mprot |= unix.PROT_READ
	}
	if prot&pal.ProtWrite != 0 {
		mprot |= unix.PROT_WRITE
	}
	if prot&pal.ProtExec != 0 {
		mprot |= unix.PROT_EXEC
	}
	mflags := unix.MAP_SHARED
	if prot&pal.ProtWriteCopy != 0 {
		mflags = unix.MAP_PRIVATE
	}
	m, err := unix.Mmap(s.fd, offset, length, mprot, mflags)
	if err != nil {
		return nil, palError(err)
	}
	return m, nil
}

// Flush implements pal.Stream.Flush.
func (s *stream) Flush() error {
	return palError(unix.Fsync(s.fd))
}

// Close implements pal.Stream.Close.
func (s *stream) Close() error {
	if s.fd < 0 {
		return pal.ErrBadHandle
	}
	err := palError(unix.Close(s.fd))
	s.fd = -1
	return err
}

// palError converts a host errno to the matching PAL sentinel. Errnos with no
// PAL equivalent collapse into ErrIO.
func palError(err error) error {
	if err == nil {
		return nil
	}
	errno, ok := err.(unix.Errno)
	if !ok {
		return pal.ErrIO
	}
	switch errno {
	case unix.EINVAL:
		return pal.ErrInvalid
	case unix.EBADF:
		return pal.ErrBadHandle
	case unix.EACCES, unix.EPERM:
		return pal.ErrDenied
	case unix.ENOENT:
		return pal.ErrNotExist
	case unix.EEXIST:
		return pal.ErrExist
	case unix.ENOTDIR:
		return pal.ErrNotDirectory
	case unix.EISDIR:
		return pal.ErrIsDirectory
	case unix.ERANGE:
		return pal.ErrOutOfRange
	case unix.EINTR:
		return pal.ErrInterrupted
	case unix.ENOMEM:
		return pal.ErrNoMemory
	case unix.EOPNOTSUPP:
		return pal.ErrNotSupported
	case unix.ENAMETOOLONG:
		return pal.ErrTooLong
	case unix.EBUSY, unix.ENOTEMPTY:
		return pal.ErrBusy
	case unix.ENOSPC, unix.EDQUOT:
		return pal.ErrNoSpace
	default:
		return pal.ErrIO
	}
}
