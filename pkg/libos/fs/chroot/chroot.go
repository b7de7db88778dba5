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

// Package chroot implements the host-backed filesystem backend. It maps the
// enclave-side dentry tree onto host byte streams addressed by PAL URIs and
// keeps the inode's size and permission authoritative over whatever the host
// reports.
package chroot

import (
	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/errors/linuxerr"
	"enclos.dev/enclos/pkg/libos/fs"
	"enclos.dev/enclos/pkg/libos/fs/fsutil"
	"enclos.dev/enclos/pkg/log"
	"enclos.dev/enclos/pkg/pal"
)

// Name is the name under which the backend registers itself.
const Name = "chroot"

// FilesystemType implements fs.Filesystem.
type FilesystemType struct{}

func init() {
	fs.Register(FilesystemType{})
}

// Name implements fs.Filesystem.Name.
func (FilesystemType) Name() string {
	return Name
}

// Mount implements fs.Filesystem.Mount. Only file: and dev: mount URIs make
// sense for a host-backed tree.
func (FilesystemType) Mount(uri pal.URI) error {
	switch uri.Scheme() {
	case pal.SchemeFile, pal.SchemeDev:
		return nil
	default:
		return linuxerr.EINVAL
	}
}

// FileOps implements fs.Filesystem.FileOps.
func (FilesystemType) FileOps() fs.FileOps {
	return fileOps{}
}

// DentryOps implements fs.Filesystem.DentryOps.
func (FilesystemType) DentryOps() fs.DentryOps {
	return dentryOps{}
}

type fileOps struct{}

type dentryOps struct{}

// keepMountScheme makes dentryURI reuse the scheme of the mount URI. Used
// before lookup, when the dentry's true type is still unknown.
const keepMountScheme linux.FileMode = 0

// dentryURI calculates the URI for a dentry. The URI scheme is determined by
// the file type, which is passed separately (instead of reading the dentry's
// inode) because the dentry might not have an inode yet: we might be
// creating a new file, or looking one up for the first time.
func dentryURI(d *fs.Dentry, ftype linux.FileMode) pal.URI {
	mountURI := d.Mount().URI()

	var scheme string
	switch ftype {
	case linux.S_IFREG:
		scheme = pal.SchemeFile
	case linux.S_IFDIR:
		scheme = pal.SchemeDir
	case linux.S_IFCHR:
		scheme = pal.SchemeDev
	case keepMountScheme:
		scheme = mountURI.Scheme()
	default:
		fs.Bug("no URI scheme for file type %#o", ftype)
	}

	// Treat an empty mount root as ".".
	root := mountURI.Path()
	if root == "" {
		root = "."
	}

	relPath := d.RelPath()
	if relPath == "" {
		// This is the mount root; the URI is "<scheme>:<root>".
		return pal.MakeURI(scheme, root)
	}
	return pal.MakeURI(scheme, root+"/"+relPath)
}

// setupDentry materializes the inode for a freshly discovered or created
// file.
//
// Preconditions: the tree lock is held; d has no inode.
func setupDentry(g *fs.TreeGuard, d *fs.Dentry, ftype, perm linux.FileMode, size int64) {
	inode := fs.NewInode(d.Mount(), ftype, perm)
	inode.Lock()
	inode.SetSize(size)
	inode.Unlock()
	d.SetInode(g, inode)
}

// Lookup implements fs.DentryOps.Lookup.
func (dentryOps) Lookup(g *fs.TreeGuard, d *fs.Dentry) error {
	// We don't know the file type yet, so we can't construct a URI with the
	// right scheme. Use the scheme from the mount URI: a "file:" URI would
	// recognize directories and devices too, but special devices like
	// "dev:tty" only resolve under their own scheme.
	uri := dentryURI(d, keepMountScheme)

	attr, err := d.Mount().Client().AttrQuery(uri)
	if err != nil {
		return fs.FromPALError(err)
	}

	var ftype linux.FileMode
	switch attr.Kind {
	case pal.KindFile:
		ftype = linux.S_IFREG
	case pal.KindDir:
		ftype = linux.S_IFDIR
	case pal.KindDev:
		ftype = linux.S_IFCHR
	case pal.KindPipe:
		log.Warningf("trying to access %q which is a host-level FIFO (named pipe); only named pipes created by LibOS processes are supported", uri)
		return linuxerr.EACCES
	default:
		fs.Bug("unexpected stream kind reported by PAL: %v", attr.Kind)
	}

	perm := linux.FileMode(attr.Perm).Permissions()

	var size int64
	if ftype == linux.S_IFREG {
		size = attr.Size
	}

	setupDentry(g, d, ftype, perm, size)
	return nil
}

// tempOpen opens a short-lived read-only PAL stream for a dentry. The PAL's
// delete, rename and attribute primitives require a live stream even though
// they are not semantically read operations.
func tempOpen(d *fs.Dentry, ftype linux.FileMode) (pal.Stream, error) {
	uri := dentryURI(d, ftype)
	stream, err := d.Mount().Client().Open(uri, pal.ReadOnly, 0, pal.CreateNever, 0)
	if err != nil {
		return nil, fs.FromPALError(err)
	}
	return stream, nil
}

// openStream opens a PAL stream for a dentry with the given type and open
// flags. perm is only consulted when the open creates the file.
func openStream(d *fs.Dentry, ftype linux.FileMode, flags uint32, perm linux.FileMode) (pal.URI, pal.Stream, error) {
	uri := dentryURI(d, ftype)

	access, err := palAccess(flags)
	if err != nil {
		return "", nil, err
	}
	stream, err := d.Mount().Client().Open(uri, access, uint32(hostPerm(perm)), palCreate(flags), palOptions(flags))
	if err != nil {
		return "", nil, fs.FromPALError(err)
	}
	return uri, stream, nil
}

// Open implements fs.DentryOps.Open.
func (dentryOps) Open(g *fs.TreeGuard, h *fs.Handle, d *fs.Dentry, flags uint32) error {
	inode := d.Inode(g)
	if inode == nil {
		fs.Bug("open on unresolved dentry %q", d.Name())
	}

	uri, stream, err := openStream(d, inode.Type(), flags, 0)
	if err != nil {
		return err
	}
	h.Init(uri, flags, inode, stream)
	return nil
}

// Create implements fs.DentryOps.Create. The exclusive create makes a
// concurrent creator on a shared host tree lose the race.
func (dentryOps) Create(g *fs.TreeGuard, h *fs.Handle, d *fs.Dentry, flags uint32, perm linux.FileMode) error {
	uri, stream, err := openStream(d, linux.S_IFREG, flags|linux.O_CREAT|linux.O_EXCL, perm)
	if err != nil {
		return err
	}

	setupDentry(g, d, linux.S_IFREG, perm, 0)
	h.Init(uri, flags, d.Inode(g), stream)
	return nil
}

// Mkdir implements fs.DentryOps.Mkdir.
func (dentryOps) Mkdir(g *fs.TreeGuard, d *fs.Dentry, perm linux.FileMode) error {
	_, stream, err := openStream(d, linux.S_IFDIR, linux.O_CREAT|linux.O_EXCL, perm)
	if err != nil {
		return err
	}
	stream.Close()

	setupDentry(g, d, linux.S_IFDIR, perm, 0)
	return nil
}

// Stat implements fs.DentryOps.Stat.
func (dentryOps) Stat(g *fs.TreeGuard, d *fs.Dentry) (fs.Stat, error) {
	return fsutil.StatDentry(g, d)
}

// Unlink implements fs.DentryOps.Unlink.
func (dentryOps) Unlink(g *fs.TreeGuard, d *fs.Dentry) error {
	inode := d.Inode(g)
	if inode == nil {
		fs.Bug("unlink on unresolved dentry %q", d.Name())
	}

	stream, err := tempOpen(d, inode.Type())
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Delete(pal.DeleteAll); err != nil {
		return fs.FromPALError(err)
	}
	return nil
}

// Rename implements fs.DentryOps.Rename. The destination URI uses the source
// inode's type: rename preserves it.
func (dentryOps) Rename(g *fs.TreeGuard, oldD, newD *fs.Dentry) error {
	inode := oldD.Inode(g)
	if inode == nil {
		fs.Bug("rename of unresolved dentry %q", oldD.Name())
	}

	newURI := dentryURI(newD, inode.Type())

	stream, err := tempOpen(oldD, inode.Type())
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Rename(newURI); err != nil {
		return fs.FromPALError(err)
	}
	return nil
}

// Chmod implements fs.DentryOps.Chmod. The host receives the widened
// permission, the inode records exactly what the caller asked for.
func (dentryOps) Chmod(g *fs.TreeGuard, d *fs.Dentry, perm linux.FileMode) error {
	inode := d.Inode(g)
	if inode == nil {
		fs.Bug("chmod on unresolved dentry %q", d.Name())
	}

	inode.Lock()
	defer inode.Unlock()

	stream, err := tempOpen(d, inode.Type())
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.SetPerm(uint32(hostPerm(perm))); err != nil {
		return fs.FromPALError(err)
	}

	inode.SetPerm(perm.Permissions())
	return nil
}
