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
	"strings"

	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/errors/linuxerr"
	"enclos.dev/enclos/pkg/sync"
)

// Tree is the enclave-side path tree of one mount. All inode attach/detach
// and sibling-list walks happen under the tree lock, which callers take for
// the whole duration of the backend calls that need it.
type Tree struct {
	mu   sync.Mutex
	root *Dentry
}

// NewTree creates a tree whose root dentry belongs to m. The root starts
// with no inode; resolve it with the backend's Lookup.
func NewTree(m *Mount) *Tree {
	t := &Tree{}
	t.root = &Dentry{tree: t, mount: m}
	return t
}

// Root returns the root dentry.
func (t *Tree) Root() *Dentry {
	return t.root
}

// Lock takes the tree lock and returns the guard proving it is held. The
// guard is single-use: it is dead after Unlock.
func (t *Tree) Lock() *TreeGuard {
	t.mu.Lock()
	return &TreeGuard{tree: t}
}

// TreeGuard is a capability object: possession proves the holder took the
// tree lock. Operations whose contract requires the lock take a guard
// instead of silently assuming a global mutex is held.
type TreeGuard struct {
	tree *Tree
}

// Unlock releases the tree lock and kills the guard.
func (g *TreeGuard) Unlock() {
	g.tree.mu.Unlock()
	g.tree = nil
}

// mustGuard panics unless g is a live guard for d's tree.
func (d *Dentry) mustGuard(g *TreeGuard) {
	if g == nil || g.tree != d.tree {
		Bug("dentry %q used with a guard for the wrong tree (or no guard)", d.name)
	}
}

// Dentry is a node in the enclave-side path tree. A dentry without an inode
// has unknown type and existence; it must be resolved by the backend's
// Lookup (or populated by Create/Mkdir) before any I/O targets it.
//
// Name, parent and mount are fixed at creation. Children and the inode link
// are guarded by the tree lock.
type Dentry struct {
	tree   *Tree
	mount  *Mount
	name   string
	parent *Dentry

	children map[string]*Dentry
	inode    *Inode
}

// Name returns the dentry's name ("" for the mount root).
func (d *Dentry) Name() string {
	return d.name
}

// Parent returns the parent dentry, or nil for the mount root.
func (d *Dentry) Parent() *Dentry {
	return d.parent
}

// Mount returns the mount the dentry belongs to.
func (d *Dentry) Mount() *Mount {
	return d.mount
}

// RelPath returns the dentry's path relative to the mount root, without a
// leading separator. The mount root yields "".
func (d *Dentry) RelPath() string {
	if d.parent == nil {
		return ""
	}
	var names []string
	for p := d; p.parent != nil; p = p.parent {
		names = append(names, p.name)
	}
	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		if i < len(names)-1 {
			b.WriteByte('/')
		}
		b.WriteString(names[i])
	}
	return b.String()
}

// Inode returns the attached inode, or nil if the dentry is unresolved.
func (d *Dentry) Inode(g *TreeGuard) *Inode {
	d.mustGuard(g)
	return d.inode
}

// SetInode attaches an inode to an unresolved dentry.
func (d *Dentry) SetInode(g *TreeGuard, inode *Inode) {
	d.mustGuard(g)
	if d.inode != nil {
		Bug("dentry %q already has an inode", d.name)
	}
	d.inode = inode
}

// DropInode detaches the inode, e.g. after unlink or rename-replace.
func (d *Dentry) DropInode(g *TreeGuard) {
	d.mustGuard(g)
	d.inode = nil
}

// Child returns the named child, materializing an unresolved placeholder if
// none exists yet.
func (d *Dentry) Child(g *TreeGuard, name string) *Dentry {
	d.mustGuard(g)
	if child, ok := d.children[name]; ok {
		return child
	}
	child := &Dentry{tree: d.tree, mount: d.mount, name: name, parent: d}
	if d.children == nil {
		d.children = make(map[string]*Dentry)
	}
	d.children[name] = child
	return child
}

// ForEachChild invokes fn for every child dentry, stopping on the first
// error. Iteration order is unspecified.
func (d *Dentry) ForEachChild(g *TreeGuard, fn func(*Dentry) error) error {
	d.mustGuard(g)
	for _, child := range d.children {
		if err := fn(child); err != nil {
			return err
		}
	}
	return nil
}

// Resolve walks a '/'-separated path from the tree root, materializing
// dentries and invoking the mount backend's Lookup for every component that
// has no inode yet. It is the minimal resolver used by tools and tests; the
// full dentry cache of the syscall layer supersedes it there.
func Resolve(g *TreeGuard, t *Tree, path string) (*Dentry, error) {
	d := t.Root()
	dops := d.Mount().Filesystem().DentryOps()
	if d.Inode(g) == nil {
		if err := dops.Lookup(g, d); err != nil {
			return nil, err
		}
	}
	for _, name := range strings.Split(path, "/") {
		if name == "" || name == "." {
			continue
		}
		if d.Inode(g).Type() != linux.S_IFDIR {
			return nil, linuxerr.ENOTDIR
		}
		d = d.Child(g, name)
		if d.Inode(g) == nil {
			if err := dops.Lookup(g, d); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}
