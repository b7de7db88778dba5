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
	"testing"

	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/pal"
)

type stubFS struct {
	name string
}

func (s stubFS) Name() string       { return s.name }
func (stubFS) Mount(pal.URI) error  { return nil }
func (stubFS) FileOps() FileOps     { return nil }
func (stubFS) DentryOps() DentryOps { return nil }

func newStubTree(t *testing.T) *Tree {
	t.Helper()
	m, err := NewMount(stubFS{name: "stub"}, nil, pal.MakeURI(pal.SchemeFile, "/x"))
	if err != nil {
		t.Fatalf("NewMount failed: %v", err)
	}
	return NewTree(m)
}

func wantBug(t *testing.T, name string) {
	t.Helper()
	r := recover()
	if r == nil {
		t.Fatalf("%s did not panic", name)
	}
	if _, ok := r.(*BugError); !ok {
		t.Fatalf("%s panicked with %T, want *BugError", name, r)
	}
}

func TestRelPath(t *testing.T) {
	tree := newStubTree(t)
	g := tree.Lock()
	defer g.Unlock()

	if got := tree.Root().RelPath(); got != "" {
		t.Errorf("root RelPath = %q, want \"\"", got)
	}
	d := tree.Root().Child(g, "a").Child(g, "b").Child(g, "c")
	if got := d.RelPath(); got != "a/b/c" {
		t.Errorf("RelPath = %q, want %q", got, "a/b/c")
	}
}

func TestChildMaterialization(t *testing.T) {
	tree := newStubTree(t)
	g := tree.Lock()
	defer g.Unlock()

	a := tree.Root().Child(g, "a")
	if a.Inode(g) != nil {
		t.Error("fresh placeholder has an inode")
	}
	if again := tree.Root().Child(g, "a"); again != a {
		t.Error("Child materialized a second dentry for the same name")
	}
	if a.Parent() != tree.Root() {
		t.Error("child's parent is not the root")
	}
}

func TestGuardRequired(t *testing.T) {
	tree := newStubTree(t)
	defer wantBug(t, "Inode without guard")
	tree.Root().Inode(nil)
}

func TestGuardWrongTree(t *testing.T) {
	tree := newStubTree(t)
	other := newStubTree(t)
	g := other.Lock()
	defer g.Unlock()
	defer wantBug(t, "Inode with foreign guard")
	tree.Root().Inode(g)
}

func TestSetInodeTwice(t *testing.T) {
	tree := newStubTree(t)
	g := tree.Lock()
	defer g.Unlock()

	inode := NewInode(tree.Root().Mount(), linux.S_IFREG, 0o644)
	tree.Root().SetInode(g, inode)
	defer wantBug(t, "second SetInode")
	tree.Root().SetInode(g, inode)
}

func TestDropInode(t *testing.T) {
	tree := newStubTree(t)
	g := tree.Lock()
	defer g.Unlock()

	inode := NewInode(tree.Root().Mount(), linux.S_IFREG, 0o644)
	tree.Root().SetInode(g, inode)
	tree.Root().DropInode(g)
	if tree.Root().Inode(g) != nil {
		t.Error("inode survived DropInode")
	}
	// A dropped dentry can be resolved again.
	tree.Root().SetInode(g, NewInode(tree.Root().Mount(), linux.S_IFDIR, 0o755))
}

func TestCheckpointCloneIsFrozen(t *testing.T) {
	tree := newStubTree(t)
	g := tree.Lock()
	inode := NewInode(tree.Root().Mount(), linux.S_IFREG, 0o644)
	tree.Root().SetInode(g, inode)
	g.Unlock()

	h := NewHandle(tree.Root())
	h.Init(pal.MakeURI(pal.SchemeFile, "/x/f"), linux.O_RDWR, inode, nil)
	h.Lock()
	h.SetPos(42)
	h.Unlock()

	clone := h.CheckpointClone()
	st := clone.SaveState()
	if st.URI != "file:/x/f" || st.Flags != linux.O_RDWR || st.Pos != 42 || st.Attached {
		t.Errorf("snapshot = %+v, want URI file:/x/f, flags O_RDWR, pos 42, detached", st)
	}

	// Moving the live cursor does not disturb the clone.
	h.Lock()
	h.SetPos(0)
	h.Unlock()
	if clone.SaveState().Pos != 42 {
		t.Error("clone cursor tracked the live handle")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register(stubFS{name: "dup-test"})
	if _, ok := Find("dup-test"); !ok {
		t.Fatal("registered backend not found")
	}
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	Register(stubFS{name: "dup-test"})
}
