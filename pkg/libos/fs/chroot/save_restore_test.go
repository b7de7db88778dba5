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
	"os"
	"path/filepath"
	"testing"

	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/errors/linuxerr"
	"enclos.dev/enclos/pkg/libos/fs"
)

func TestCanRederive(t *testing.T) {
	for _, tc := range []struct {
		sameInode     bool
		hostReachable bool
		want          bool
	}{
		{true, true, true},
		{true, false, false},
		{false, true, false},
		{false, false, false},
	} {
		if got := canRederive(tc.sameInode, tc.hostReachable); got != tc.want {
			t.Errorf("canRederive(%t, %t) = %t, want %t", tc.sameInode, tc.hostReachable, got, tc.want)
		}
	}
}

func TestCheckoutCheckinRoundTrip(t *testing.T) {
	root, tree := newTestTree(t)
	if err := os.WriteFile(filepath.Join(root, "f"), []byte("before move"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	h := open(t, tree, "f", linux.O_RDWR)
	ops := fileOps{}

	// Advance the cursor so the round trip has state to preserve.
	buf := make([]byte, 6)
	if _, err := ops.Read(h, buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	clone := h.CheckpointClone()
	g := tree.Lock()
	if err := ops.Checkout(g, clone); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	g.Unlock()
	if clone.Attached() {
		t.Fatal("rederivable handle still attached after checkout")
	}
	st := clone.SaveState()
	h.Close()

	// The restored process rebuilds the handle and checks it in.
	g = tree.Lock()
	d, err := fs.Resolve(g, tree, "f")
	if err != nil {
		t.Fatalf("Resolve in restored tree failed: %v", err)
	}
	restored, err := fs.RestoreHandle(g, d, st, nil)
	if err != nil {
		t.Fatalf("RestoreHandle failed: %v", err)
	}
	g.Unlock()
	if err := ops.Checkin(restored); err != nil {
		t.Fatalf("Checkin failed: %v", err)
	}
	defer restored.Close()

	// The cursor survived the migration.
	n, err := ops.Read(restored, buf)
	if err != nil {
		t.Fatalf("read after restore failed: %v", err)
	}
	if got := string(buf[:n]); got != " move" {
		t.Errorf("read after restore = %q, want %q", got, " move")
	}
}

func TestCheckoutKeepsStreamForUnlinkedFile(t *testing.T) {
	root, tree := newTestTree(t)
	if err := os.WriteFile(filepath.Join(root, "f"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	h := open(t, tree, "f", linux.O_RDWR)
	defer h.Close()

	// Unlink the file behind the handle. The URI no longer resolves, so the
	// stream cannot be rederived and must stay attached.
	d := resolve(t, tree, "f")
	g := tree.Lock()
	if err := (dentryOps{}).Unlink(g, d); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}
	d.DropInode(g)
	g.Unlock()

	clone := h.CheckpointClone()
	g = tree.Lock()
	if err := (fileOps{}).Checkout(g, clone); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	g.Unlock()
	if !clone.Attached() {
		t.Error("handle on unlinked file detached at checkout")
	}
	if !clone.SaveState().Attached {
		t.Error("snapshot does not record the kept stream")
	}
}

func TestCheckinFailsWhenFileVanished(t *testing.T) {
	root, tree := newTestTree(t)
	if err := os.WriteFile(filepath.Join(root, "f"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	h := open(t, tree, "f", linux.O_RDWR)
	ops := fileOps{}

	clone := h.CheckpointClone()
	g := tree.Lock()
	if err := ops.Checkout(g, clone); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	g.Unlock()
	st := clone.SaveState()
	h.Close()

	// The file disappears between checkout and checkin.
	if err := os.Remove(filepath.Join(root, "f")); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	g = tree.Lock()
	d := tree.Root().Child(g, "f")
	restored, err := fs.RestoreHandle(g, d, st, nil)
	if err != nil {
		t.Fatalf("RestoreHandle failed: %v", err)
	}
	g.Unlock()

	if err := ops.Checkin(restored); err != linuxerr.ENOENT {
		t.Errorf("Checkin of vanished file error = %v, want ENOENT", err)
	}
	if restored.Attached() {
		t.Error("failed checkin left a stream attached")
	}
}

func TestRestoreHandleRequiresStreamWhenAttached(t *testing.T) {
	_, tree := newTestTree(t)
	g := tree.Lock()
	defer g.Unlock()

	st := fs.HandleState{URI: "file:/x/f", Flags: linux.O_RDWR, Pos: 7, Attached: true}
	if _, err := fs.RestoreHandle(g, tree.Root(), st, nil); err != linuxerr.EIO {
		t.Errorf("RestoreHandle without transferred stream error = %v, want EIO", err)
	}
}

func TestCheckinNoopWhenAttached(t *testing.T) {
	root, tree := newTestTree(t)
	if err := os.WriteFile(filepath.Join(root, "f"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	h := open(t, tree, "f", linux.O_RDWR)
	defer h.Close()
	before := h.Stream()
	if err := (fileOps{}).Checkin(h); err != nil {
		t.Fatalf("Checkin on attached handle failed: %v", err)
	}
	if h.Stream() != before {
		t.Error("Checkin replaced the stream of an attached handle")
	}
}
