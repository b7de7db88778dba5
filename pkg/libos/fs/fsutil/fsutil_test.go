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

package fsutil

import (
	"math"
	"testing"

	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/errors/linuxerr"
	"enclos.dev/enclos/pkg/libos/fs"
	"enclos.dev/enclos/pkg/pal"
)

// fakeFS is the minimal backend needed to construct mounts in tests. None of
// its operation tables are exercised.
type fakeFS struct{}

func (fakeFS) Name() string            { return "fake" }
func (fakeFS) Mount(pal.URI) error     { return nil }
func (fakeFS) FileOps() fs.FileOps     { return nil }
func (fakeFS) DentryOps() fs.DentryOps { return nil }

func newTestHandle(t *testing.T, ftype linux.FileMode, size int64) *fs.Handle {
	t.Helper()
	m, err := fs.NewMount(fakeFS{}, nil, pal.MakeURI(pal.SchemeFile, "/test"))
	if err != nil {
		t.Fatalf("NewMount failed: %v", err)
	}
	tree := fs.NewTree(m)
	inode := fs.NewInode(m, ftype, 0o644)
	inode.Lock()
	inode.SetSize(size)
	inode.Unlock()
	h := fs.NewHandle(tree.Root())
	h.Init(pal.MakeURI(pal.SchemeFile, "/test/f"), linux.O_RDWR, inode, nil)
	return h
}

func TestSeekPosition(t *testing.T) {
	for _, tc := range []struct {
		name    string
		pos     int64
		size    int64
		offset  int64
		whence  int
		want    int64
		wantErr error
	}{
		{name: "set", pos: 10, size: 100, offset: 5, whence: linux.SEEK_SET, want: 5},
		{name: "set zero", pos: 10, size: 100, offset: 0, whence: linux.SEEK_SET, want: 0},
		{name: "set negative", pos: 10, size: 100, offset: -1, whence: linux.SEEK_SET, wantErr: linuxerr.EINVAL},
		{name: "cur forward", pos: 10, size: 100, offset: 5, whence: linux.SEEK_CUR, want: 15},
		{name: "cur backward", pos: 10, size: 100, offset: -10, whence: linux.SEEK_CUR, want: 0},
		{name: "cur underflow", pos: 10, size: 100, offset: -11, whence: linux.SEEK_CUR, wantErr: linuxerr.EINVAL},
		{name: "cur overflow", pos: math.MaxInt64, size: 100, offset: 1, whence: linux.SEEK_CUR, wantErr: linuxerr.EOVERFLOW},
		{name: "end", pos: 10, size: 100, offset: 0, whence: linux.SEEK_END, want: 100},
		{name: "end past", pos: 10, size: 100, offset: 50, whence: linux.SEEK_END, want: 150},
		{name: "end overflow", pos: 0, size: math.MaxInt64, offset: 1, whence: linux.SEEK_END, wantErr: linuxerr.EOVERFLOW},
		{name: "bad whence", pos: 0, size: 0, offset: 0, whence: 42, wantErr: linuxerr.EINVAL},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SeekPosition(tc.pos, tc.size, tc.offset, tc.whence)
			if err != tc.wantErr {
				t.Fatalf("SeekPosition(%d, %d, %d, %d) error = %v, want %v", tc.pos, tc.size, tc.offset, tc.whence, err, tc.wantErr)
			}
			if tc.wantErr == nil && got != tc.want {
				t.Errorf("SeekPosition(%d, %d, %d, %d) = %d, want %d", tc.pos, tc.size, tc.offset, tc.whence, got, tc.want)
			}
		})
	}
}

func TestSeekMovesCursor(t *testing.T) {
	h := newTestHandle(t, linux.S_IFREG, 100)

	pos, err := Seek(h, 30, linux.SEEK_SET)
	if err != nil {
		t.Fatalf("Seek(30, SEEK_SET) failed: %v", err)
	}
	if pos != 30 {
		t.Errorf("Seek(30, SEEK_SET) = %d, want 30", pos)
	}

	pos, err = Seek(h, -10, linux.SEEK_END)
	if err != nil {
		t.Fatalf("Seek(-10, SEEK_END) failed: %v", err)
	}
	if pos != 90 {
		t.Errorf("Seek(-10, SEEK_END) = %d, want 90", pos)
	}

	// A failed seek must leave the cursor where it was.
	if _, err := Seek(h, -200, linux.SEEK_CUR); err != linuxerr.EINVAL {
		t.Fatalf("Seek(-200, SEEK_CUR) error = %v, want EINVAL", err)
	}
	pos, err = Seek(h, 0, linux.SEEK_CUR)
	if err != nil {
		t.Fatalf("Seek(0, SEEK_CUR) failed: %v", err)
	}
	if pos != 90 {
		t.Errorf("cursor after failed seek = %d, want 90", pos)
	}
}

func TestStatHandle(t *testing.T) {
	h := newTestHandle(t, linux.S_IFREG, 123)
	stat, err := StatHandle(h)
	if err != nil {
		t.Fatalf("StatHandle failed: %v", err)
	}
	if got, want := stat.Mode, linux.S_IFREG|linux.FileMode(0o644); got != want {
		t.Errorf("stat.Mode = %#o, want %#o", got, want)
	}
	if stat.Size != 123 {
		t.Errorf("stat.Size = %d, want 123", stat.Size)
	}
	if stat.Nlink != 1 {
		t.Errorf("stat.Nlink = %d, want 1", stat.Nlink)
	}
	if stat.Dev == 0 {
		t.Error("stat.Dev = 0, want a mount-derived value")
	}

	hd := newTestHandle(t, linux.S_IFDIR, 0)
	stat, err = StatHandle(hd)
	if err != nil {
		t.Fatalf("StatHandle on directory failed: %v", err)
	}
	if stat.Nlink != 2 {
		t.Errorf("directory stat.Nlink = %d, want 2", stat.Nlink)
	}
}

func TestPoll(t *testing.T) {
	h := newTestHandle(t, linux.S_IFREG, 10)

	ready, err := Poll(h, linux.POLLIN|linux.POLLOUT)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if want := fs.PollEvents(linux.POLLIN | linux.POLLOUT); ready != want {
		t.Errorf("Poll at offset 0 = %#x, want %#x", ready, want)
	}

	// At end of file only POLLOUT reports ready.
	if _, err := Seek(h, 0, linux.SEEK_END); err != nil {
		t.Fatalf("Seek to end failed: %v", err)
	}
	ready, err = Poll(h, linux.POLLIN|linux.POLLOUT)
	if err != nil {
		t.Fatalf("Poll at EOF failed: %v", err)
	}
	if want := fs.PollEvents(linux.POLLOUT); ready != want {
		t.Errorf("Poll at EOF = %#x, want %#x", ready, want)
	}

	hd := newTestHandle(t, linux.S_IFDIR, 0)
	if _, err := Poll(hd, linux.POLLIN); err != linuxerr.EAGAIN {
		t.Errorf("Poll on directory error = %v, want EAGAIN", err)
	}
}
