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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/subcommands"

	"enclos.dev/enclos/pkg/abi/linux"
	"enclos.dev/enclos/pkg/libos/fs"
)

// resolvePath looks up path under a fresh guard.
func resolvePath(tree *fs.Tree, path string) (*fs.Dentry, error) {
	g := tree.Lock()
	defer g.Unlock()
	return fs.Resolve(g, tree, path)
}

// openPath resolves path and opens a handle with the given flags.
func openPath(tree *fs.Tree, path string, flags uint32) (*fs.Handle, error) {
	d, err := resolvePath(tree, path)
	if err != nil {
		return nil, err
	}
	h := fs.NewHandle(d)
	g := tree.Lock()
	defer g.Unlock()
	if err := d.Mount().Filesystem().DentryOps().Open(g, h, d, flags); err != nil {
		return nil, err
	}
	return h, nil
}

// lsCmd lists the entries of a directory.
type lsCmd struct{}

func (*lsCmd) Name() string { return "ls" }
func (*lsCmd) Synopsis() string { return "list a directory" }
func (*lsCmd) Usage() string { return "ls <path>\n" }
func (*lsCmd) SetFlags(*flag.FlagSet) {}

func (*lsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail("ls takes exactly one path")
	}
	tree, err := mountTree()
	if err != nil {
		return fail("%v", err)
	}
	d, err := resolvePath(tree, f.Arg(0))
	if err != nil {
		return fail("resolving %q: %v", f.Arg(0), err)
	}
	names, err := listNames(d)
	if err != nil {
		return fail("reading %q: %v", f.Arg(0), err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return subcommands.ExitSuccess
}

func listNames(d *fs.Dentry) ([]string, error) {
	var names []string
	err := d.Mount().Filesystem().DentryOps().Readdir(d, func(name string) error {
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// catCmd copies a file to stdout.
type catCmd struct{}

func (*catCmd) Name() string { return "cat" }
func (*catCmd) Synopsis() string { return "print a file" }
func (*catCmd) Usage() string { return "cat <path>\n" }
func (*catCmd) SetFlags(*flag.FlagSet) {}

func (*catCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail("cat takes exactly one path")
	}
	tree, err := mountTree()
	if err != nil {
		return fail("%v", err)
	}
	h, err := openPath(tree, f.Arg(0), linux.O_RDONLY)
	if err != nil {
		return fail("opening %q: %v", f.Arg(0), err)
	}
	defer h.Close()

	fops := h.Dentry().Mount().Filesystem().FileOps()
	buf := make([]byte, 64*1024)
	for {
		n, err := fops.Read(h, buf)
		if err != nil {
			return fail("reading %q: %v", f.Arg(0), err)
		}
		if n == 0 {
			return subcommands.ExitSuccess
		}
		if _, err := os.Stdout.Write(buf[:n]); err != nil {
			return fail("writing stdout: %v", err)
		}
	}
}

// writeCmd creates or truncates a file and writes its arguments into it.
type writeCmd struct{}

func (*writeCmd) Name() string { return "write" }
func (*writeCmd) Synopsis() string { return "write a string to a file" }
func (*writeCmd) Usage() string { return "write <path> <text>...\n" }
func (*writeCmd) SetFlags(*flag.FlagSet) {}

func (*writeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() < 2 {
		return fail("write takes a path and at least one word")
	}
	tree, err := mountTree()
	if err != nil {
		return fail("%v", err)
	}
	path := f.Arg(0)
	data := strings.Join(f.Args()[1:], " ")

	h, err := createOrTruncate(tree, path)
	if err != nil {
		return fail("opening %q: %v", path, err)
	}
	defer h.Close()

	fops := h.Dentry().Mount().Filesystem().FileOps()
	if _, err := fops.Write(h, []byte(data)); err != nil {
		return fail("writing %q: %v", path, err)
	}
	return subcommands.ExitSuccess
}

// createOrTruncate opens path for writing, creating it if needed and
// truncating it otherwise.
func createOrTruncate(tree *fs.Tree, path string) (*fs.Handle, error) {
	d, err := resolvePath(tree, path)
	if err == nil {
		h := fs.NewHandle(d)
		g := tree.Lock()
		err := d.Mount().Filesystem().DentryOps().Open(g, h, d, linux.O_WRONLY)
		g.Unlock()
		if err != nil {
			return nil, err
		}
		fops := d.Mount().Filesystem().FileOps()
		if err := fops.Truncate(h, 0); err != nil {
			h.Close()
			return nil, err
		}
		return h, nil
	}

	// Missing file: create it under its parent.
	dir, base := splitPath(path)
	parent, err := resolvePath(tree, dir)
	if err != nil {
		return nil, err
	}
	g := tree.Lock()
	defer g.Unlock()
	d = parent.Child(g, base)
	h := fs.NewHandle(d)
	if err := d.Mount().Filesystem().DentryOps().Create(g, h, d, linux.O_WRONLY, 0o644); err != nil {
		return nil, err
	}
	return h, nil
}

// splitPath separates the last component from its directory part.
func splitPath(path string) (dir, base string) {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// statCmd prints the metadata of a path.
type statCmd struct{}

func (*statCmd) Name() string { return "stat" }
func (*statCmd) Synopsis() string { return "print file metadata" }
func (*statCmd) Usage() string { return "stat <path>\n" }
func (*statCmd) SetFlags(*flag.FlagSet) {}

func (*statCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail("stat takes exactly one path")
	}
	tree, err := mountTree()
	if err != nil {
		return fail("%v", err)
	}
	d, err := resolvePath(tree, f.Arg(0))
	if err != nil {
		return fail("resolving %q: %v", f.Arg(0), err)
	}
	g := tree.Lock()
	stat, err := d.Mount().Filesystem().DentryOps().Stat(g, d)
	g.Unlock()
	if err != nil {
		return fail("stat %q: %v", f.Arg(0), err)
	}
	fmt.Printf("mode:  %#o\n", uint32(stat.Mode))
	fmt.Printf("size:  %d\n", stat.Size)
	fmt.Printf("nlink: %d\n", stat.Nlink)
	fmt.Printf("dev:   %#x\n", stat.Dev)
	return subcommands.ExitSuccess
}

// treeCmd prints the directory hierarchy under a path.
type treeCmd struct{}

func (*treeCmd) Name() string { return "tree" }
func (*treeCmd) Synopsis() string { return "print a directory hierarchy" }
func (*treeCmd) Usage() string { return "tree [path]\n" }
func (*treeCmd) SetFlags(*flag.FlagSet) {}

func (*treeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() > 1 {
		return fail("tree takes at most one path")
	}
	tree, err := mountTree()
	if err != nil {
		return fail("%v", err)
	}
	start := ""
	if f.NArg() == 1 {
		start = f.Arg(0)
	}
	if err := printTree(tree, start, 0); err != nil {
		return fail("%v", err)
	}
	return subcommands.ExitSuccess
}

func printTree(tree *fs.Tree, path string, depth int) error {
	d, err := resolvePath(tree, path)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", path, err)
	}
	g := tree.Lock()
	isDir := d.Inode(g).Type() == linux.S_IFDIR
	g.Unlock()
	if !isDir {
		fmt.Printf("%s%s\n", strings.Repeat("  ", depth), d.Name())
		return nil
	}

	name := d.Name()
	if name == "" {
		name = "."
	}
	fmt.Printf("%s%s/\n", strings.Repeat("  ", depth), name)
	names, err := listNames(d)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	for _, child := range names {
		childPath := child
		if path != "" {
			childPath = path + "/" + child
		}
		if err := printTree(tree, childPath, depth+1); err != nil {
			return err
		}
	}
	return nil
}
