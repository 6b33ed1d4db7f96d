package git

import (
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

type treeFile struct {
	hash plumbing.Hash
	mode filemode.FileMode
}

// MergeTrees performs a file-level three-way merge of ours and theirs against
// base and returns the resulting index. Paths are decided per file:
//
//   - Ours == Theirs -> take it
//   - Base == Ours   -> take Theirs (including a deletion)
//   - Base == Theirs -> keep Ours
//   - otherwise      -> conflict, each present side staged at 1/2/3
//
// File contents are never merged line by line; a path edited on both sides is
// always a conflict. A merged file whose path is also a directory in the
// result, such as ours adding a while theirs adds a/b, is staged as a
// conflict on the file. Any tree may be nil and is treated as empty.
func MergeTrees(s storer.EncodedObjectStorer, base, ours, theirs *object.Tree) (*index.Index, error) {
	baseFiles, err := flattenTree(base)
	if err != nil {
		return nil, fmt.Errorf("failed to read base tree: %w", err)
	}
	ourFiles, err := flattenTree(ours)
	if err != nil {
		return nil, fmt.Errorf("failed to read our tree: %w", err)
	}
	theirFiles, err := flattenTree(theirs)
	if err != nil {
		return nil, fmt.Errorf("failed to read their tree: %w", err)
	}

	paths := make(map[string]struct{})
	for _, files := range []map[string]treeFile{baseFiles, ourFiles, theirFiles} {
		for p := range files {
			paths[p] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	idx := &index.Index{Version: 2}
	for _, name := range sorted {
		b, inBase := baseFiles[name]
		o, inOurs := ourFiles[name]
		t, inTheirs := theirFiles[name]

		sameOT := inOurs == inTheirs && o == t
		sameBO := inBase == inOurs && b == o
		sameBT := inBase == inTheirs && b == t

		switch {
		case sameOT:
			if inOurs {
				idx.Entries = append(idx.Entries, newEntry(s, name, o, StageMerged))
			}
		case sameBO:
			if inTheirs {
				idx.Entries = append(idx.Entries, newEntry(s, name, t, StageMerged))
			}
		case sameBT:
			if inOurs {
				idx.Entries = append(idx.Entries, newEntry(s, name, o, StageMerged))
			}
		default:
			idx.Entries = append(idx.Entries, conflictEntries(s, name, baseFiles, ourFiles, theirFiles)...)
		}
	}

	dirs := make(map[string]struct{})
	for _, e := range idx.Entries {
		for d := path.Dir(e.Name); d != "."; d = path.Dir(d) {
			dirs[d] = struct{}{}
		}
	}
	if len(dirs) == 0 {
		return idx, nil
	}
	entries := make([]*index.Entry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		if _, clash := dirs[e.Name]; clash && e.Stage == StageMerged {
			entries = append(entries, conflictEntries(s, e.Name, baseFiles, ourFiles, theirFiles)...)
			continue
		}
		entries = append(entries, e)
	}
	idx.Entries = entries
	return idx, nil
}

// conflictEntries stages each side present at name at 1/2/3.
func conflictEntries(s storer.EncodedObjectStorer, name string, base, ours, theirs map[string]treeFile) []*index.Entry {
	var entries []*index.Entry
	if f, ok := base[name]; ok {
		entries = append(entries, newEntry(s, name, f, StageAncestor))
	}
	if f, ok := ours[name]; ok {
		entries = append(entries, newEntry(s, name, f, StageOurs))
	}
	if f, ok := theirs[name]; ok {
		entries = append(entries, newEntry(s, name, f, StageTheirs))
	}
	return entries
}

func newEntry(s storer.EncodedObjectStorer, name string, f treeFile, stage index.Stage) *index.Entry {
	e := &index.Entry{
		Name:  name,
		Hash:  f.hash,
		Mode:  f.mode,
		Stage: stage,
	}
	// Submodule entries point at commits that are not in this store.
	if f.mode != filemode.Submodule {
		if size, err := s.EncodedObjectSize(f.hash); err == nil {
			e.Size = uint32(size)
		}
	}
	return e
}

func flattenTree(t *object.Tree) (map[string]treeFile, error) {
	files := make(map[string]treeFile)
	if t == nil {
		return files, nil
	}

	w := object.NewTreeWalker(t, true, nil)
	defer w.Close()
	for {
		name, entry, err := w.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		files[name] = treeFile{hash: entry.Hash, mode: entry.Mode}
	}
	return files, nil
}
