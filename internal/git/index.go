package git

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// Stage numbers as git records them. go-git's index.Merged is 1, which is the
// ancestor stage, so resolved entries use StageMerged instead.
const (
	StageMerged   index.Stage = 0
	StageAncestor             = index.AncestorMode
	StageOurs                 = index.OurMode
	StageTheirs               = index.TheirMode
)

// ConflictedPaths returns the sorted, de-duplicated names that still have
// entries above stage 0.
func ConflictedPaths(idx *index.Index) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, e := range idx.Entries {
		if e.Stage == StageMerged || seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		paths = append(paths, e.Name)
	}
	sort.Strings(paths)
	return paths
}

// HasConflicts reports whether any entry sits above stage 0.
func HasConflicts(idx *index.Index) bool {
	for _, e := range idx.Entries {
		if e.Stage != StageMerged {
			return true
		}
	}
	return false
}

// Stages returns every entry recorded for path keyed by stage.
func Stages(idx *index.Index, path string) map[index.Stage]*index.Entry {
	out := make(map[index.Stage]*index.Entry)
	for _, e := range idx.Entries {
		if e.Name == path {
			out[e.Stage] = e
		}
	}
	return out
}

// RemovePath drops path from every stage. index.Index.Remove only drops the
// first match, which is not enough for a conflicted path.
func RemovePath(idx *index.Index, path string) bool {
	kept := idx.Entries[:0]
	removed := false
	for _, e := range idx.Entries {
		if e.Name == path {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	idx.Entries = kept
	return removed
}

// StagePath replaces every stage of path with a single resolved entry.
func StagePath(idx *index.Index, path string, hash plumbing.Hash, mode filemode.FileMode, size uint32) {
	RemovePath(idx, path)
	idx.Entries = append(idx.Entries, &index.Entry{
		Name:  path,
		Hash:  hash,
		Mode:  mode,
		Size:  size,
		Stage: StageMerged,
	})
	SortEntries(idx)
}

// SortEntries orders entries by name then stage, the order git writes them.
func SortEntries(idx *index.Index) {
	sort.SliceStable(idx.Entries, func(i, j int) bool {
		a, b := idx.Entries[i], idx.Entries[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Stage < b.Stage
	})
}

// CloneIndex copies idx deeply enough that edits to the clone's entries do
// not show through.
func CloneIndex(idx *index.Index) *index.Index {
	out := &index.Index{Version: idx.Version}
	out.Entries = make([]*index.Entry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		c := *e
		out.Entries = append(out.Entries, &c)
	}
	return out
}
