package conflict

import (
	"bytes"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/kurobon/passync/internal/git"
)

// Entry is one staged side of a conflicted path together with its blob.
type Entry struct {
	Path    string
	Mode    filemode.FileMode
	Hash    plumbing.Hash
	Stage   index.Stage
	Content []byte
}

// Sides holds the up to three versions of a conflicted path. Any of them may
// be nil: add/add conflicts have no ancestor, modify/delete conflicts miss
// one of ours or theirs.
type Sides struct {
	Ancestor *Entry
	Ours     *Entry
	Theirs   *Entry
}

// Present returns the non-nil sides in ancestor, ours, theirs order.
func (s Sides) Present() []*Entry {
	var out []*Entry
	for _, e := range []*Entry{s.Ancestor, s.Ours, s.Theirs} {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Path is the path of the first present side.
func (s Sides) Path() string {
	if p := s.Present(); len(p) > 0 {
		return p[0].Path
	}
	return ""
}

// mode picks the file mode a resolution is staged with: ours, then theirs,
// then the ancestor.
func (s Sides) mode() filemode.FileMode {
	for _, e := range []*Entry{s.Ours, s.Theirs, s.Ancestor} {
		if e != nil {
			return e.Mode
		}
	}
	return filemode.Regular
}

func (s Sides) byPath(path string) *Entry {
	for _, e := range []*Entry{s.Ours, s.Theirs, s.Ancestor} {
		if e != nil && e.Path == path {
			return e
		}
	}
	return nil
}

func (s Sides) paths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.Present() {
		if !seen[e.Path] {
			seen[e.Path] = true
			out = append(out, e.Path)
		}
	}
	return out
}

func loadSides(s storer.EncodedObjectStorer, idx *index.Index, path string) (Sides, error) {
	var sides Sides
	for stage, e := range git.Stages(idx, path) {
		var content []byte
		if e.Mode != filemode.Submodule {
			var err error
			if content, err = git.ReadBlob(s, e.Hash); err != nil {
				return Sides{}, err
			}
		}
		entry := &Entry{
			Path:    e.Name,
			Mode:    e.Mode,
			Hash:    e.Hash,
			Stage:   stage,
			Content: content,
		}
		switch stage {
		case git.StageAncestor:
			sides.Ancestor = entry
		case git.StageOurs:
			sides.Ours = entry
		case git.StageTheirs:
			sides.Theirs = entry
		}
	}
	return sides, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}
