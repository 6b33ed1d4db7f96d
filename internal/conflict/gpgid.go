package conflict

import (
	"fmt"
	"unicode/utf8"

	"github.com/kurobon/passync/internal/gpg"
)

// GpgID is a conflict on a recipients file where every present side parsed
// as a list of key ids.
type GpgID struct {
	state
	ancestor gpg.KeySet
	ours     gpg.KeySet
	theirs   gpg.KeySet
}

func newGpgID(sides Sides) (*GpgID, error) {
	g := &GpgID{state: state{sides: sides}}
	for _, side := range []struct {
		entry *Entry
		dst   *gpg.KeySet
	}{
		{sides.Ancestor, &g.ancestor},
		{sides.Ours, &g.ours},
		{sides.Theirs, &g.theirs},
	} {
		if side.entry == nil {
			continue
		}
		if !utf8.Valid(side.entry.Content) {
			return nil, fmt.Errorf("%s (stage %d): not valid UTF-8", side.entry.Path, side.entry.Stage)
		}
		ks, err := gpg.ParseKeySet(string(side.entry.Content))
		if err != nil {
			return nil, fmt.Errorf("%s (stage %d): %w", side.entry.Path, side.entry.Stage, err)
		}
		*side.dst = ks
	}
	return g, nil
}

// Kind reports KindGpgID.
func (g *GpgID) Kind() Kind { return KindGpgID }

// Ancestor returns a copy of the ancestor's key set, or nil.
func (g *GpgID) Ancestor() gpg.KeySet { return cloneKeySet(g.ancestor) }

// Ours returns a copy of our key set, or nil.
func (g *GpgID) Ours() gpg.KeySet { return cloneKeySet(g.ours) }

// Theirs returns a copy of their key set, or nil.
func (g *GpgID) Theirs() gpg.KeySet { return cloneKeySet(g.theirs) }

// Resolve stages set as the recipients file. A nil set deletes the file, which
// makes secrets below it fall back to the next recipients file up the tree.
// Secrets already encrypted are not re-encrypted.
func (g *GpgID) Resolve(r *Resolver, set gpg.KeySet) error {
	if err := g.begin(r); err != nil {
		return err
	}
	path := g.Path()

	if set == nil {
		r.removePaths(path)
		g.resolved = true
		return nil
	}
	if set.Len() == 0 {
		return fmt.Errorf("%w: refusing to write an empty %s", ErrNoRecipients, path)
	}

	if err := r.stage(path, set.Bytes(), g.sides.mode()); err != nil {
		return err
	}
	g.resolved = true
	return nil
}

func cloneKeySet(ks gpg.KeySet) gpg.KeySet {
	if ks == nil {
		return nil
	}
	return ks.Clone()
}
