package git

import (
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// IsAncestor reports whether ancestor is reachable from descendant. A commit
// counts as its own ancestor.
func IsAncestor(repo *gogit.Repository, ancestor, descendant plumbing.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	cDesc, err := repo.CommitObject(descendant)
	if err != nil {
		return false, err
	}
	cAnc, err := repo.CommitObject(ancestor)
	if err != nil {
		return false, err
	}

	bases, err := cDesc.MergeBase(cAnc)
	if err != nil {
		return false, err
	}

	// If one of the merge bases is the ancestor itself it is reachable.
	for _, b := range bases {
		if b.Hash == ancestor {
			return true, nil
		}
	}
	return false, nil
}

// MergeBase returns the best common ancestor of a and b, or nil when the two
// histories share nothing.
func MergeBase(repo *gogit.Repository, a, b plumbing.Hash) (*object.Commit, error) {
	ca, err := repo.CommitObject(a)
	if err != nil {
		return nil, err
	}
	cb, err := repo.CommitObject(b)
	if err != nil {
		return nil, err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return nil, err
	}
	if len(bases) == 0 {
		return nil, nil
	}
	return bases[0], nil
}
