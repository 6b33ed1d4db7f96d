package store

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/kurobon/passync/internal/conflict"
	"github.com/kurobon/passync/internal/git"
)

// Strategy names how Merge joins the local branch with its upstream.
type Strategy int

const (
	StrategyUpToDate Strategy = iota
	StrategyFastForward
	StrategyThreeWay
	StrategyUnborn
)

func (s Strategy) String() string {
	switch s {
	case StrategyUpToDate:
		return "up-to-date"
	case StrategyFastForward:
		return "fast-forward"
	case StrategyThreeWay:
		return "three-way"
	case StrategyUnborn:
		return "unborn"
	}
	return "unknown"
}

// MergeResult is what Merge hands back: the resolver that owns the store
// until Finish or Abort, and the strategy it was built for.
type MergeResult struct {
	*conflict.Resolver
	Strategy Strategy
}

// Merge joins the current branch with its upstream. The worktree must be
// clean. The returned resolver holds the store lock until Finish succeeds or
// Abort is called; a dropped result keeps the store busy, so callers defer
// Abort, which does nothing after a successful Finish.
func (s *Store) Merge(ctx context.Context) (*MergeResult, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	res, err := s.merge()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return res, nil
}

// Pull fetches every remote and then merges the upstream.
func (s *Store) Pull(ctx context.Context) (*MergeResult, error) {
	if err := s.Fetch(ctx); err != nil {
		return nil, err
	}
	return s.Merge(ctx)
}

func (s *Store) merge() (*MergeResult, error) {
	w, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	if !status.IsClean() {
		return nil, ErrRepositoryNotClean
	}

	branch, err := s.currentBranch()
	if err != nil {
		return nil, err
	}
	_, upstream, err := s.upstream(branch)
	if err != nil {
		return nil, err
	}
	remoteRef, err := s.repo.Reference(upstream, true)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", upstream.Short(), err)
	}
	remote := remoteRef.Hash()

	log := s.log.With(
		zap.String("branch", branch.Short()),
		zap.String("upstream", upstream.Short()),
		zap.Stringer("remote_head", remote))

	localRef, err := s.repo.Reference(branch, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		log.Info("merging into unborn branch")
		return s.resolver(StrategyUnborn, nil, unbornFinisher(branch, remote))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", branch.Short(), err)
	}
	local := localRef.Hash()
	log = log.With(zap.Stringer("local_head", local))

	upToDate, err := git.IsAncestor(s.repo, remote, local)
	if err != nil {
		return nil, fmt.Errorf("failed to compare histories: %w", err)
	}
	if upToDate {
		log.Info("already up to date")
		return s.resolver(StrategyUpToDate, nil, func(*gogit.Repository, *index.Index) error { return nil })
	}

	ff, err := git.IsAncestor(s.repo, local, remote)
	if err != nil {
		return nil, fmt.Errorf("failed to compare histories: %w", err)
	}
	if ff {
		log.Info("fast-forward")
		return s.resolver(StrategyFastForward, nil, fastForwardFinisher(branch, remote))
	}

	base, err := git.MergeBase(s.repo, local, remote)
	if err != nil {
		return nil, fmt.Errorf("failed to find merge base: %w", err)
	}
	if base == nil {
		return nil, ErrUnmergeable
	}

	idx, err := s.mergeTrees(base.Hash, local, remote)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Merge %s into %s", upstream.Short(), branch.Short())
	log.Info("three-way merge",
		zap.Stringer("base", base.Hash),
		zap.Int("conflicts", len(git.ConflictedPaths(idx))))
	return s.resolver(StrategyThreeWay, idx, s.threeWayFinisher(branch, local, remote, msg))
}

func (s *Store) mergeTrees(base, local, remote plumbing.Hash) (*index.Index, error) {
	var trees [3]*object.Tree
	for i, h := range []plumbing.Hash{base, local, remote} {
		c, err := s.repo.CommitObject(h)
		if err != nil {
			return nil, fmt.Errorf("failed to read commit %s: %w", h, err)
		}
		t, err := c.Tree()
		if err != nil {
			return nil, fmt.Errorf("failed to read tree of %s: %w", h, err)
		}
		trees[i] = t
	}
	idx, err := git.MergeTrees(s.repo.Storer, trees[0], trees[1], trees[2])
	if err != nil {
		return nil, fmt.Errorf("failed to merge trees: %w", err)
	}
	return idx, nil
}

func (s *Store) resolver(strategy Strategy, idx *index.Index, fin conflict.Finisher) (*MergeResult, error) {
	res, err := conflict.NewResolver(s.repo, idx, fin, conflict.Options{
		Classifier: s.classifier(),
		Release:    s.mu.Unlock,
		Logger:     s.log,
	})
	if err != nil {
		return nil, err
	}
	return &MergeResult{Resolver: res, Strategy: strategy}, nil
}

// unbornFinisher points the branch at the remote commit and checks it out
// without overwriting local changes.
func unbornFinisher(branch plumbing.ReferenceName, remote plumbing.Hash) conflict.Finisher {
	return func(repo *gogit.Repository, _ *index.Index) error {
		if err := repo.Storer.SetReference(plumbing.NewHashReference(branch, remote)); err != nil {
			return fmt.Errorf("failed to update %s: %w", branch.Short(), err)
		}
		w, err := repo.Worktree()
		if err != nil {
			return err
		}
		if err := w.Reset(&gogit.ResetOptions{Commit: remote, Mode: gogit.MergeReset}); err != nil {
			return fmt.Errorf("failed to check out %s: %w", remote, err)
		}
		return nil
	}
}

// fastForwardFinisher moves the branch to the remote commit and force-checks
// out its tree.
func fastForwardFinisher(branch plumbing.ReferenceName, remote plumbing.Hash) conflict.Finisher {
	return func(repo *gogit.Repository, _ *index.Index) error {
		if err := repo.Storer.SetReference(plumbing.NewHashReference(branch, remote)); err != nil {
			return fmt.Errorf("failed to update %s: %w", branch.Short(), err)
		}
		w, err := repo.Worktree()
		if err != nil {
			return err
		}
		if err := w.Reset(&gogit.ResetOptions{Commit: remote, Mode: gogit.HardReset}); err != nil {
			return fmt.Errorf("failed to update worktree: %w", err)
		}
		return nil
	}
}

// threeWayFinisher commits the resolved index with local and remote as
// parents, in that order, and checks out the result. On failure the branch
// and the index are put back so the repository is clean at local again.
func (s *Store) threeWayFinisher(branch plumbing.ReferenceName, local, remote plumbing.Hash, msg string) conflict.Finisher {
	return func(repo *gogit.Repository, idx *index.Index) error {
		if err := conflict.RequireResolved(idx); err != nil {
			return err
		}
		prev, err := repo.Storer.Index()
		if err != nil {
			return fmt.Errorf("failed to read index: %w", err)
		}
		if err := repo.Storer.SetIndex(idx); err != nil {
			return fmt.Errorf("failed to write index: %w", err)
		}

		h, err := s.commitMerge(repo, local, remote, msg)
		if err != nil {
			if rerr := rollback(repo, branch, local, prev); rerr != nil {
				s.log.Error("failed to restore repository after merge failure", zap.Error(rerr))
			}
			return err
		}
		s.log.Info("created merge commit", zap.Stringer("commit", h))
		return nil
	}
}

func (s *Store) commitMerge(repo *gogit.Repository, local, remote plumbing.Hash, msg string) (plumbing.Hash, error) {
	w, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	sig := s.opts.Signature()
	h, err := w.Commit(msg, &gogit.CommitOptions{
		Parents:           []plumbing.Hash{local, remote},
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create merge commit: %w", err)
	}
	if err := w.Reset(&gogit.ResetOptions{Commit: h, Mode: gogit.HardReset}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to check out merge: %w", err)
	}
	return h, nil
}

// rollback points branch back at local and restores the index it had
// before the merge was staged.
func rollback(repo *gogit.Repository, branch plumbing.ReferenceName, local plumbing.Hash, prev *index.Index) error {
	if err := repo.Storer.SetReference(plumbing.NewHashReference(branch, local)); err != nil {
		return err
	}
	return repo.Storer.SetIndex(prev)
}
