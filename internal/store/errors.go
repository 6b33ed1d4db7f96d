package store

import "errors"

var (
	// ErrRepositoryNotClean is returned by Merge when the worktree or index
	// has modified, untracked or conflicted paths.
	ErrRepositoryNotClean = errors.New("repository has uncommitted changes")

	// ErrUnmergeable is returned when the local and remote histories share no
	// common ancestor.
	ErrUnmergeable = errors.New("histories have no common ancestor")

	// ErrNoUpstream is returned when the current branch tracks nothing.
	ErrNoUpstream = errors.New("current branch has no upstream")

	// ErrRepositoryBusy is returned while another operation, usually an
	// unfinished merge, holds the store.
	ErrRepositoryBusy = errors.New("repository is busy")

	// ErrDetachedHead is returned when HEAD does not point at a branch.
	ErrDetachedHead = errors.New("HEAD is detached")
)
