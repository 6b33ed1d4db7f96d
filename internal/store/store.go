// Package store synchronizes a password store repository with its remotes
// and hands three-way merge conflicts to a conflict.Resolver.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"go.uber.org/zap"

	"github.com/kurobon/passync/internal/conflict"
	"github.com/kurobon/passync/internal/gpg"
)

// Options configures a Store.
type Options struct {
	Crypto         gpg.Crypto
	SecretSuffix   string
	RecipientsFile string
	// Signature returns the author of merge commits. Defaults to a generic
	// identity stamped with the current time.
	Signature func() *object.Signature
	// Auth is passed to every fetch and push.
	Auth   transport.AuthMethod
	Logger *zap.Logger
}

// Store wraps the repository of a password store. Every operation takes the
// store's lock; Merge keeps it until the returned resolver finishes or aborts.
type Store struct {
	mu   sync.Mutex
	repo *gogit.Repository
	opts Options
	log  *zap.Logger
}

// New wraps an already opened repository.
func New(repo *gogit.Repository, opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Signature == nil {
		opts.Signature = defaultSignature
	}
	return &Store{repo: repo, opts: opts, log: log}
}

// Open opens the repository at dir.
func Open(dir string, opts Options) (*Store, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", dir, err)
	}
	return New(repo, opts), nil
}

func (s *Store) Repository() *gogit.Repository {
	return s.repo
}

func (s *Store) lock() error {
	if !s.mu.TryLock() {
		return ErrRepositoryBusy
	}
	return nil
}

func (s *Store) classifier() conflict.Classifier {
	return conflict.Classifier{
		Crypto:         s.opts.Crypto,
		SecretSuffix:   s.opts.SecretSuffix,
		RecipientsFile: s.opts.RecipientsFile,
		Logger:         s.log,
	}
}

// currentBranch returns the branch HEAD points at, born or not.
func (s *Store) currentBranch() (plumbing.ReferenceName, error) {
	head, err := s.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Target(), nil
}

// upstream returns the remote and the remote-tracking ref configured for
// branch. A remote of "." tracks a local branch.
func (s *Store) upstream(branch plumbing.ReferenceName) (string, plumbing.ReferenceName, error) {
	cfg, err := s.repo.Config()
	if err != nil {
		return "", "", fmt.Errorf("failed to read config: %w", err)
	}
	b, ok := cfg.Branches[branch.Short()]
	if !ok || b.Remote == "" || b.Merge == "" {
		return "", "", fmt.Errorf("%w: %s", ErrNoUpstream, branch.Short())
	}
	if b.Remote == "." {
		return b.Remote, b.Merge, nil
	}
	return b.Remote, plumbing.NewRemoteReferenceName(b.Remote, b.Merge.Short()), nil
}

func isAlreadyUpToDate(err error) bool {
	return errors.Is(err, gogit.NoErrAlreadyUpToDate)
}

func defaultSignature() *object.Signature {
	return &object.Signature{
		Name:  "passync",
		Email: "passync@localhost",
		When:  time.Now(),
	}
}
