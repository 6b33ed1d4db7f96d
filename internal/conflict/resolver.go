package conflict

import (
	"errors"
	"fmt"
	"path"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"go.uber.org/zap"

	"github.com/kurobon/passync/internal/git"
	"github.com/kurobon/passync/internal/gpg"
)

// Finisher completes a merge once its conflicts are resolved. It receives the
// staged index, which it must not retain.
type Finisher func(repo *gogit.Repository, idx *index.Index) error

// RequireResolved returns ErrUnresolvedConflicts while idx has conflicted
// paths. Finishers that commit the index call it first.
func RequireResolved(idx *index.Index) error {
	if paths := git.ConflictedPaths(idx); len(paths) > 0 {
		return fmt.Errorf("%w: %d paths", ErrUnresolvedConflicts, len(paths))
	}
	return nil
}

// Options configures a Resolver.
type Options struct {
	Classifier Classifier
	// Release is called exactly once when the resolver finishes or aborts.
	Release func()
	Logger  *zap.Logger
}

// Resolver collects the classified conflicts of one merge and owns the
// staged index until Finish or Abort. It is not safe for concurrent use.
type Resolver struct {
	repo     *gogit.Repository
	idx      *index.Index
	finisher Finisher
	crypto   gpg.Crypto
	recFile  string
	release  func()
	log      *zap.Logger
	consumed bool

	passwords  []*Password
	gpgIDs     []*GpgID
	plainTexts []*PlainText
	binaries   []*Binary
	all        []Conflict
}

// NewResolver classifies every conflicted path of idx. A nil idx means the
// merge produced nothing to stage.
func NewResolver(repo *gogit.Repository, idx *index.Index, finisher Finisher, opts Options) (*Resolver, error) {
	if idx == nil {
		idx = &index.Index{Version: 2}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cls := opts.Classifier
	if cls.Logger == nil {
		cls.Logger = log
	}

	r := &Resolver{
		repo:     repo,
		idx:      idx,
		finisher: finisher,
		crypto:   cls.Crypto,
		recFile:  cls.recipientsFile(),
		release:  opts.Release,
		log:      log,
	}

	for _, p := range git.ConflictedPaths(idx) {
		sides, err := loadSides(repo.Storer, idx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to load conflict %s: %w", p, err)
		}
		c := cls.Classify(sides)
		switch v := c.(type) {
		case *Password:
			v.owner = r
			r.passwords = append(r.passwords, v)
		case *GpgID:
			v.owner = r
			r.gpgIDs = append(r.gpgIDs, v)
		case *PlainText:
			v.owner = r
			r.plainTexts = append(r.plainTexts, v)
		case *Binary:
			v.owner = r
			r.binaries = append(r.binaries, v)
		}
		r.all = append(r.all, c)
		log.Debug("classified conflict", zap.String("path", p), zap.Stringer("kind", c.Kind()))
	}
	return r, nil
}

func (r *Resolver) Passwords() []*Password   { return r.passwords }
func (r *Resolver) GpgIDs() []*GpgID         { return r.gpgIDs }
func (r *Resolver) PlainTexts() []*PlainText { return r.plainTexts }
func (r *Resolver) Binaries() []*Binary      { return r.binaries }

// Conflicts returns every classified conflict ordered by path.
func (r *Resolver) Conflicts() []Conflict { return r.all }

// Len is the number of classified conflicts, resolved or not.
func (r *Resolver) Len() int { return len(r.all) }

// Remaining is the number of paths the staged index still reports as
// conflicted.
func (r *Resolver) Remaining() int { return len(git.ConflictedPaths(r.idx)) }

// Summary counts the classified conflicts per kind.
func (r *Resolver) Summary() map[Kind]int {
	out := make(map[Kind]int)
	for _, c := range r.all {
		out[c.Kind()]++
	}
	return out
}

// StagedRecipients returns the key set that applies to file, looking for the
// nearest recipients file in the staged index rather than the working tree.
func (r *Resolver) StagedRecipients(file string) (gpg.KeySet, error) {
	dir := path.Dir(file)
	for {
		candidate := r.recFile
		if dir != "." && dir != "/" {
			candidate = path.Join(dir, r.recFile)
		}

		stages := git.Stages(r.idx, candidate)
		if e, ok := stages[git.StageMerged]; ok {
			content, err := git.ReadBlob(r.repo.Storer, e.Hash)
			if err != nil {
				return nil, err
			}
			ks, err := gpg.ParseKeySet(string(content))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", candidate, err)
			}
			return ks, nil
		}
		if len(stages) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrRecipientsConflicted, candidate)
		}

		if dir == "." || dir == "/" {
			return nil, fmt.Errorf("%w for %s", ErrNoRecipients, file)
		}
		dir = path.Dir(dir)
	}
}

// Finish runs the merge's finisher. ErrUnresolvedConflicts leaves the
// resolver usable; any other outcome consumes it and releases the store.
func (r *Resolver) Finish() error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	var err error
	if r.finisher != nil {
		err = r.finisher(r.repo, r.idx)
	}
	if errors.Is(err, ErrUnresolvedConflicts) {
		return err
	}
	r.consume()
	if err != nil {
		r.log.Warn("merge finish failed", zap.Error(err))
		return fmt.Errorf("failed to finish merge: %w", err)
	}
	r.log.Info("merge finished", zap.Int("conflicts", len(r.all)))
	return nil
}

// Abort drops the merge without touching the repository and releases the
// store. It is a no-op once the resolver finished or aborted, so callers can
// defer it right after Merge.
func (r *Resolver) Abort() error {
	if r.consumed {
		return nil
	}
	r.consume()
	r.log.Info("merge aborted", zap.Int("unresolved", r.Remaining()))
	return nil
}

func (r *Resolver) checkOpen() error {
	if r.consumed {
		return ErrResolverConsumed
	}
	return nil
}

func (r *Resolver) consume() {
	r.consumed = true
	if r.release != nil {
		r.release()
		r.release = nil
	}
}

func (r *Resolver) stage(file string, content []byte, mode filemode.FileMode) error {
	h, err := git.WriteBlob(r.repo.Storer, content)
	if err != nil {
		return err
	}
	git.StagePath(r.idx, file, h, mode, uint32(len(content)))
	r.log.Debug("staged resolution", zap.String("path", file), zap.Stringer("blob", h))
	return nil
}

func (r *Resolver) removePaths(paths ...string) {
	for _, p := range paths {
		git.RemovePath(r.idx, p)
	}
}

// stageAs stages content at target using the mode of the side living there,
// and clears the conflict stages of every other side.
func (r *Resolver) stageAs(sides Sides, content []byte, target string) error {
	e := sides.byPath(target)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPath, target)
	}
	r.removePaths(sides.paths()...)
	return r.stage(target, content, e.Mode)
}
