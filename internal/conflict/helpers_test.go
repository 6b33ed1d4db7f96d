package conflict

import (
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kurobon/passync/internal/git"
	"github.com/kurobon/passync/internal/gpg"
	"github.com/kurobon/passync/internal/gpg/gpgtest"
)

type tree map[string][]byte

// keys holds three recipients and a keyring able to decrypt for all of them.
type keys struct {
	k0, k1, k2 *openpgp.Entity
	ring       *gpg.Keyring
}

func newKeys(t *testing.T) *keys {
	t.Helper()
	k := &keys{
		k0: gpgtest.NewEntity(t, "Zero", "zero@example.com"),
		k1: gpgtest.NewEntity(t, "One", "one@example.com"),
		k2: gpgtest.NewEntity(t, "Two", "two@example.com"),
	}
	k.ring = gpgtest.Keyring(k.k0, k.k1, k.k2)
	return k
}

func recipients(es ...*openpgp.Entity) []byte {
	ids := make([]string, 0, len(es))
	for _, e := range es {
		ids = append(ids, gpg.KeyID(e))
	}
	return gpg.NewKeySet(ids...).Bytes()
}

func commitTree(t *testing.T, r *gogit.Repository, files tree) *object.Tree {
	t.Helper()
	w, err := r.Worktree()
	require.NoError(t, err)

	idx, err := r.Storer.Index()
	require.NoError(t, err)
	var stale []string
	for _, e := range idx.Entries {
		if _, keep := files[e.Name]; !keep {
			stale = append(stale, e.Name)
		}
	}
	for _, name := range stale {
		_, err := w.Remove(name)
		require.NoError(t, err)
	}
	for name, content := range files {
		require.NoError(t, util.WriteFile(w.Filesystem, name, content, 0o644))
		_, err := w.Add(name)
		require.NoError(t, err)
	}

	h, err := w.Commit("snapshot", &gogit.CommitOptions{
		Author:            &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
		AllowEmptyCommits: true,
	})
	require.NoError(t, err)
	c, err := r.CommitObject(h)
	require.NoError(t, err)
	tr, err := c.Tree()
	require.NoError(t, err)
	return tr
}

// conflicted builds a repository holding the three trees and returns the
// index MergeTrees produced for them.
func conflicted(t *testing.T, base, ours, theirs tree) (*gogit.Repository, *index.Index) {
	t.Helper()
	r, err := gogit.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)

	var baseTree *object.Tree
	if base != nil {
		baseTree = commitTree(t, r, base)
	}
	ourTree := commitTree(t, r, ours)
	theirTree := commitTree(t, r, theirs)

	idx, err := git.MergeTrees(r.Storer, baseTree, ourTree, theirTree)
	require.NoError(t, err)
	return r, idx
}

type recordingFinisher struct {
	calls int
	idx   *index.Index
}

func (f *recordingFinisher) finish(_ *gogit.Repository, idx *index.Index) error {
	if err := RequireResolved(idx); err != nil {
		return err
	}
	f.calls++
	f.idx = git.CloneIndex(idx)
	return nil
}

func newTestResolver(t *testing.T, r *gogit.Repository, idx *index.Index, crypto gpg.Crypto, fin Finisher) *Resolver {
	t.Helper()
	res, err := NewResolver(r, idx, fin, Options{
		Classifier: Classifier{Crypto: crypto},
		Logger:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return res
}

func stagedContent(t *testing.T, r *gogit.Repository, idx *index.Index, path string) []byte {
	t.Helper()
	e, ok := git.Stages(idx, path)[git.StageMerged]
	require.True(t, ok, "%s is not staged at stage 0", path)
	content, err := git.ReadBlob(r.Storer, e.Hash)
	require.NoError(t, err)
	return content
}

// gpgtestEncrypt encrypts plaintext for all three test keys.
func gpgtestEncrypt(t *testing.T, plaintext string, k *keys) []byte {
	t.Helper()
	return gpgtest.Encrypt(t, plaintext, k.k0, k.k1, k.k2)
}
