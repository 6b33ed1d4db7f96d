package store

import (
	"context"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/client"
	"github.com/go-git/go-git/v5/plumbing/transport/file"
	"github.com/go-git/go-git/v5/plumbing/transport/server"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kurobon/passync/internal/gpg"
	"github.com/kurobon/passync/internal/gpg/gpgtest"
)

const originURL = "file:///origin.git"

type tree map[string][]byte

var testWhen = time.Unix(1700000000, 0)

// fixture is an in-memory origin with two clones of it: local, wrapped by the
// store under test, and other, which plays a second device pushing changes.
type fixture struct {
	origin *gogit.Repository
	local  *gogit.Repository
	other  *gogit.Repository
	store  *Store

	k0, k1, k2 *openpgp.Entity
	ring       *gpg.Keyring
}

func newFixture(t *testing.T, initial tree) *fixture {
	t.Helper()
	f := newKeyedFixture(t)
	f.start(t, initial)
	return f
}

// newKeyedFixture only generates the keys, so tests can encrypt the initial
// tree before calling start.
func newKeyedFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		k0: gpgtest.NewEntity(t, "Zero", "zero@example.com"),
		k1: gpgtest.NewEntity(t, "One", "one@example.com"),
		k2: gpgtest.NewEntity(t, "Two", "two@example.com"),
	}
	f.ring = gpgtest.Keyring(f.k0, f.k1, f.k2)
	return f
}

func (f *fixture) start(t *testing.T, initial tree) {
	t.Helper()
	origin, err := gogit.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	commitFiles(t, origin, initial)
	f.origin = origin

	serveRepos(t, server.MapLoader{originURL: origin.Storer})

	f.local = cloneOrigin(t)
	f.other = cloneOrigin(t)
	f.store = New(f.local, Options{
		Crypto:    f.ring,
		Signature: testSignature,
		Logger:    zaptest.NewLogger(t),
	})
}

// serveRepos routes file:// URLs to in-process repositories instead of the
// git binary.
func serveRepos(t *testing.T, loader server.Loader) {
	t.Helper()
	client.InstallProtocol("file", server.NewClient(loader))
	t.Cleanup(func() { client.InstallProtocol("file", file.DefaultClient) })
}

func cloneOrigin(t *testing.T) *gogit.Repository {
	t.Helper()
	r, err := gogit.Clone(memory.NewStorage(), memfs.New(), &gogit.CloneOptions{URL: originURL})
	require.NoError(t, err)
	return r
}

func testSignature() *object.Signature {
	return &object.Signature{Name: "Test", Email: "test@example.com", When: testWhen}
}

func (f *fixture) recipients(es ...*openpgp.Entity) []byte {
	ids := make([]string, 0, len(es))
	for _, e := range es {
		ids = append(ids, gpg.KeyID(e))
	}
	return gpg.NewKeySet(ids...).Bytes()
}

func (f *fixture) secret(t *testing.T, plaintext string) []byte {
	t.Helper()
	return gpgtest.Encrypt(t, plaintext, f.k0, f.k1, f.k2)
}

// commitFiles writes files, deletes the paths listed in remove and commits.
func commitFiles(t *testing.T, r *gogit.Repository, files tree, remove ...string) plumbing.Hash {
	t.Helper()
	w, err := r.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		require.NoError(t, util.WriteFile(w.Filesystem, name, content, 0o644))
		_, err := w.Add(name)
		require.NoError(t, err)
	}
	for _, name := range remove {
		_, err := w.Remove(name)
		require.NoError(t, err)
	}
	h, err := w.Commit("change", &gogit.CommitOptions{Author: testSignature()})
	require.NoError(t, err)
	return h
}

func push(t *testing.T, r *gogit.Repository) {
	t.Helper()
	require.NoError(t, r.PushContext(context.Background(), &gogit.PushOptions{RemoteName: "origin"}))
}

func head(t *testing.T, r *gogit.Repository) plumbing.Hash {
	t.Helper()
	ref, err := r.Head()
	require.NoError(t, err)
	return ref.Hash()
}

func readWorktree(t *testing.T, r *gogit.Repository, name string) []byte {
	t.Helper()
	w, err := r.Worktree()
	require.NoError(t, err)
	content, err := util.ReadFile(w.Filesystem, name)
	require.NoError(t, err)
	return content
}

func orphanCommit(t *testing.T, r *gogit.Repository) plumbing.Hash {
	t.Helper()
	treeObj := r.Storer.NewEncodedObject()
	require.NoError(t, (&object.Tree{}).Encode(treeObj))
	treeHash, err := r.Storer.SetEncodedObject(treeObj)
	require.NoError(t, err)

	c := &object.Commit{Author: *testSignature(), Committer: *testSignature(), Message: "unrelated", TreeHash: treeHash}
	obj := r.Storer.NewEncodedObject()
	require.NoError(t, c.Encode(obj))
	h, err := r.Storer.SetEncodedObject(obj)
	require.NoError(t, err)
	return h
}
