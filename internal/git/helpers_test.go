package git

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

var testAuthor = &object.Signature{Name: "Test", Email: "test@example.com", When: time.Unix(1700000000, 0)}

func newTestRepo(t *testing.T) *gogit.Repository {
	t.Helper()
	r, err := gogit.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	return r
}

// snapshot makes the worktree hold exactly files and commits it.
func snapshot(t *testing.T, r *gogit.Repository, files map[string]string) *object.Commit {
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
		require.NoError(t, util.WriteFile(w.Filesystem, name, []byte(content), 0o644))
		_, err := w.Add(name)
		require.NoError(t, err)
	}

	h, err := w.Commit("snapshot", &gogit.CommitOptions{Author: testAuthor, AllowEmptyCommits: true})
	require.NoError(t, err)
	c, err := r.CommitObject(h)
	require.NoError(t, err)
	return c
}

func orphanCommit(t *testing.T, r *gogit.Repository) plumbing.Hash {
	t.Helper()
	tree := &object.Tree{}
	treeObj := r.Storer.NewEncodedObject()
	require.NoError(t, tree.Encode(treeObj))
	treeHash, err := r.Storer.SetEncodedObject(treeObj)
	require.NoError(t, err)

	c := &object.Commit{Author: *testAuthor, Committer: *testAuthor, Message: "orphan", TreeHash: treeHash}
	obj := r.Storer.NewEncodedObject()
	require.NoError(t, c.Encode(obj))
	h, err := r.Storer.SetEncodedObject(obj)
	require.NoError(t, err)
	return h
}

func treeOf(t *testing.T, c *object.Commit) *object.Tree {
	t.Helper()
	tree, err := c.Tree()
	require.NoError(t, err)
	return tree
}
