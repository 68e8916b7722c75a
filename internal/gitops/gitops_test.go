// File: internal/gitops/gitops_test.go
package gitops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	format "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendSafeDirectory(t *testing.T) {
	raw := format.New()

	assert.True(t, appendSafeDirectory(raw, "/repo/a"))
	assert.True(t, appendSafeDirectory(raw, "/repo/b"))
	// Listing the same directory twice is a no-op.
	assert.False(t, appendSafeDirectory(raw, "/repo/a"))

	opts := raw.Section("safe").Options
	require.Len(t, opts, 2)
	assert.Equal(t, "directory", opts[0].Key)
	assert.Equal(t, "/repo/a", opts[0].Value)
	assert.Equal(t, "/repo/b", opts[1].Value)
}

// initRepo creates a repository with one commit on the default branch and
// an origin remote.
func initRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{"git@example.com:acme/app.git"},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("main.go")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir, hash.String()
}

func TestDescribe_ResolvesIdentity(t *testing.T) {
	dir, commit := initRepo(t)

	meta, err := Describe(dir)
	require.NoError(t, err)
	assert.Equal(t, commit, meta.Commit)
	assert.Equal(t, "master", meta.Branch)
	assert.Equal(t, "git@example.com:acme/app.git", meta.Remote)

	root, err := filepath.EvalSymlinks(meta.Root)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, root)
}

func TestDescribe_DetectsRepoFromSubdirectory(t *testing.T) {
	dir, commit := initRepo(t)
	sub := filepath.Join(dir, "internal", "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	meta, err := Describe(sub)
	require.NoError(t, err)
	assert.Equal(t, commit, meta.Commit)
}

func TestDescribe_OutsideRepository(t *testing.T) {
	_, err := Describe(t.TempDir())
	assert.ErrorContains(t, err, "not inside a git repository")
}
