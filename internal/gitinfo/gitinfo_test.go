package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	dir  string
	repo *git.Repository
	wt   *git.Worktree
	n    int
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return &testRepo{dir: dir, repo: repo, wt: wt}
}

func (r *testRepo) commit(t *testing.T) plumbing.Hash {
	t.Helper()
	r.n++
	name := filepath.Join(r.dir, "file.txt")
	require.NoError(t, os.WriteFile(name, []byte(time.Now().String()+string(rune('a'+r.n))), 0o644))
	_, err := r.wt.Add("file.txt")
	require.NoError(t, err)
	hash, err := r.wt.Commit("commit", &git.CommitOptions{
		Author: &object.Signature{Name: "doc builder", Email: "docs@example.org", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func (r *testRepo) tag(t *testing.T, name string, hash plumbing.Hash) {
	t.Helper()
	_, err := r.repo.CreateTag(name, hash, nil)
	require.NoError(t, err)
}

func TestResolveTaggedHead(t *testing.T) {
	r := newTestRepo(t)
	hash := r.commit(t)
	r.tag(t, "v1.2.3", hash)

	info, err := Resolve(r.dir)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", info.Release)
	assert.Equal(t, "1.2", info.Version)
	assert.False(t, info.Dirty)
	assert.Len(t, info.Commit, 8)
}

func TestResolveCommitsAfterTag(t *testing.T) {
	r := newTestRepo(t)
	first := r.commit(t)
	r.tag(t, "v2.0", first)
	r.commit(t)
	r.commit(t)

	info, err := Resolve(r.dir)
	require.NoError(t, err)
	assert.Equal(t, "2.0", info.Version)
	assert.Contains(t, info.Release, "2.0+2.")
}

func TestResolveUntagged(t *testing.T) {
	r := newTestRepo(t)
	r.commit(t)

	info, err := Resolve(r.dir)
	require.NoError(t, err)
	assert.Equal(t, "0.0", info.Version)
	assert.Contains(t, info.Release, "0.0+")
}

func TestResolveDirtyWorktree(t *testing.T) {
	r := newTestRepo(t)
	hash := r.commit(t)
	r.tag(t, "v1.0", hash)
	require.NoError(t, os.WriteFile(filepath.Join(r.dir, "file.txt"), []byte("edited"), 0o644))

	info, err := Resolve(r.dir)
	require.NoError(t, err)
	assert.True(t, info.Dirty)
	assert.Contains(t, info.Release, ".dirty")
}

func TestResolveFromSubdirectory(t *testing.T) {
	r := newTestRepo(t)
	hash := r.commit(t)
	r.tag(t, "v3.1", hash)
	sub := filepath.Join(r.dir, "docs")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	info, err := Resolve(sub)
	require.NoError(t, err)
	assert.Equal(t, "3.1", info.Version)
}

func TestResolveNoRepository(t *testing.T) {
	_, err := Resolve(t.TempDir())
	require.Error(t, err)
}

func TestOverrides(t *testing.T) {
	info := &Info{Version: "1.2", Release: "1.2.3"}
	assert.Equal(t, map[string]string{"version": "1.2", "release": "1.2.3"}, info.Overrides())
}
