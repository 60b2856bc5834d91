// Package gitinfo resolves the documented project's version and release
// strings from its git working tree. These feed the sphinx-build -D
// version/-D release overrides so rendered documentation always states which
// revision it describes.
package gitinfo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Info describes the resolved revision.
type Info struct {
	// Version is the short X.Y form shown in page headers.
	Version string
	// Release is the full release string, including local-version suffixes
	// for untagged or dirty trees.
	Release string
	Commit  string // short hash
	Dirty   bool
}

// historyLimit bounds the nearest-tag search on very deep histories.
const historyLimit = 2000

// ErrNoCommits indicates a repository without any commit on HEAD.
var ErrNoCommits = errors.New("repository has no commits")

// Resolve inspects the repository containing dir.
func Resolve(dir string) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCommits, err)
	}
	short := head.Hash().String()[:8]

	dirty, err := worktreeDirty(repo)
	if err != nil {
		return nil, err
	}

	tag, distance, err := nearestTag(repo, head.Hash())
	if err != nil {
		return nil, err
	}

	info := &Info{Commit: short, Dirty: dirty}
	switch {
	case tag == "":
		info.Version = "0.0"
		info.Release = "0.0+" + short
	case distance == 0:
		info.Release = strings.TrimPrefix(tag, "v")
		info.Version = shortVersion(info.Release)
	default:
		base := strings.TrimPrefix(tag, "v")
		info.Release = fmt.Sprintf("%s+%d.%s", base, distance, short)
		info.Version = shortVersion(base)
	}
	if dirty {
		info.Release += ".dirty"
	}
	return info, nil
}

// Overrides returns the conf.py overrides for sphinx-build.
func (i *Info) Overrides() map[string]string {
	return map[string]string{
		"version": i.Version,
		"release": i.Release,
	}
}

// nearestTag walks first-parent history from head looking for the closest
// tagged commit. Annotated tags are peeled to their targets.
func nearestTag(repo *git.Repository, head plumbing.Hash) (string, int, error) {
	tagged := make(map[plumbing.Hash][]string)
	tags, err := repo.Tags()
	if err != nil {
		return "", 0, fmt.Errorf("list tags: %w", err)
	}
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		hash := ref.Hash()
		if tagObj, tagErr := repo.TagObject(hash); tagErr == nil {
			hash = tagObj.Target
		}
		name := ref.Name().Short()
		tagged[hash] = append(tagged[hash], name)
		return nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("iterate tags: %w", err)
	}
	for _, names := range tagged {
		// Highest tag wins when several point at one commit.
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	commit, err := repo.CommitObject(head)
	if err != nil {
		return "", 0, fmt.Errorf("resolve head commit: %w", err)
	}

	distance := 0
	for distance < historyLimit {
		if names, ok := tagged[commit.Hash]; ok {
			return names[0], distance, nil
		}
		parent, perr := commit.Parent(0)
		if perr != nil {
			if errors.Is(perr, object.ErrParentNotFound) || errors.Is(perr, storer.ErrStop) {
				break
			}
			break
		}
		commit = parent
		distance++
	}
	return "", 0, nil
}

func worktreeDirty(repo *git.Repository) (bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return false, nil
		}
		return false, fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("worktree status: %w", err)
	}
	return !status.IsClean(), nil
}

// shortVersion reduces a release string to its X.Y prefix.
func shortVersion(release string) string {
	parts := strings.SplitN(release, ".", 3)
	if len(parts) >= 2 {
		return parts[0] + "." + parts[1]
	}
	return release
}
