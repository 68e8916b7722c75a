// File: internal/gitops/meta.go
package gitops

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// Meta is the repository identity ci attaches to uploaded results.
type Meta struct {
	Root   string
	Branch string
	Commit string
	Remote string
}

// Describe resolves the repository containing dir and extracts its
// identity. A detached HEAD yields an empty branch name; a missing origin
// remote yields an empty remote URL. Both are normal in CI checkouts.
func Describe(dir string) (*Meta, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%s is not inside a git repository: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	meta := &Meta{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		meta.Branch = head.Name().Short()
	}

	if wt, err := repo.Worktree(); err == nil {
		meta.Root = wt.Filesystem.Root()
	}

	if remote, err := repo.Remote(git.DefaultRemoteName); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			meta.Remote = urls[0]
		}
	}

	return meta, nil
}
