// File: internal/gitops/safedir.go
package gitops

import (
	"fmt"
	"os"

	gitconfig "github.com/go-git/go-git/v5/config"
	format "github.com/go-git/go-git/v5/plumbing/format/config"
)

// EnsureSafeDirectory records dir in git's global safe.directory list so
// repository metadata can be read when the repo is owned by another user
// (the usual situation inside CI containers). Already-listed directories
// are left alone.
func EnsureSafeDirectory(dir string) error {
	cfg, err := gitconfig.LoadConfig(gitconfig.GlobalScope)
	if err != nil {
		return fmt.Errorf("failed to load global git config: %w", err)
	}
	if !appendSafeDirectory(cfg.Raw, dir) {
		return nil
	}

	paths, err := gitconfig.Paths(gitconfig.GlobalScope)
	if err != nil || len(paths) == 0 {
		return fmt.Errorf("failed to locate global git config: %w", err)
	}
	out, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize git config: %w", err)
	}
	if err := os.WriteFile(paths[0], out, 0o644); err != nil {
		return fmt.Errorf("failed to write global git config: %w", err)
	}
	return nil
}

// appendSafeDirectory adds dir to the safe section unless present,
// reporting whether the config changed.
func appendSafeDirectory(raw *format.Config, dir string) bool {
	section := raw.Section("safe")
	for _, opt := range section.Options {
		if opt.Key == "directory" && opt.Value == dir {
			return false
		}
	}
	section.AddOption("directory", dir)
	return true
}
