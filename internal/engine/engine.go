// File: internal/engine/engine.go
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crispud/semgrep/api/schemas"
)

// Config tunes one engine instance.
type Config struct {
	// Jobs bounds per-file matching concurrency; 0 means GOMAXPROCS.
	Jobs int
	// Exclude holds glob patterns matched against both the path base and
	// the target-relative path.
	Exclude []string
	// MaxTargetBytes skips files larger than this.
	MaxTargetBytes int64
}

// Engine walks target paths and applies the loaded rules to every
// eligible file. It holds no state between runs.
type Engine struct {
	cfg     Config
	matcher *matcher
	logger  *zap.Logger
}

// New compiles the rules and returns a ready engine.
func New(cfg Config, rules []Rule, logger *zap.Logger) (*Engine, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("engine needs at least one rule")
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = runtime.GOMAXPROCS(0)
	}
	if cfg.MaxTargetBytes <= 0 {
		cfg.MaxTargetBytes = 1_000_000
	}
	m, err := newMatcher(rules)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, matcher: m, logger: logger}, nil
}

// Run scans all targets and returns the combined findings sorted by path,
// line, and rule. The context cancels the walk and any in-flight matching.
func (e *Engine) Run(ctx context.Context, targets []string) ([]schemas.Finding, error) {
	paths, err := e.collect(targets)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Collected scan targets", zap.Int("files", len(paths)))

	var (
		mu       sync.Mutex
		findings []schemas.Finding
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Jobs)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			// Binary files are not scannable source.
			if bytes.IndexByte(src, 0) >= 0 {
				return nil
			}
			found, err := e.matcher.matchFile(ctx, path, src)
			if err != nil {
				return err
			}
			if len(found) > 0 {
				mu.Lock()
				findings = append(findings, found...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.RuleID < b.RuleID
	})
	return findings, nil
}

// collect expands targets into the list of files to scan, applying the
// exclude globs and size limit.
func (e *Engine) collect(targets []string) ([]string, error) {
	var paths []string
	seen := make(map[string]struct{})

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("cannot scan %s: %w", target, err)
		}
		if !info.IsDir() {
			if e.eligible(target, filepath.Base(target), info.Size()) {
				if _, dup := seen[target]; !dup {
					seen[target] = struct{}{}
					paths = append(paths, target)
				}
			}
			continue
		}

		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(target, path)
			if relErr != nil {
				rel = path
			}
			if d.IsDir() {
				if d.Name() == ".git" || e.excluded(rel, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if !e.eligible(rel, d.Name(), fi.Size()) {
				return nil
			}
			if _, dup := seen[path]; !dup {
				seen[path] = struct{}{}
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", target, err)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (e *Engine) eligible(rel, base string, size int64) bool {
	if size > e.cfg.MaxTargetBytes {
		return false
	}
	return !e.excluded(rel, base)
}

func (e *Engine) excluded(rel, base string) bool {
	for _, pattern := range e.cfg.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
