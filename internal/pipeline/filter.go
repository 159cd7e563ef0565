package pipeline

import (
	"path"
	"path/filepath"
	"strings"

	"lightsync/internal/errs"
	"lightsync/internal/model"

	"github.com/bmatcuk/doublestar/v4"
)

// tempSuffix marks the executor's own atomic-write temp files, which must
// never sync back.
const tempSuffix = ".lightsync.tmp"

// IgnoreFilter decides whether a path relative to the sync folder root is
// excluded from syncing. Patterns are validated once at construction;
// matching never fails.
type IgnoreFilter struct {
	patterns []string
}

func NewIgnoreFilter(patterns []string) (*IgnoreFilter, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errs.Newf(errs.KindConfig, "invalid ignore pattern: %q", p)
		}
	}

	return &IgnoreFilter{patterns: patterns}, nil
}

// Match reports whether relPath or any of its ancestor directories matches
// an ignore pattern. Matching an ancestor short-circuits the whole subtree.
func (f *IgnoreFilter) Match(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return false
	}
	if strings.HasSuffix(relPath, tempSuffix) {
		return true
	}

	for candidate := relPath; candidate != "."; candidate = path.Dir(candidate) {
		for _, pattern := range f.patterns {
			if ok, _ := doublestar.Match(pattern, candidate); ok {
				return true
			}
			// Bare-name patterns like "*.tmp" or ".git" apply to any
			// path segment, not just the top level.
			if !strings.Contains(pattern, "/") {
				if ok, _ := doublestar.Match(pattern, path.Base(candidate)); ok {
					return true
				}
			}
		}
	}

	return false
}

// Run drops ignored events from a pipeline stage.
func (f *IgnoreFilter) Run(inCh <-chan model.FileEvent) <-chan model.FileEvent {
	outCh := make(chan model.FileEvent, cap(inCh))

	go func() {
		defer close(outCh)

		for event := range inCh {
			if f.Match(event.Path) {
				continue
			}
			outCh <- event
		}
	}()

	return outCh
}
