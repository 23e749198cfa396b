// Package discovery finds the notebooks a suite run executes.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Options configures notebook discovery
type Options struct {
	// Dir is the directory patterns and relative notebook names resolve against
	Dir string
	// Patterns are filename globs matched inside Dir, e.g. "basic*.ipynb"
	Patterns []string
	// Notebooks are explicitly listed notebooks, appended after pattern matches
	Notebooks []string
}

// Result contains the discovered notebooks
type Result struct {
	// Notebooks are the paths to run, in execution order and without duplicates
	Notebooks []string
	// Missing lists explicit notebooks that do not exist. They are still part
	// of Notebooks so the run reports them as errors.
	Missing []string
}

// Discover expands the patterns (each pattern's matches sorted by name) and
// appends the explicit notebooks. A notebook reached twice keeps its first
// position.
func Discover(opts Options) (*Result, error) {
	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access notebooks directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", opts.Dir)
	}

	result := &Result{}
	seen := make(map[string]bool)
	add := func(path string) bool {
		key := filepath.Clean(path)
		if seen[key] {
			return false
		}
		seen[key] = true
		result.Notebooks = append(result.Notebooks, path)
		return true
	}

	for _, pattern := range opts.Patterns {
		matches, err := filepath.Glob(filepath.Join(opts.Dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)

		for _, match := range matches {
			fi, err := os.Stat(match)
			if err != nil || fi.IsDir() {
				continue
			}
			add(match)
		}
	}

	for _, name := range opts.Notebooks {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.Dir, name)
		}
		if !add(path) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			result.Missing = append(result.Missing, path)
		}
	}

	return result, nil
}
