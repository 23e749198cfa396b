// Package config loads nbcheck configuration and locates the project root.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the per-project nbcheck directory.
	DirName = ".nbcheck"
	// FileName is the configuration file inside DirName.
	FileName = "config.yaml"
	// HomeEnv overrides project root detection.
	HomeEnv = "NBCHECK_HOME"
)

// FindProjectRoot returns the directory nbcheck treats as the harness
// directory: relative notebook paths, the kernel working directory and the
// .nbcheck directory all resolve against it.
// Priority order:
//  1. NBCHECK_HOME environment variable (if set)
//  2. The nearest ancestor of start containing a .nbcheck directory
//  3. start itself
func FindProjectRoot(start string) (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Abs(home)
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}

	current := abs
	for {
		info, err := os.Stat(filepath.Join(current, DirName))
		if err == nil && info.IsDir() {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return abs, nil
}

// Resolve returns path unchanged when absolute, otherwise joined to root.
func Resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
