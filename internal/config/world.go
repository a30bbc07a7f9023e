package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// SearchConfig controls the bounded tree walk.
type SearchConfig struct {
	// DefaultRoot is the search root when a request names none. Empty means
	// the user's home directory. It is also the anchor whose subtree uses
	// RootMaxDepth.
	DefaultRoot string `yaml:"default_root" json:"default_root,omitempty"`
	// RootMaxDepth caps scanning below the anchor root.
	RootMaxDepth int `yaml:"root_max_depth" json:"root_max_depth,omitempty"`
	// MaxDepth caps scanning below any other starting directory.
	MaxDepth int `yaml:"max_depth" json:"max_depth,omitempty"`
	// ResultCap stops the walk once this many entries matched.
	ResultCap int `yaml:"result_cap" json:"result_cap,omitempty"`
	// StatWorkers caps concurrent lstat calls within one directory.
	StatWorkers int `yaml:"stat_workers" json:"stat_workers,omitempty"`
	// FollowSymlinks descends into symlinked directories (cycles are broken).
	FollowSymlinks bool `yaml:"follow_symlinks" json:"follow_symlinks,omitempty"`
	// SkipDirs names directories that are listed but never descended into.
	SkipDirs []string `yaml:"skip_dirs" json:"skip_dirs,omitempty"`
}

// DefaultSearchConfig returns defaults for the tree walk.
func DefaultSearchConfig() SearchConfig {
	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	if workers < 4 {
		workers = 4
	}
	return SearchConfig{
		RootMaxDepth: 2,
		MaxDepth:     5,
		ResultCap:    500,
		StatWorkers:  workers,
		SkipDirs: []string{
			".git",
			".hg",
			".svn",
			"node_modules",
			".cache",
			".Trash",
		},
	}
}

// Validate checks that limits are usable.
func (s SearchConfig) Validate() error {
	if s.RootMaxDepth < 0 {
		return fmt.Errorf("root_max_depth must be >= 0")
	}
	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0")
	}
	if s.ResultCap < 1 {
		return fmt.Errorf("result_cap must be >= 1")
	}
	if s.StatWorkers < 1 {
		return fmt.Errorf("stat_workers must be >= 1")
	}
	return nil
}

// ResolveDefaultRoot returns DefaultRoot as an absolute path, falling back to
// the user's home directory. A leading "~" is expanded.
func (s SearchConfig) ResolveDefaultRoot() (string, error) {
	root := s.DefaultRoot
	if root == "" || root == "~" || strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		root = filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(root, "~"), "/"))
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve default root %q: %w", root, err)
	}
	return abs, nil
}
