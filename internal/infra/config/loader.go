package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultRootDir is the workspace directory under $HOME used when neither
// a flag nor PLANNER_ROOT names one
const DefaultRootDir = "planner"

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set win over the file. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ResolveRoot picks the workspace root: explicit value, then PLANNER_ROOT,
// then ~/planner. The result is absolute when it can be made so.
func ResolveRoot(explicit string) string {
	root := explicit
	if root == "" {
		root = os.Getenv("PLANNER_ROOT")
	}
	if root == "" {
		if home, err := os.UserHomeDir(); err == nil {
			root = filepath.Join(home, DefaultRootDir)
		} else {
			root = DefaultRootDir
		}
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}
