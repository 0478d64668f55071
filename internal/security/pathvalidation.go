// Package security validates file paths for export operations and sanitizes
// identifiers that get embedded into file names.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateExportPath checks that a report or backup destination stays inside
// the current working directory or the system temp directory. Anything else
// is rejected as a traversal attempt.
func ValidateExportPath(filePath string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	for _, dir := range []string{cwd, os.TempDir()} {
		if validateWithin(filePath, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("path %s must be under the working directory or %s", filePath, os.TempDir())
}

// validateWithin rejects paths whose canonical form escapes dir. Symlinks in
// the path and in dir are resolved first, so a link pointing outside dir
// cannot be used to smuggle a write elsewhere.
func validateWithin(filePath, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}

	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("resolve directory symlinks: %w", err)
	}
	canonical := canonicalize(absPath)

	rel, err := filepath.Rel(canonicalDir, canonical)
	if err != nil {
		return fmt.Errorf("path outside directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %s escapes %s", filePath, dir)
	}
	return nil
}

// canonicalize resolves symlinks in path. When the file does not exist yet it
// resolves the nearest existing ancestor and rejoins the remainder, so a
// symlinked parent directory still canonicalizes correctly.
func canonicalize(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}

	for parent := filepath.Dir(absPath); ; parent = filepath.Dir(parent) {
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, relErr := filepath.Rel(parent, absPath)
			if relErr != nil {
				break
			}
			return filepath.Join(resolved, rel)
		}
		if parent == filepath.Dir(parent) {
			break
		}
	}
	return absPath
}

// SanitizeFilename makes a safe file name component from an arbitrary
// identifier. Characters outside ASCII letters, digits, dot, underscore and
// dash become single underscores, and the result is capped at 128 bytes.
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
