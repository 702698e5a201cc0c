// Package security provides path validation for local database files.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// forbiddenChars are shell metacharacters and DSN separators that never
// belong in a database file path.
var forbiddenChars = []string{";", "&", "|", "$", "`", "<", ">", "?", "\n", "\r"}

// DatabasePath cleans a database file path and makes it absolute. Symlinks
// of existing files are resolved. In-memory and "file:" URIs are returned unchanged.
func DatabasePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("database path cannot be empty")
	}
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}

	for _, char := range forbiddenChars {
		if strings.Contains(path, char) {
			return "", fmt.Errorf("database path contains forbidden character %q: %s", char, path)
		}
	}

	clean, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve database path: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(clean)
	if os.IsNotExist(err) {
		return clean, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve database path: %w", err)
	}
	return resolved, nil
}
