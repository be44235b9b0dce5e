// Package paths resolves the locations fortdeps reads and writes under a scan root.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// StateDirName is the per-root directory holding config, cache and logs.
	StateDirName = ".fortdeps"
	// ConfigFileName lives inside the state directory.
	ConfigFileName = "config.json"
	// DatabaseFileName lives inside the state directory.
	DatabaseFileName = "fortdeps.db"
	// LogsSubdir lives inside the state directory.
	LogsSubdir = "logs"
	// LogFileName lives inside the logs directory.
	LogFileName = "fortdeps.log"
	// DeclarationFileName sits at the scan root.
	DeclarationFileName = "FORTRAN.toml"
)

// StateDir returns <root>/.fortdeps.
func StateDir(root string) string {
	return filepath.Join(root, StateDirName)
}

// ConfigPath returns <root>/.fortdeps/config.json.
func ConfigPath(root string) string {
	return filepath.Join(StateDir(root), ConfigFileName)
}

// DatabasePath returns <root>/.fortdeps/fortdeps.db.
func DatabasePath(root string) string {
	return filepath.Join(StateDir(root), DatabaseFileName)
}

// LogPath returns <root>/.fortdeps/logs/fortdeps.log.
func LogPath(root string) string {
	return filepath.Join(StateDir(root), LogsSubdir, LogFileName)
}

// DeclarationPath returns <root>/FORTRAN.toml.
func DeclarationPath(root string) string {
	return filepath.Join(root, DeclarationFileName)
}

// EnsureStateDir creates the state directory if needed and returns it.
func EnsureStateDir(root string) (string, error) {
	dir := StateDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// EnsureLogsDir creates the logs directory if needed and returns it.
func EnsureLogsDir(root string) (string, error) {
	dir := filepath.Join(StateDir(root), LogsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// CanonicalizePath converts a path under root to a root-relative path with
// forward slashes. Symlinks are resolved when the path exists.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRoot reports whether path lies under root.
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// JoinRootPath joins root with a slash-separated relative path.
func JoinRootPath(root string, canonicalPath string) string {
	parts := strings.Split(strings.ReplaceAll(canonicalPath, "\\", "/"), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}
