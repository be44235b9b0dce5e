// Package testutil provides testing utilities for golden tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FixtureContext holds information about a loaded fixture.
type FixtureContext struct {
	// Name is the fixture directory name (e.g., "fortran")
	Name string

	// Root is the absolute path to the fixture source tree
	Root string

	// ExpectedDir is the path to the expected/ directory
	ExpectedDir string
}

// LoadFixture loads a fixture, failing the test on error.
// A fixture is testdata/fixtures/<name> with a src/ tree and an expected/ directory.
func LoadFixture(t *testing.T, name string) *FixtureContext {
	t.Helper()

	fixtureDir := filepath.Join(getFixturesRoot(t), name)

	srcDir := filepath.Join(fixtureDir, "src")
	if _, err := os.Stat(srcDir); os.IsNotExist(err) {
		t.Fatalf("Fixture source tree not found: %s", srcDir)
	}

	expectedDir := filepath.Join(fixtureDir, "expected")
	if _, err := os.Stat(expectedDir); os.IsNotExist(err) {
		if err := os.MkdirAll(expectedDir, 0o755); err != nil {
			t.Fatalf("Failed to create expected directory: %v", err)
		}
	}

	return &FixtureContext{
		Name:        name,
		Root:        srcDir,
		ExpectedDir: expectedDir,
	}
}

// ExpectedPath returns the path to a golden file within the fixture.
// The name includes its extension.
func (f *FixtureContext) ExpectedPath(name string) string {
	return filepath.Join(f.ExpectedDir, name)
}

// SourcePath returns the absolute path of a slash-separated path in the source tree.
func (f *FixtureContext) SourcePath(rel string) string {
	return filepath.Join(f.Root, filepath.FromSlash(rel))
}

// getFixturesRoot returns the absolute path to testdata/fixtures/.
func getFixturesRoot(t *testing.T) string {
	t.Helper()

	// Get the directory of this source file
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	fixturesRoot := filepath.Join(projectRoot, "testdata", "fixtures")

	if _, err := os.Stat(fixturesRoot); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", fixturesRoot)
	}

	return fixturesRoot
}

// AvailableFixtures returns the fixture names that have a src/ tree.
func AvailableFixtures(t *testing.T) []string {
	t.Helper()

	root := getFixturesRoot(t)
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("Failed to read fixtures directory: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !isHiddenDir(entry.Name()) {
			if _, err := os.Stat(filepath.Join(root, entry.Name(), "src")); err == nil {
				names = append(names, entry.Name())
			}
		}
	}

	return names
}

func isHiddenDir(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
